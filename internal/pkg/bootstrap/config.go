// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置结构。
// 来源优先级: 环境变量 > 配置文件 > 默认值。
type Config struct {
	Infra InfraConfig `yaml:"infra"`
	App   AppConfig   `yaml:"app"`
}

type InfraConfig struct {
	Mysql struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
	} `yaml:"kafka"`
	Zookeeper struct {
		Servers []string `yaml:"servers"`
	} `yaml:"zookeeper"`
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Nacos struct {
		ServerAddrs string `yaml:"serverAddrs"`
		Namespace   string `yaml:"namespace"`
		Group       string `yaml:"group"`
	} `yaml:"nacos"`
}

type AppConfig struct {
	Order struct {
		// PaymentWindow 是未支付订单的存活时间，超时后由定时任务关单。
		PaymentWindow time.Duration `yaml:"paymentWindow"`
		// ConfirmGrace 是发货后自动确认收货的宽限期。
		ConfirmGrace time.Duration `yaml:"confirmGrace"`
		// SettleGrace 是确认收货后自动结算（返积分）的宽限期。
		SettleGrace time.Duration `yaml:"settleGrace"`
		// SweepBatchSize 是每轮扫描处理的订单上限。
		SweepBatchSize int `yaml:"sweepBatchSize"`
		// PointsRate 是积分抵扣比率: 1 积分可抵扣多少分（货币最小单位）。
		PointsRate int64 `yaml:"pointsRate"`
	} `yaml:"order"`
	Stock struct {
		// LockWait 是获取订单级互斥锁的最长等待时间。
		LockWait time.Duration `yaml:"lockWait"`
		// LockTTL 是互斥锁的自动释放时间，防止持有者崩溃后死锁。
		LockTTL time.Duration `yaml:"lockTTL"`
	} `yaml:"stock"`
	// FreightRule 是运费计算的 CEL 表达式，入参见 freight 包。
	FreightRule string `yaml:"freightRule"`
}

var currentConfig atomic.Pointer[Config]

// Init 加载配置文件并应用环境变量覆盖。必须在 StartService 之前调用。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_FILE", "configs/config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("FATAL: invalid config file %s: %v", path, err)
		}
	} else {
		log.Printf("WARN: config file %s not found, using defaults and env overrides", path)
	}

	applyEnvOverrides(cfg)
	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置快照。
func GetCurrentConfig() *Config {
	cfg := currentConfig.Load()
	if cfg == nil {
		Init()
		cfg = currentConfig.Load()
	}
	return cfg
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/mall?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Zookeeper.Servers = []string{"localhost:2181"}
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.App.Order.PaymentWindow = 30 * time.Minute
	cfg.App.Order.ConfirmGrace = 7 * 24 * time.Hour
	cfg.App.Order.SettleGrace = 24 * time.Hour
	cfg.App.Order.SweepBatchSize = 100
	cfg.App.Order.PointsRate = 1
	cfg.App.Stock.LockWait = 3 * time.Second
	cfg.App.Stock.LockTTL = 10 * time.Second
	// 默认运费规则: 满 9900 分包邮，否则 1000 分，重货加收。
	cfg.App.FreightRule = `subtotal >= 9900 ? 0 : (weight > 10.0 ? 1500 : 1000)`
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("MYSQL_DSN"); ok {
		cfg.Infra.Mysql.DSN = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Infra.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("ZK_SERVERS"); ok {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("JAEGER_ENDPOINT"); ok {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v, ok := os.LookupEnv("NACOS_SERVER_ADDRS"); ok {
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v, ok := os.LookupEnv("NACOS_NAMESPACE"); ok {
		cfg.Infra.Nacos.Namespace = v
	}
	if v, ok := os.LookupEnv("NACOS_GROUP"); ok {
		cfg.Infra.Nacos.Group = v
	}
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
