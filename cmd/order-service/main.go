// cmd/order-service/main.go
package main

import (
	"context"
	"log"
	"os"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"mall/internal/pkg/bootstrap"
	"mall/internal/pkg/httpclient"
	"mall/internal/pkg/mq"
	pkgredis "mall/internal/pkg/redis"
	"mall/internal/pkg/zookeeper"
	"mall/internal/service/order/application"
	"mall/internal/service/order/infrastructure"
	"mall/internal/service/order/infrastructure/adapter"
	"mall/internal/service/order/infrastructure/freight"
	"mall/internal/service/order/interfaces"
)

const serviceName = "order-service"

// main 是订单服务的组装根: 创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := db.AutoMigrate(
		&infrastructure.OrderModel{},
		&infrastructure.OrderItemModel{},
		&infrastructure.OperateHistoryModel{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	redisClient := pkgredis.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password)

	freightCalc, err := freight.NewCELCalculator(cfg.App.FreightRule)
	if err != nil {
		log.Fatalf("invalid freight rule: %v", err)
	}

	hostname, _ := os.Hostname()
	election, err := zookeeper.NewElection(cfg.Infra.Zookeeper.Servers, "order-sweeper", hostname)
	if err != nil {
		log.Fatalf("failed to join sweeper election: %v", err)
	}

	tracer := otel.Tracer(serviceName)
	repo := infrastructure.NewGormOrderRepository(db)
	locker := infrastructure.NewRedisShopperLocker(redisClient, cfg.App.Stock.LockWait, cfg.App.Stock.LockTTL)

	runCtx, cancel := context.WithCancel(context.Background())

	var consumer *interfaces.TimeoutConsumer

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8092,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			// 出站适配器经由注册中心发现依赖的服务
			client := httpclient.NewClient(tracer, appCtx.Nacos)
			stockAdapter := adapter.NewStockHTTPAdapter(client)
			pointsAdapter := adapter.NewPointsHTTPAdapter(client)

			service := application.NewOrderApplicationService(
				repo, locker, tracer,
				stockAdapter,
				adapter.NewUserHTTPAdapter(client),
				adapter.NewCatalogHTTPAdapter(client),
				adapter.NewPromotionHTTPAdapter(client),
				pointsAdapter,
				adapter.NewCartHTTPAdapter(client),
				freightCalc,
				cfg.App.Order.PointsRate,
			)
			interfaces.NewOrderHandler(service).RegisterRoutes(appCtx.Mux)

			// 延迟队列到期事件消费者
			reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, interfaces.PaymentTimeoutTopic, serviceName+"-group")
			consumer = interfaces.NewTimeoutConsumer(reader, service)
			consumer.Start(runCtx)

			// 兜底扫描: 超时关单、自动收货、结算返积分
			sweeper := application.NewOrderSweeper(repo, service, pointsAdapter, election,
				application.SweeperConfig{
					Interval:      cfg.App.Order.PaymentWindow / 10,
					PaymentWindow: cfg.App.Order.PaymentWindow,
					ConfirmGrace:  cfg.App.Order.ConfirmGrace,
					SettleGrace:   cfg.App.Order.SettleGrace,
					BatchSize:     cfg.App.Order.SweepBatchSize,
				})
			go func() {
				if err := sweeper.Run(runCtx); err != nil && runCtx.Err() == nil {
					log.Printf("ERROR: sweeper stopped: %v", err)
				}
			}()
		},
		OnShutdown: func(ctx context.Context) {
			cancel()
			if consumer != nil {
				consumer.Stop()
			}
			election.Close()
			_ = redisClient.Close()
		},
	})
}
