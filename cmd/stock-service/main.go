// cmd/stock-service/main.go
package main

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"mall/internal/pkg/bootstrap"
	pkgredis "mall/internal/pkg/redis"
	"mall/internal/service/stock/application"
	"mall/internal/service/stock/infrastructure"
	"mall/internal/service/stock/interfaces"
)

const serviceName = "stock-service"

// main 是库存服务的组装根: 创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := db.AutoMigrate(
		&infrastructure.WarehouseModel{},
		&infrastructure.StockRecordModel{},
		&infrastructure.StockMovementModel{},
		&infrastructure.WorkOrderModel{},
		&infrastructure.ReservationLineModel{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	redisClient := pkgredis.NewClient(cfg.Infra.Redis.Addr, cfg.Infra.Redis.Password)

	feed := infrastructure.NewKafkaMovementFeed(cfg.Infra.Kafka.Brokers)
	scheduler := infrastructure.NewKafkaTimeoutScheduler(cfg.Infra.Kafka.Brokers)

	ledger := infrastructure.NewGormLedger(db, feed)
	workOrders := infrastructure.NewGormWorkOrderRepository(db)
	movements := infrastructure.NewGormMovementLog(db)
	locker := infrastructure.NewRedisOrderLocker(redisClient, cfg.App.Stock.LockWait, cfg.App.Stock.LockTTL)

	service := application.NewReservationService(
		ledger, workOrders, movements, locker, scheduler,
		otel.Tracer(serviceName), cfg.App.Order.PaymentWindow)
	handler := interfaces.NewStockHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8091,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			_ = scheduler.Close()
			_ = feed.Close()
			_ = redisClient.Close()
		},
	})
}
