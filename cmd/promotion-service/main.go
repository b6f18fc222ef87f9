// cmd/promotion-service/main.go
package main

import (
	"log"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"mall/internal/pkg/bootstrap"
	"mall/internal/pkg/constants"
	"mall/internal/service/promotion/application"
	"mall/internal/service/promotion/infrastructure"
	"mall/internal/service/promotion/infrastructure/rule"
	"mall/internal/service/promotion/interfaces"
)

// main 是优惠券服务的组装根: 创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := db.AutoMigrate(
		&infrastructure.TemplateModel{},
		&infrastructure.CouponModel{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	rules, err := rule.NewCELRuleEngine()
	if err != nil {
		log.Fatalf("failed to build rule engine: %v", err)
	}

	repo := infrastructure.NewGormCouponRepository(db)
	service := application.NewPromotionService(repo, rules, otel.Tracer(constants.PromotionService))
	handler := interfaces.NewPromotionHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.PromotionService,
		Port:        8094,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
