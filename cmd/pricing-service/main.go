// cmd/pricing-service/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/clock"
	"bazaar/internal/pkg/httpclient"
	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	"bazaar/internal/pkg/redis"
	"bazaar/internal/service/pricing/application"
	"bazaar/internal/service/pricing/infrastructure"
	"bazaar/internal/service/pricing/infrastructure/adapter"
	"bazaar/internal/service/pricing/infrastructure/rule"
	"bazaar/internal/service/pricing/interfaces"
	"bazaar/internal/service/pricing/port"
	"bazaar/internal/zookeeper"
)

const serviceName = "pricing-service"

// main 是组装根：创建并装配全部依赖，然后交给 bootstrap 启动。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	// MySQL
	dsnCfg := mysql.NewConfig()
	dsnCfg.User = cfg.Infra.Mysql.User
	dsnCfg.Passwd = cfg.Infra.Mysql.Password
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = cfg.Infra.Mysql.Addr
	dsnCfg.DBName = cfg.Infra.Mysql.Database
	dsnCfg.ParseTime = true
	db, err := gorm.Open(gormmysql.Open(dsnCfg.FormatDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := infrastructure.AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	discounts := infrastructure.NewGormDiscountRepository(db)
	coupons := infrastructure.NewGormCouponRepository(db)
	ledger := infrastructure.NewGormUsageLedger(db)

	// Redis：核销额度闸门（Lua 原子检查 + 占位）
	redisClient := redis.NewClient(cfg.Infra.Redis.Addr)
	guard, err := infrastructure.NewRedisRedemptionGuard(redisClient)
	if err != nil {
		log.Fatalf("failed to initialize redemption guard: %v", err)
	}

	// Kafka：核销事件流
	redemptionWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topics.Redemptions)
	events := adapter.NewRedemptionProducerAdapter(redemptionWriter)

	// ZooKeeper：店铺内券码唯一性锁
	zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
	if err != nil {
		log.Fatalf("failed to connect zookeeper: %v", err)
	}
	locker := adapter.NewZkCodeLocker(zkConn)

	// CEL 资格规则引擎
	rules, err := rule.NewCELRuleEngine()
	if err != nil {
		log.Fatalf("failed to initialize rule engine: %v", err)
	}

	tracer := otel.Tracer(serviceName)

	// 分佣服务：没配地址就按固定 0 佣金跑
	var commission port.CommissionService = adapter.StaticCommission{}
	if baseURL := os.Getenv("COMMISSION_SERVICE_URL"); baseURL != "" {
		commission = adapter.NewCommissionHTTPAdapter(httpclient.NewClient(tracer), baseURL)
	}

	clk := clock.System{}
	validator := application.NewCouponValidator(discounts, coupons, ledger, rules, clk, tracer)
	calculator := application.NewPriceCalculator(discounts, clk, tracer)
	service := application.NewPricingService(
		validator, calculator,
		discounts, coupons, ledger, clk,
		guard, commission, events, locker,
		tracer,
	)
	handler := interfaces.NewPricingHandler(service)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8085,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := redemptionWriter.Close(); err != nil {
				log.Printf("Error closing kafka writer: %v", err)
			}
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
			zkConn.Close()
		},
	})
}
