// cmd/catalog-service/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"bazaar/internal/pkg/bootstrap"
	"bazaar/internal/pkg/clock"
	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/provisioning/application"
	"bazaar/internal/service/provisioning/infrastructure"
	"bazaar/internal/service/provisioning/interfaces"
)

const serviceName = "catalog-service"

// main 是组装根：文档库、blob 库、团队目录、告警通道全部在这里装配。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

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
	if err := infrastructure.AutoMigrateDocuments(db); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	docs := infrastructure.NewGormDocumentStore(db)
	blobs := infrastructure.NewFsBlobStore(cfg.Provisioning.BlobRoot, "http://localhost:8086/blobs")
	teams := infrastructure.NewDocTeamDirectory(docs)

	// 回滚删不掉的孤儿资源走这条告警通道，运维网关消费后推给值班前端
	alertWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.Topics.ReconcileAlerts)
	alerts := infrastructure.NewKafkaAlertSink(alertWriter)

	tracer := otel.Tracer(serviceName)
	provisioner := application.NewCatalogProvisioner(docs, blobs, teams, alerts, clock.System{}, tracer, 30*time.Second)
	handler := interfaces.NewCatalogHandler(provisioner)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8086,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := alertWriter.Close(); err != nil {
				log.Printf("Error closing kafka writer: %v", err)
			}
		},
	})
}
