// cmd/drift-monitor/main.go
package main

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"stockbridge/internal/pkg/bootstrap"
	"stockbridge/internal/pkg/config"
	"stockbridge/internal/pkg/httpclient"
	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/pkg/mq"
	"stockbridge/internal/pkg/zklock"
	"stockbridge/internal/service/billing/infrastructure/adapter"
	"stockbridge/internal/service/reconcile/application"
	"stockbridge/internal/service/reconcile/interfaces"
)

const serviceName = "drift-monitor"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName, zerolog.InfoLevel)

	// 配置默认值是开单服务的，独立部署时换成自己的端口
	if cfg.Service.Name != serviceName {
		cfg.Service.Port = 8085
	}

	tracer := otel.Tracer(serviceName)

	// 同步锁：ZooKeeper 不可达时退化为无互斥，仅适合单实例部署
	var locker zklock.Locker = zklock.NopLocker{}
	zkConn, err := zklock.Connect(cfg.Infra.Zookeeper.Servers)
	if err != nil {
		logger.L().Warn().Err(err).Msg("zookeeper unavailable, sync pushes will not be fenced")
	} else {
		locker = zklock.NewZKLocker(zkConn)
	}

	driftReader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.DriftEventsTopic, serviceName)
	driftWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.DriftEventsTopic)
	hub := interfaces.NewDriftFeedHub()

	monitorCtx, stopMonitor := context.WithCancel(context.Background())

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.Service.Port,
		Config:      cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			staticResolver := httpclient.StaticResolver{
				cfg.Stock.Inventory.Name: cfg.Stock.Inventory.Addr,
				cfg.Stock.Catalog.Name:   cfg.Stock.Catalog.Addr,
			}
			var resolver httpclient.Resolver = staticResolver
			if appCtx.Nacos != nil {
				resolver = httpclient.ChainResolver{appCtx.Nacos, staticResolver}
			}
			httpClient := httpclient.NewClient(tracer, resolver, cfg.Stock.CallTimeout.Std())

			inventory := adapter.NewResilientStockService(
				adapter.NewInventoryHTTPAdapter(httpClient, cfg.Stock.Inventory.Name),
				adapter.NewStaticFallback("inventory", cfg.Fallback.Inventory),
			)
			catalog := adapter.NewResilientStockService(
				adapter.NewCatalogHTTPAdapter(httpClient, cfg.Stock.Catalog.Name),
				adapter.NewStaticFallback("catalog", cfg.Fallback.Catalog),
			)

			app := application.NewReconcileApplicationService(inventory, catalog, locker, tracer)
			interfaces.NewReconcileHandler(app, hub, tracer).RegisterRoutes(appCtx.Mux)

			monitor := application.NewDriftMonitor(app, driftReader, driftWriter, cfg.Reconcile.ScanInterval.Std(), hub.Broadcast)
			go monitor.Run(monitorCtx)
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) {
				stopMonitor()
				hub.Close()
				if err := driftReader.Close(); err != nil {
					logger.L().Error().Err(err).Msg("error closing drift event reader")
				}
				if err := driftWriter.Close(); err != nil {
					logger.L().Error().Err(err).Msg("error closing drift event writer")
				}
				if zkConn != nil {
					zkConn.Close()
				}
			},
		},
	})
}
