// cmd/billing-service/main.go
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"stockbridge/internal/pkg/bootstrap"
	"stockbridge/internal/pkg/config"
	"stockbridge/internal/pkg/httpclient"
	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/pkg/mq"
	"stockbridge/internal/pkg/redis"
	"stockbridge/internal/service/billing/application"
	"stockbridge/internal/service/billing/domain"
	"stockbridge/internal/service/billing/domain/port"
	"stockbridge/internal/service/billing/infrastructure"
	"stockbridge/internal/service/billing/infrastructure/adapter"
	"stockbridge/internal/service/billing/infrastructure/policy"
	"stockbridge/internal/service/billing/interfaces"
)

const (
	serviceName       = "billing-service"
	processingTimeout = 15 * time.Second
	idempotencyTTL    = 10 * time.Minute
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName, zerolog.InfoLevel)

	tracer := otel.Tracer(serviceName)

	// 账本：MySQL 不可达时退化为进程内账本，保证本地起服务零依赖可用
	var ledger domain.SaleLedger
	ledger, err = infrastructure.NewGormSaleLedger(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.L().Warn().Err(err).Msg("mysql unavailable, using in-memory sale ledger")
		ledger = infrastructure.NewMemorySaleLedger()
	}

	// 幂等闸门：同理，Redis 不可达时退化为进程内闸门
	var guard port.RequestGuard
	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		logger.L().Warn().Err(err).Msg("redis unavailable, using in-memory request guard")
		guard = infrastructure.NewMemoryRequestGuard()
	} else {
		guard = infrastructure.NewRedisRequestGuard(redisClient, idempotencyTTL)
	}

	salePolicy, err := policy.NewCELSalePolicy(cfg.Policy.DegradedSale)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("invalid degraded-sale policy expression")
	}

	saleWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.SaleEventsTopic)
	driftWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.DriftEventsTopic)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.Service.Port,
		Config:      cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			// 下游地址解析：Nacos 启用时优先走发现，静态地址兜底
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

			app := application.NewBillingApplicationService(
				ledger,
				inventory,
				catalog,
				salePolicy,
				guard,
				adapter.NewSaleKafkaProducer(saleWriter),
				adapter.NewDriftKafkaProducer(driftWriter),
				tracer,
				processingTimeout,
			)
			interfaces.NewBillingHandler(app, tracer).RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) {
				if err := saleWriter.Close(); err != nil {
					logger.L().Error().Err(err).Msg("error closing sale event writer")
				}
				if err := driftWriter.Close(); err != nil {
					logger.L().Error().Err(err).Msg("error closing drift event writer")
				}
				if redisClient != nil {
					if err := redisClient.Close(); err != nil {
						logger.L().Error().Err(err).Msg("error closing redis client")
					}
				}
			},
		},
	})
}
