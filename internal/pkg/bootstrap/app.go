// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"stockbridge/internal/pkg/config"
	"stockbridge/internal/pkg/logger"
	"stockbridge/internal/pkg/nacos"
	"stockbridge/internal/pkg/tracing"
)

// AppCtx 传递给各服务的路由注册回调。
type AppCtx struct {
	Mux    *http.ServeMux
	Config *config.Config
	Nacos  *nacos.Client
}

// AppInfo 包含了启动一个服务所需的所有特定信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	Config           *config.Config
	RegisterHandlers func(appCtx AppCtx)
	// OnShutdown 在 HTTP 服务器关闭前按注册顺序的逆序执行。
	OnShutdown []func(ctx context.Context)
}

// StartService 封装了所有服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	cfg := info.Config

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 2. 可选的 Nacos 注册
	var nacosClient *nacos.Client
	var ip string
	if cfg.Infra.Nacos.Enabled {
		nacosClient, err = nacos.NewClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		ip, err = outboundIP()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := nacosClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.L().Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	// 3. 创建并启动 HTTP Server
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Config: cfg, Nacos: nacosClient})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		logger.L().Info().Msgf("%s listening on :%d", info.ServiceName, info.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Fatal().Err(err).Msgf("could not listen on %s", server.Addr)
		}
	}()

	// 4. 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L().Info().Msgf("Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 清理顺序：注销注册 -> 业务清理 -> Tracer -> HTTP
	if nacosClient != nil {
		if err := nacosClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			logger.L().Error().Err(err).Msg("Error deregistering from Nacos")
		}
	}

	for i := len(info.OnShutdown) - 1; i >= 0; i-- {
		info.OnShutdown[i](ctx)
	}

	if err := tp.Shutdown(ctx); err != nil {
		logger.L().Error().Err(err).Msg("Error shutting down tracer provider")
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.L().Error().Err(err).Msg("Error shutting down http server")
	}

	logger.L().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}

// outboundIP 获取本机对外 IP，用于服务注册。
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
