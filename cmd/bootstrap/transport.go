package bootstrap

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/flashsale-engine/internal/adapter/handler"
	"github.com/rl1809/flashsale-engine/internal/config"
	"github.com/rl1809/flashsale-engine/internal/core/service"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
)

var TransportModule = fx.Module("transport",
	fx.Provide(
		NewEngine,
		NewHub,
		handler.NewHTTPHandler,
		NewGRPCHandler,
	),
	fx.Invoke(
		startHTTPServer,
		startGRPCServer,
	),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	return gin.New()
}

func NewHub(lc fx.Lifecycle, bus *eventbus.Bus, logger *zap.Logger) *handler.Hub {
	hub := handler.NewHub(logger.Named("ws"))
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			hub.Start()
			hub.Attach(bus)
			return nil
		},
		OnStop: func(_ context.Context) error {
			hub.Stop()
			return nil
		},
	})
	return hub
}

func NewGRPCHandler(
	cfg config.Config,
	store *service.FlashSaleStore,
	checkout *service.CheckoutService,
	coordinator *service.ExpirationCoordinator,
	bus *eventbus.Bus,
	clk clock.Clock,
	logger *zap.Logger,
) *handler.GRPCHandler {
	return handler.NewGRPCHandler(store, checkout, coordinator, bus, clk, handler.WatchOptions{
		PollInterval: cfg.Sale.SafetyPollInterval,
		Tick:         cfg.Sale.TickInterval,
	}, logger.Named("grpc"))
}

func startHTTPServer(
	lc fx.Lifecycle,
	cfg config.Config,
	engine *gin.Engine,
	h *handler.HTTPHandler,
	hub *handler.Hub,
	logger *zap.Logger,
) {
	handler.NewRouter(engine, cfg.CORS, logger.Named("http"), h, hub)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.HTTPPort,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			lis, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return errors.Wrapf(err, "listen on %s", srv.Addr)
			}
			logger.Info("HTTP server listening", zap.String("address", srv.Addr), zap.String("mode", gin.Mode()))
			go func() {
				if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return errors.Wrap(err, "shutdown HTTP server")
			}
			logger.Info("HTTP server stopped")
			return nil
		},
	})
}

func startGRPCServer(lc fx.Lifecycle, cfg config.Config, h *handler.GRPCHandler, logger *zap.Logger) {
	server := grpc.NewServer(grpc.UnaryInterceptor(handler.LoggingInterceptor(logger.Named("grpc"))))
	handler.RegisterFlashSaleServiceServer(server, h)
	addr := ":" + cfg.Server.GRPCPort

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			lis, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.Wrapf(err, "listen on %s", addr)
			}
			logger.Info("gRPC server listening", zap.String("address", addr))
			go func() {
				if err := server.Serve(lis); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Watch streams only end when their client goes away.
			stopped := make(chan struct{})
			go func() {
				server.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(cfg.Server.ShutdownTimeout):
				server.Stop()
			case <-ctx.Done():
				server.Stop()
			}
			logger.Info("gRPC server stopped")
			return nil
		},
	})
}
