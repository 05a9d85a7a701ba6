package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/config"
	"github.com/rl1809/flashsale-engine/internal/pkg/logger"
)

var LoggerModule = fx.Module("logger",
	fx.Provide(
		NewLogger,
	),
)

// NewFxLogger routes fx's own lifecycle events through zap.
func NewFxLogger(l *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: l.Named("fx")}
}

func NewLogger(lc fx.Lifecycle, cfg config.Config) (*zap.Logger, error) {
	l, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			_ = l.Sync()
			return nil
		},
	})
	return l, nil
}
