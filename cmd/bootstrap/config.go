package bootstrap

import (
	"go.uber.org/fx"

	"github.com/rl1809/flashsale-engine/internal/config"
)

var ConfigModule = fx.Module("config",
	fx.Provide(
		config.LoadConfig,
	),
)
