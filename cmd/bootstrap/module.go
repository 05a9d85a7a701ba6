package bootstrap

import (
	"go.uber.org/fx"
)

// Module wires the whole engine. Invokes run in this order, so OnStop hooks
// run in reverse: servers first, then the core, then connections.
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	StorageModule,
	CoreModule,
	TransportModule,
	fx.WithLogger(NewFxLogger),
)
