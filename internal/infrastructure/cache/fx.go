package cache

import (
	"go.uber.org/fx"
)

// Module provides in-process caches for fx DI
var Module = fx.Module("cache",
	fx.Provide(NewMessageIDCache),
)
