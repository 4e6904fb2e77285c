package workers

import (
	"context"

	"go.uber.org/fx"
)

// Module provides event workers for fx DI
var Module = fx.Module("events-workers",
	fx.Provide(NewFlusherWorker),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle registers the flusher worker with fx.Lifecycle
func registerLifecycle(lc fx.Lifecycle, w *FlusherWorker) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			w.Stop()
			return nil
		},
	})
}
