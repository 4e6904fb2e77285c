package websocket

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay/deps"
)

// Module provides the upstream websocket dialer for fx DI
var Module = fx.Module("websocket",
	fx.Provide(fx.Annotate(NewDialer, fx.As(new(deps.Dialer)))),
)
