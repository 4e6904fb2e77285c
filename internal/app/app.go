package app

import (
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/relay"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure"
)

// CreateApp creates the fx application options
func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Out),
		infrastructure.Module,
		// Domain modules
		session.Module, // Provides the session store the telegram module builds connections from
		account.Module,
		events.Module,
		relay.Module,
	)
}
