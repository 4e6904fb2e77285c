package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
)

// Module provides the Kafka event broker for fx DI
var Module = fx.Module("kafka",
	fx.Provide(NewBrokerFx),
)

// NewBrokerFx creates the event broker and closes it on shutdown
func NewBrokerFx(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	logger zerolog.Logger,
) (domain.EventBroker, error) {
	broker, err := NewBroker(BrokerConfig{
		Brokers:  kafkaCfg.Brokers,
		ClientID: kafkaCfg.ClientID,
		Logger:   logger.With().Str("component", "kafka-broker").Logger(),
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return broker.Close()
		},
	})

	return broker, nil
}
