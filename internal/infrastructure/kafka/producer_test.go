package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	created []string
	detail  *sarama.TopicDetail
	err     error
	closed  bool
}

func (a *fakeAdmin) CreateTopic(topic string, detail *sarama.TopicDetail, validateOnly bool) error {
	a.created = append(a.created, topic)
	a.detail = detail
	return a.err
}

func (a *fakeAdmin) Close() error {
	a.closed = true
	return nil
}

func TestNewBroker_EmptyBrokers(t *testing.T) {
	_, err := NewBroker(BrokerConfig{Logger: zerolog.Nop()})
	if err == nil {
		t.Fatal("Expected error for empty brokers, got nil")
	}
	if err.Error() != "no kafka brokers specified" {
		t.Errorf("Expected 'no kafka brokers specified', got %v", err)
	}
}

func TestBroker_Publish(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "telegram" {
			return fmt.Errorf("topic = %q", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "TelegramMessageReceived" {
			return fmt.Errorf("key = %q", key)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != RoutingKeyHeader ||
			string(msg.Headers[0].Value) != "TelegramMessageReceived" {
			return fmt.Errorf("unexpected headers %v", msg.Headers)
		}
		value, _ := msg.Value.Encode()
		if string(value) != `{"id":"1"}` {
			return fmt.Errorf("value = %q", value)
		}
		return nil
	})

	admin := &fakeAdmin{}
	b := newBroker(producer, admin, zerolog.Nop())

	err := b.Publish(context.Background(), "telegram", "TelegramMessageReceived", []byte(`{"id":"1"}`))
	require.NoError(t, err)
	assert.True(t, b.IsHealthy())

	require.NoError(t, b.Close())
	assert.True(t, admin.closed)
	assert.False(t, b.IsHealthy())
}

func TestBroker_PublishAfterClose(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	b := newBroker(producer, &fakeAdmin{}, zerolog.Nop())
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), "telegram", "k", []byte("{}"))
	assert.ErrorIs(t, err, ErrBrokerClosed)

	// Close is idempotent
	assert.NoError(t, b.Close())
}

func TestBroker_PublishCancelled(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	b := newBroker(producer, &fakeAdmin{}, zerolog.Nop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Publish(ctx, "telegram", "k", []byte("{}"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBroker_PublishRequiresExchange(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	b := newBroker(producer, &fakeAdmin{}, zerolog.Nop())
	defer b.Close()

	assert.Error(t, b.Publish(context.Background(), "", "k", nil))
}

func TestBroker_DeliveryError(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	producer.ExpectInputAndFail(sarama.ErrOutOfBrokers)
	b := newBroker(producer, &fakeAdmin{}, zerolog.Nop())

	require.NoError(t, b.Publish(context.Background(), "telegram", "k", []byte("{}")))

	err := b.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 send errors")
}

func TestBroker_DeclareExchange(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"created", nil, false},
		{"already exists", &sarama.TopicError{Err: sarama.ErrTopicAlreadyExists}, false},
		{"bare already exists", sarama.ErrTopicAlreadyExists, false},
		{"failure", errors.New("not controller"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			producer := mocks.NewAsyncProducer(t, nil)
			admin := &fakeAdmin{err: tt.err}
			b := newBroker(producer, admin, zerolog.Nop())
			defer b.Close()

			err := b.DeclareExchange(context.Background(), "telegram")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, []string{"telegram"}, admin.created)
			assert.Equal(t, int32(1), admin.detail.NumPartitions)
			assert.Equal(t, int16(1), admin.detail.ReplicationFactor)
		})
	}
}

func TestBroker_DeclareExchangeEmptyName(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	admin := &fakeAdmin{}
	b := newBroker(producer, admin, zerolog.Nop())
	defer b.Close()

	assert.Error(t, b.DeclareExchange(context.Background(), ""))
	assert.Empty(t, admin.created)
}
