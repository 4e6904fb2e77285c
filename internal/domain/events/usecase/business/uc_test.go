package business

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/cache"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
)

func TestUseCase_StartListeningDrains(t *testing.T) {
	pool, conns := newPool(t, "79991234567")
	l := NewListener(pool, cache.NewMessageIDCache(zerolog.Nop()), metrics.GetDefaultMetrics(), zerolog.Nop())
	b := &fakeBroker{}
	uc := NewUseCase(pool, l, newPublisher(b), zerolog.Nop())

	report, err := uc.StartListening(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pooled)
	assert.Equal(t, 1, report.Attached)
	assert.Equal(t, 0, report.Published)

	conns[0].Emit(context.Background(), domain.Message{ID: 1})
	conns[0].Emit(context.Background(), domain.Message{ID: 2})

	report, err = uc.StartListening(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Attached)
	assert.Equal(t, 2, report.Published)
	assert.Len(t, b.messages, 2)
	assert.Equal(t, 0, l.Pending())
}

func TestUseCase_FlushError(t *testing.T) {
	pool, conns := newPool(t, "79991234567")
	l := NewListener(pool, cache.NewMessageIDCache(zerolog.Nop()), metrics.GetDefaultMetrics(), zerolog.Nop())
	b := &fakeBroker{declareErr: errors.New("down")}
	uc := NewUseCase(pool, l, newPublisher(b), zerolog.Nop())

	l.StartListening(context.Background())
	conns[0].Emit(context.Background(), domain.Message{ID: 1})

	n, err := uc.Flush(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, l.Pending(), "unsent events stay buffered")
}

func TestUseCase_FlushRetriesUnsentEvents(t *testing.T) {
	pool, conns := newPool(t, "79991234567")
	l := NewListener(pool, cache.NewMessageIDCache(zerolog.Nop()), metrics.GetDefaultMetrics(), zerolog.Nop())
	b := &fakeBroker{declareErr: errors.New("down")}
	uc := NewUseCase(pool, l, newPublisher(b), zerolog.Nop())
	ctx := context.Background()

	l.StartListening(ctx)
	conns[0].Emit(ctx, domain.Message{ID: 1})

	_, err := uc.Flush(ctx)
	require.Error(t, err)

	conns[0].Emit(ctx, domain.Message{ID: 2})
	b.declareErr = nil

	n, err := uc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, l.Pending())
	require.Len(t, b.messages, 2)
	assert.Contains(t, string(b.messages[0].body), `\"id\":1`)
	assert.Contains(t, string(b.messages[1].body), `\"id\":2`)
}

func TestUseCase_FlushRequeuesOnlyFailedSends(t *testing.T) {
	pool, conns := newPool(t, "79991234567")
	l := NewListener(pool, cache.NewMessageIDCache(zerolog.Nop()), metrics.GetDefaultMetrics(), zerolog.Nop())
	b := &fakeBroker{publishErr: map[int]error{1: errors.New("queue full")}}
	uc := NewUseCase(pool, l, newPublisher(b), zerolog.Nop())
	ctx := context.Background()

	l.StartListening(ctx)
	conns[0].Emit(ctx, domain.Message{ID: 1})
	conns[0].Emit(ctx, domain.Message{ID: 2})

	n, err := uc.Flush(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, l.Pending())

	n, err = uc.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, b.messages, 2)
}

func TestUseCase_FlushNothing(t *testing.T) {
	pool, _ := newPool(t)
	l := NewListener(pool, cache.NewMessageIDCache(zerolog.Nop()), metrics.GetDefaultMetrics(), zerolog.Nop())
	b := &fakeBroker{}
	uc := NewUseCase(pool, l, newPublisher(b), zerolog.Nop())

	n, err := uc.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, b.declared)
}
