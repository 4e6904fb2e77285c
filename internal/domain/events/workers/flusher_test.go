package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/entities"
)

type fakeEvents struct {
	mu        sync.Mutex
	starts    int
	flushes   int
	startErr  error
	flushSize int
}

func (f *fakeEvents) StartListening(ctx context.Context) (*entities.ListeningReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &entities.ListeningReport{Published: 1}, nil
}

func (f *fakeEvents) Flush(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return f.flushSize, nil
}

func (f *fakeEvents) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.flushes
}

type fakeListener struct {
	listening atomic.Bool
}

func (l *fakeListener) StartListening(ctx context.Context) int { return 0 }
func (l *fakeListener) Listening() bool                        { return l.listening.Load() }
func (l *fakeListener) PullEvents() []entities.Event           { return nil }
func (l *fakeListener) Requeue(events []entities.Event)        {}

func newWorker(events *fakeEvents, listener *fakeListener) *FlusherWorker {
	return NewFlusherWorker(events, listener, &config.EventsConfig{FlushInterval: 10 * time.Millisecond}, zerolog.Nop())
}

func TestFlusherWorker_IdleUntilListening(t *testing.T) {
	events := &fakeEvents{}
	listener := &fakeListener{}
	w := newWorker(events, listener)

	w.Start()
	time.Sleep(50 * time.Millisecond)

	starts, _ := events.counts()
	assert.Equal(t, 0, starts)

	listener.listening.Store(true)
	assert.Eventually(t, func() bool {
		starts, _ := events.counts()
		return starts > 0
	}, time.Second, 5*time.Millisecond)

	w.Stop()
	_, flushes := events.counts()
	assert.Equal(t, 1, flushes, "stop drains once")
}

func TestFlusherWorker_KeepsRunningAfterError(t *testing.T) {
	events := &fakeEvents{startErr: errors.New("broker down")}
	listener := &fakeListener{}
	listener.listening.Store(true)
	w := newWorker(events, listener)

	w.Start()
	assert.Eventually(t, func() bool {
		starts, _ := events.counts()
		return starts >= 3
	}, time.Second, 5*time.Millisecond)
	w.Stop()
}
