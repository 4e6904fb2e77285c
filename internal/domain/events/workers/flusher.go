package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/events/deps"
)

// FlusherWorker periodically publishes buffered events. Once listening has
// been requested it also subscribes connections pooled after that request.
type FlusherWorker struct {
	events   deps.Events
	listener deps.Listener
	interval time.Duration
	logger   zerolog.Logger

	done   chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewFlusherWorker creates a new event flusher worker
func NewFlusherWorker(
	events deps.Events,
	listener deps.Listener,
	eventsCfg *config.EventsConfig,
	logger zerolog.Logger,
) *FlusherWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &FlusherWorker{
		events:   events,
		listener: listener,
		interval: eventsCfg.FlushInterval,
		logger:   logger.With().Str("worker", "event_flusher").Logger(),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the flusher loop
func (w *FlusherWorker) Start() {
	w.logger.Info().Dur("interval", w.interval).Msg("Starting event flusher worker")

	w.wg.Add(1)
	go w.run()
}

// Stop stops the loop and publishes what is still buffered
func (w *FlusherWorker) Stop() {
	w.logger.Info().Msg("Stopping event flusher worker")

	close(w.done)
	w.wg.Wait()

	// last drain runs before cancel so in-flight events still reach the broker
	w.flush()
	w.cancel()

	w.logger.Info().Msg("Event flusher worker stopped")
}

func (w *FlusherWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *FlusherWorker) tick() {
	if !w.listener.Listening() {
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.interval)
	defer cancel()

	report, err := w.events.StartListening(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Event flush failed")
		return
	}
	if report.Attached > 0 || report.Published > 0 {
		w.logger.Debug().
			Int("attached", report.Attached).
			Int("published", report.Published).
			Msg("Event flush cycle completed")
	}
}

func (w *FlusherWorker) flush() {
	ctx, cancel := context.WithTimeout(w.ctx, w.interval)
	defer cancel()

	n, err := w.events.Flush(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Final event flush failed")
		return
	}
	if n > 0 {
		w.logger.Info().Int("published", n).Msg("Published remaining events")
	}
}
