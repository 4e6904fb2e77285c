package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/session-service/internal/utils"
)

const defaultMaxConcurrent = 10

// Pool implements domain.ConnectionPool. Mutations on one phone are
// serialized by a per-phone lock; the map itself is guarded separately so
// lookups never wait for a slow connect.
type Pool struct {
	conns map[string]*domain.PooledConnection
	order []string
	mu    sync.RWMutex

	locks *utils.KeyedMutex

	factory domain.ConnectionFactory
	store   domain.SessionStore
	metrics *metrics.Metrics
	logger  zerolog.Logger

	maxConcurrent int
}

// PoolConfig holds dependencies for Pool
type PoolConfig struct {
	Factory       domain.ConnectionFactory
	Store         domain.SessionStore
	Metrics       *metrics.Metrics
	Logger        zerolog.Logger
	MaxConcurrent int
}

// RehydrationReport summarizes a StartAll run
type RehydrationReport struct {
	Total   int
	Started int
	Failed  int
	Errors  map[string]error // masked phone -> error
}

// NewPool creates an empty connection pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.GetDefaultMetrics()
	}

	return &Pool{
		conns:         make(map[string]*domain.PooledConnection),
		order:         make([]string, 0),
		locks:         utils.NewKeyedMutex(),
		factory:       cfg.Factory,
		store:         cfg.Store,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger.With().Str("component", "connection_pool").Logger(),
		maxConcurrent: cfg.MaxConcurrent,
	}
}

// Start builds a handle from cred, connects it and pools it
func (p *Pool) Start(ctx context.Context, cred domain.AccountCredential) (*domain.PooledConnection, error) {
	key := cred.SessionID.String()
	if key == "" {
		return nil, phone.ErrEmptyPhone
	}

	unlock := p.locks.Lock(key)
	defer unlock()

	if _, ok := p.lookup(key); ok {
		return nil, domain.ErrAlreadyPooled
	}

	pc, err := p.connect(ctx, cred)
	p.metrics.RecordPoolStart(err)
	if err != nil {
		p.logger.Warn().Err(err).Str("phone", utils.MaskPhoneNumber(key)).Msg("failed to start connection")
		return nil, err
	}

	p.insert(key, pc)

	p.logger.Info().
		Str("phone", utils.MaskPhoneNumber(key)).
		Str("state", pc.State().String()).
		Msg("connection pooled")

	return pc, nil
}

func (p *Pool) connect(ctx context.Context, cred domain.AccountCredential) (*domain.PooledConnection, error) {
	handle, err := p.factory(cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectFailed, err)
	}

	pc := domain.NewPooledConnection(handle, domain.StateConnecting)
	if err := handle.Connect(ctx); err != nil {
		pc.SetState(domain.StateDisconnected)
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectFailed, err)
	}
	pc.SetState(domain.StateConnected)

	authorized, err := handle.IsAuthorized(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Str("phone", utils.MaskPhoneNumber(cred.SessionID.String())).Msg("failed to check authorization status")
	} else if authorized {
		pc.SetState(domain.StateAuthorized)
	}

	return pc, nil
}

// Register pools a handle that the caller already connected and signed in
func (p *Pool) Register(ctx context.Context, conn domain.Connection) (*domain.PooledConnection, error) {
	if conn == nil {
		return nil, fmt.Errorf("cannot register nil connection")
	}
	key := conn.Phone().String()
	if key == "" {
		return nil, phone.ErrEmptyPhone
	}

	unlock := p.locks.Lock(key)
	defer unlock()

	if _, ok := p.lookup(key); ok {
		return nil, domain.ErrAlreadyPooled
	}

	pc := domain.NewPooledConnection(conn, domain.StateAuthorized)
	p.insert(key, pc)

	p.logger.Info().Str("phone", utils.MaskPhoneNumber(key)).Msg("authorized connection registered")
	return pc, nil
}

// Get returns the pooled connection for ph
func (p *Pool) Get(ph phone.Number) (*domain.PooledConnection, error) {
	pc, ok := p.lookup(ph.String())
	if !ok {
		return nil, domain.ErrNotPooled
	}
	return pc, nil
}

// All returns a snapshot of every pooled connection
func (p *Pool) All() []*domain.PooledConnection {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*domain.PooledConnection, 0, len(p.order))
	for _, key := range p.order {
		out = append(out, p.conns[key])
	}
	return out
}

// Close detaches the subscription, disconnects and removes the entry.
// The entry is removed even when the disconnect fails.
func (p *Pool) Close(ctx context.Context, ph phone.Number) error {
	key := ph.String()

	unlock := p.locks.Lock(key)
	defer unlock()

	pc, ok := p.remove(key)
	if !ok {
		return nil
	}

	pc.Detach()
	pc.SetState(domain.StateDisconnected)

	if err := pc.Handle().Disconnect(ctx); err != nil {
		p.metrics.RecordPoolCloseError()
		p.logger.Warn().Err(err).Str("phone", utils.MaskPhoneNumber(key)).Msg("disconnect failed")
		return fmt.Errorf("disconnect %s: %w", utils.MaskPhoneNumber(key), err)
	}

	p.logger.Info().Str("phone", utils.MaskPhoneNumber(key)).Msg("connection closed")
	return nil
}

// CloseAll closes every entry, continuing through failures
func (p *Pool) CloseAll(ctx context.Context) error {
	var errs []error
	for _, pc := range p.All() {
		if err := p.Close(ctx, pc.Phone()); err != nil {
			errs = append(errs, err)
		}
	}

	p.logger.Info().Int("failed", len(errs)).Msg("connection pool drained")
	return errors.Join(errs...)
}

// StartAll rehydrates the pool from every stored credential. Accounts
// are connected in parallel, bounded by maxConcurrent; failures are
// reported, not fatal.
func (p *Pool) StartAll(ctx context.Context) (*RehydrationReport, error) {
	if p.store == nil {
		return nil, fmt.Errorf("session store is not configured")
	}

	creds, err := p.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	report := &RehydrationReport{
		Total:  len(creds),
		Errors: make(map[string]error),
	}
	if len(creds) == 0 {
		p.logger.Warn().Msg("no stored accounts to rehydrate")
		return report, nil
	}

	var (
		wg        sync.WaitGroup
		reportMu  sync.Mutex
		semaphore = make(chan struct{}, p.maxConcurrent)
	)

	fail := func(masked string, err error) {
		reportMu.Lock()
		report.Errors[masked] = err
		report.Failed++
		reportMu.Unlock()
	}

	for _, cred := range creds {
		wg.Add(1)
		go func(cred domain.AccountCredential) {
			defer wg.Done()
			masked := utils.MaskPhoneNumber(cred.SessionID.String())

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				fail(masked, ctx.Err())
				return
			}

			if _, err := p.Start(ctx, cred); err != nil {
				fail(masked, err)
				return
			}

			reportMu.Lock()
			report.Started++
			reportMu.Unlock()
		}(cred)
	}
	wg.Wait()

	p.logger.Info().
		Int("total", report.Total).
		Int("started", report.Started).
		Int("failed", report.Failed).
		Msg("connection pool rehydrated")

	return report, nil
}

// Len returns the number of pooled connections
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

func (p *Pool) lookup(key string) (*domain.PooledConnection, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pc, ok := p.conns[key]
	return pc, ok
}

func (p *Pool) insert(key string, pc *domain.PooledConnection) {
	p.mu.Lock()
	p.conns[key] = pc
	p.order = append(p.order, key)
	n := len(p.conns)
	p.mu.Unlock()

	p.metrics.SetPooledConnections(n)
}

func (p *Pool) remove(key string) (*domain.PooledConnection, bool) {
	p.mu.Lock()
	pc, ok := p.conns[key]
	if ok {
		delete(p.conns, key)
		for i, k := range p.order {
			if k == key {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
	n := len(p.conns)
	p.mu.Unlock()

	if ok {
		p.metrics.SetPooledConnections(n)
	}
	return pc, ok
}

var _ domain.ConnectionPool = (*Pool)(nil)
