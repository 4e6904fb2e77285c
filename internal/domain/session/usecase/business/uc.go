package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/entities"
	sessionerrors "github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/errors"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/session-service/internal/utils"
)

const (
	opCreate  = "create"
	opConfirm = "confirm"
	opDelete  = "delete"

	// disconnectTimeout bounds teardown of short-lived handles
	disconnectTimeout = 10 * time.Second
)

// UseCase implements the session lifecycle: a code request, its
// redemption and the removal of an account
type UseCase struct {
	store      domain.SessionStore
	pool       domain.ConnectionPool
	factory    domain.ConnectionFactory
	challenges deps.ChallengeStore
	cfg        *config.TelegramConfig
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	locks      *utils.KeyedMutex
	now        func() time.Time
}

// NewUseCase creates a new session lifecycle use case
func NewUseCase(
	store domain.SessionStore,
	pool domain.ConnectionPool,
	factory domain.ConnectionFactory,
	challenges deps.ChallengeStore,
	cfg *config.TelegramConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UseCase {
	return &UseCase{
		store:      store,
		pool:       pool,
		factory:    factory,
		challenges: challenges,
		cfg:        cfg,
		logger:     logger.With().Str("component", "session_lifecycle").Logger(),
		metrics:    m,
		locks:      utils.NewKeyedMutex(),
		now:        time.Now,
	}
}

// CreateSession registers the account if needed and requests a
// verification code. The returned phone_code_hash must accompany the code
// in ConfirmSession. The handle built here is always disconnected before
// returning.
func (u *UseCase) CreateSession(ctx context.Context, apiID int, apiHash, rawPhone string) (hash string, err error) {
	defer func() { u.record(opCreate, err) }()

	p, err := phone.New(rawPhone)
	if err != nil {
		return "", err
	}
	log := u.logger.With().Str("phone", utils.MaskPhoneNumber(p.String())).Logger()

	unlock := u.locks.Lock(p.String())
	defer unlock()

	if err := u.releaseUnauthorized(ctx, p); err != nil {
		return "", err
	}

	cred, err := u.credential(ctx, p, apiID, apiHash)
	if err != nil {
		return "", err
	}

	conn, err := u.connect(ctx, cred)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect for code request")
		return "", err
	}
	defer u.disconnect(ctx, conn)

	authorized, err := conn.IsAuthorized(ctx)
	if err != nil {
		return "", err
	}
	if authorized {
		log.Info().Msg("Session is already authorized")
		return "", domain.ErrAlreadyAuthorized
	}

	hash, err = conn.SendCode(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to request verification code")
		return "", err
	}

	if err := u.challenges.Put(ctx, entities.AuthChallenge{
		Phone:         p,
		PhoneCodeHash: hash,
		State:         entities.ChallengeCodeSent,
		IssuedAt:      u.now(),
	}); err != nil {
		return "", fmt.Errorf("failed to store challenge: %w", err)
	}

	log.Info().Msg("Verification code sent")
	return hash, nil
}

// credential returns the stored credential or registers a new one
func (u *UseCase) credential(ctx context.Context, p phone.Number, apiID int, apiHash string) (domain.AccountCredential, error) {
	cred, ok, err := u.store.Get(ctx, p)
	if err != nil {
		return domain.AccountCredential{}, err
	}
	if ok {
		return cred, nil
	}

	if apiID == 0 || apiHash == "" {
		apiID, apiHash = u.cfg.APIID, u.cfg.APIHash
	}
	if apiID == 0 || apiHash == "" {
		return domain.AccountCredential{}, sessionerrors.ErrMissingAPICredentials
	}

	if err := u.store.Add(ctx, p, apiID, apiHash); err != nil {
		return domain.AccountCredential{}, err
	}
	u.logger.Info().Str("phone", utils.MaskPhoneNumber(p.String())).Msg("Account registered")

	return domain.AccountCredential{SessionID: p, APIID: apiID, APIHash: apiHash}, nil
}

// ConfirmSession redeems the verification code. When the account has 2FA
// and no password is given it returns domain.ErrPasswordRequired and keeps
// the challenge so the call can be repeated with the password. Every other
// failure deletes the half-registered session.
func (u *UseCase) ConfirmSession(ctx context.Context, code, phoneCodeHash, rawPhone, password string) (profile *domain.Profile, err error) {
	defer func() { u.record(opConfirm, err) }()

	p, err := phone.New(rawPhone)
	if err != nil {
		return nil, err
	}
	log := u.logger.With().Str("phone", utils.MaskPhoneNumber(p.String())).Logger()

	unlock := u.locks.Lock(p.String())
	defer unlock()

	cred, ok, err := u.store.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if err := u.releaseUnauthorized(ctx, p); err != nil {
		return nil, err
	}

	// From here on every failure except a 2FA prompt removes the session
	var conn domain.Connection
	defer func() {
		if err == nil || errors.Is(err, domain.ErrPasswordRequired) {
			return
		}
		log.Warn().Err(err).Msg("Session confirmation failed, removing session")
		cleanupCtx := context.WithoutCancel(ctx)
		if cleanupErr := u.remove(cleanupCtx, p, conn); cleanupErr != nil {
			log.Error().Err(cleanupErr).Msg("Failed to clean up session")
		}
		u.disconnect(cleanupCtx, conn)
	}()

	challenge, err := u.redeem(ctx, p, phoneCodeHash)
	if err != nil {
		return nil, err
	}

	conn, err = u.connect(ctx, cred)
	if err != nil {
		return nil, err
	}

	profile, err = u.signIn(ctx, conn, challenge, code, password)
	if errors.Is(err, domain.ErrPasswordRequired) {
		u.disconnect(ctx, conn)
		challenge.State = entities.ChallengePasswordRequired
		if putErr := u.challenges.Put(ctx, challenge); putErr != nil {
			return nil, fmt.Errorf("failed to keep challenge: %w", putErr)
		}
		log.Info().Msg("2FA password required")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if _, err = u.pool.Register(ctx, conn); err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", profile.ID).Msg("Session authorized")
	return profile, nil
}

// releaseUnauthorized fails with domain.ErrAlreadyAuthorized when p has a
// signed-in pooled connection. A pooled handle that never signed in, such as
// one rehydrated while a code was pending, is closed so the caller can build
// its own handle on the same session.
func (u *UseCase) releaseUnauthorized(ctx context.Context, p phone.Number) error {
	pc, err := u.pool.Get(p)
	if err != nil {
		return nil
	}
	if pc.State() == domain.StateAuthorized {
		return domain.ErrAlreadyAuthorized
	}

	u.logger.Info().
		Str("phone", utils.MaskPhoneNumber(p.String())).
		Str("state", pc.State().String()).
		Msg("Releasing unauthorized pooled connection")
	if err := u.pool.Close(ctx, p); err != nil {
		u.logger.Warn().Err(err).Str("phone", utils.MaskPhoneNumber(p.String())).Msg("Failed to close pooled connection")
	}
	return nil
}

// redeem consumes the pending challenge and checks it against the token
func (u *UseCase) redeem(ctx context.Context, p phone.Number, phoneCodeHash string) (entities.AuthChallenge, error) {
	challenge, ok, err := u.challenges.Take(ctx, p)
	if err != nil {
		return entities.AuthChallenge{}, err
	}
	if !ok || challenge.PhoneCodeHash != phoneCodeHash {
		return entities.AuthChallenge{}, domain.ErrInvalidCode
	}
	if challenge.Expired(u.now(), u.cfg.ChallengeTTL) {
		return entities.AuthChallenge{}, domain.ErrCodeExpired
	}
	return challenge, nil
}

func (u *UseCase) signIn(ctx context.Context, conn domain.Connection, challenge entities.AuthChallenge, code, password string) (*domain.Profile, error) {
	if challenge.State != entities.ChallengePasswordRequired {
		profile, err := conn.SignIn(ctx, code, challenge.PhoneCodeHash)
		if !errors.Is(err, domain.ErrPasswordRequired) {
			return profile, err
		}
	}

	if password == "" {
		return nil, domain.ErrPasswordRequired
	}
	return conn.CheckPassword(ctx, password)
}

// DeleteSession signs the account out remotely when possible, then closes
// its pooled connection and removes the stored credential. Only the store
// removal can fail the call.
func (u *UseCase) DeleteSession(ctx context.Context, rawPhone string) (err error) {
	defer func() { u.record(opDelete, err) }()

	p, err := phone.New(rawPhone)
	if err != nil {
		return err
	}

	unlock := u.locks.Lock(p.String())
	defer unlock()

	var conn domain.Connection
	if pc, err := u.pool.Get(p); err == nil {
		conn = pc.Handle()
	}
	return u.remove(ctx, p, conn)
}

// remove logs out through conn, or through a fresh handle when conn is nil,
// and then drops every local trace of the account
func (u *UseCase) remove(ctx context.Context, p phone.Number, conn domain.Connection) error {
	log := u.logger.With().Str("phone", utils.MaskPhoneNumber(p.String())).Logger()

	if err := u.logOut(ctx, p, conn); err != nil {
		log.Warn().Err(err).Msg("Remote logout failed")
	}

	if err := u.pool.Close(ctx, p); err != nil {
		log.Warn().Err(err).Msg("Failed to close pooled connection")
	}
	if err := u.challenges.Delete(ctx, p); err != nil {
		log.Warn().Err(err).Msg("Failed to delete challenge")
	}

	if err := u.store.Delete(ctx, p); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	log.Info().Msg("Session deleted")
	return nil
}

func (u *UseCase) logOut(ctx context.Context, p phone.Number, conn domain.Connection) error {
	if conn == nil {
		cred, ok, err := u.store.Get(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		conn, err = u.connect(ctx, cred)
		if err != nil {
			return err
		}
		defer u.disconnect(ctx, conn)
	}

	if !conn.IsConnected() {
		if err := conn.Connect(ctx); err != nil {
			return err
		}
		defer u.disconnect(ctx, conn)
	}

	return conn.LogOut(ctx)
}

// connect builds an unpooled handle and connects it
func (u *UseCase) connect(ctx context.Context, cred domain.AccountCredential) (domain.Connection, error) {
	conn, err := u.factory(cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectFailed, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, u.connectTimeout())
	defer cancel()

	if err := conn.Connect(connectCtx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectFailed, err)
	}
	return conn, nil
}

func (u *UseCase) disconnect(ctx context.Context, conn domain.Connection) {
	if conn == nil {
		return
	}
	disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()

	if err := conn.Disconnect(disconnectCtx); err != nil {
		u.logger.Warn().Err(err).Str("phone", utils.MaskPhoneNumber(conn.Phone().String())).Msg("Disconnect failed")
	}
}

func (u *UseCase) connectTimeout() time.Duration {
	if u.cfg.ConnectTimeout > 0 {
		return u.cfg.ConnectTimeout
	}
	return 30 * time.Second
}

func (u *UseCase) record(operation string, err error) {
	var fw *domain.FloodWaitError
	if errors.As(err, &fw) {
		u.metrics.RecordFloodWait(fw.Seconds)
	}
	u.metrics.RecordLifecycle(operation, outcome(err))
}

// outcome labels err for the lifecycle metric
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrFloodWait):
		return "flood_wait"
	case errors.Is(err, domain.ErrPasswordRequired):
		return "password_required"
	case errors.Is(err, domain.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrCodeExpired):
		return "code_expired"
	case errors.Is(err, domain.ErrInvalidPhone),
		errors.Is(err, phone.ErrEmptyPhone),
		errors.Is(err, phone.ErrTooShort),
		errors.Is(err, phone.ErrWrongFormat):
		return "invalid_phone"
	case errors.Is(err, domain.ErrAlreadyAuthorized):
		return "already_authorized"
	case errors.Is(err, domain.ErrConnectFailed):
		return "connect_failed"
	default:
		return "error"
	}
}

var _ deps.Lifecycle = (*UseCase)(nil)
