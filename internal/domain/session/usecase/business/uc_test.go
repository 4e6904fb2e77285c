package business

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/NewsFlow/services/session-service/config"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/mocks"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	sessionerrors "github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/errors"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/repository/memory"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/metrics"
	"github.com/Conte777/NewsFlow/services/session-service/internal/infrastructure/telegram"
)

const testPhone = "79991234567"

type fixture struct {
	uc         *UseCase
	store      *mocks.SessionStore
	factory    *mocks.Factory
	pool       *telegram.Pool
	challenges *memory.ChallengeStore
	phone      phone.Number
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := mocks.NewSessionStore()
	factory := mocks.NewFactory()
	m := metrics.GetDefaultMetrics()
	pool := telegram.NewPool(telegram.PoolConfig{
		Factory: factory.Build,
		Store:   store,
		Metrics: m,
		Logger:  zerolog.Nop(),
	})
	challenges := memory.NewChallengeStore(10 * time.Minute)
	cfg := &config.TelegramConfig{ChallengeTTL: 5 * time.Minute, ConnectTimeout: time.Second}

	return &fixture{
		uc:         NewUseCase(store, pool, factory.Build, challenges, cfg, zerolog.Nop(), m),
		store:      store,
		factory:    factory,
		pool:       pool,
		challenges: challenges,
		phone:      phone.MustNew(testPhone),
	}
}

func (f *fixture) stored(t *testing.T) bool {
	t.Helper()
	_, ok, err := f.store.Get(context.Background(), f.phone)
	require.NoError(t, err)
	return ok
}

func TestCreateThenConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hash, err := f.uc.CreateSession(ctx, 1, "h", "+7 (999) 123-45-67")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.True(t, f.stored(t))

	conn := f.factory.Conn(f.phone)
	assert.False(t, conn.IsConnected(), "create must leave the handle disconnected")

	profile, err := f.uc.ConfirmSession(ctx, "12345", hash, testPhone, "")
	require.NoError(t, err)
	assert.Equal(t, testPhone, profile.Phone)

	pc, err := f.pool.Get(f.phone)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthorized, pc.State())
	assert.Equal(t, 0, f.challenges.Len())
}

func TestConfirm_MismatchedHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	_, err = f.uc.ConfirmSession(ctx, "12345", "not-the-token", testPhone, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = f.pool.Get(f.phone)
	assert.ErrorIs(t, err, domain.ErrNotPooled)
	assert.False(t, f.stored(t))
}

func TestConfirm_WrongCodeRemovesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = f.uc.ConfirmSession(ctx, "00000", token, testPhone, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	assert.False(t, f.stored(t))
	assert.False(t, f.factory.Conn(f.phone).IsConnected())
}

func TestConfirm_ChallengeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	_, err = f.uc.ConfirmSession(ctx, "00000", token, testPhone, "")
	require.ErrorIs(t, err, domain.ErrInvalidCode)

	// The account is gone, so a replay cannot reach the provider
	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestConfirm_PasswordRequiredThenPassword(t *testing.T) {
	f := newFixture(t)
	f.factory.Setup = func(c *mocks.Connection) { c.Password = "secret" }
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	require.ErrorIs(t, err, domain.ErrPasswordRequired)
	assert.True(t, f.stored(t), "a 2FA prompt must keep the session")
	assert.False(t, f.factory.Conn(f.phone).IsConnected())

	profile, err := f.uc.ConfirmSession(ctx, "12345", token, testPhone, "secret")
	require.NoError(t, err)
	assert.NotNil(t, profile)

	conn := f.factory.Conn(f.phone)
	assert.Equal(t, 1, conn.SignInCalls)
	assert.Equal(t, 1, conn.PasswordCalls)

	_, err = f.pool.Get(f.phone)
	assert.NoError(t, err)
}

func TestConfirm_PasswordSuppliedUpFront(t *testing.T) {
	f := newFixture(t)
	f.factory.Setup = func(c *mocks.Connection) { c.Password = "secret" }
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "secret")
	require.NoError(t, err)
}

func TestConfirm_WrongPassword(t *testing.T) {
	f := newFixture(t)
	f.factory.Setup = func(c *mocks.Connection) { c.Password = "secret" }
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
	assert.False(t, f.stored(t))
}

func TestConfirm_CodeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.uc.now = func() time.Time { return now }

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	now = now.Add(6 * time.Minute)
	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	assert.ErrorIs(t, err, domain.ErrCodeExpired)
	assert.False(t, f.stored(t))
}

func TestConfirm_FloodWaitRemovesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	f.factory.Conn(f.phone).SignInErr = domain.NewFloodWait(10)

	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	var fw *domain.FloodWaitError
	require.True(t, errors.As(err, &fw))
	assert.Equal(t, 10, fw.Seconds)
	assert.False(t, f.stored(t))
}

func TestConfirm_CleanupFailureKeepsOriginalError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	f.store.DeleteErr = errors.New("database is down")

	_, err = f.uc.ConfirmSession(ctx, "00000", token, testPhone, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestConfirm_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.ConfirmSession(context.Background(), "12345", "hash", testPhone, "")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestConfirm_AlreadyPooled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)
	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	require.NoError(t, err)

	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyAuthorized)
	assert.True(t, f.stored(t), "a live account must survive a repeated confirm")
}

func TestConfirm_AfterRehydration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)

	// a restart while the code is pending pools the unsigned session
	report, err := f.pool.StartAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Started)
	pc, err := f.pool.Get(f.phone)
	require.NoError(t, err)
	require.Equal(t, domain.StateConnected, pc.State())

	profile, err := f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	require.NoError(t, err)
	assert.Equal(t, testPhone, profile.Phone)

	pc, err = f.pool.Get(f.phone)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthorized, pc.State())
	assert.True(t, f.stored(t))
}

func TestCreate_ReleasesUnauthorizedPooledConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, f.phone, 1, "h"))

	_, err := f.pool.Start(ctx, domain.AccountCredential{SessionID: f.phone, APIID: 1, APIHash: "h"})
	require.NoError(t, err)

	hash, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	_, err = f.pool.Get(f.phone)
	assert.ErrorIs(t, err, domain.ErrNotPooled)
	assert.False(t, f.factory.Conn(f.phone).IsConnected())
}

func TestConfirm_ConcurrentDuplicate(t *testing.T) {
	f := newFixture(t)
	f.factory.Setup = func(c *mocks.Connection) { c.SignInDelay = 100 * time.Millisecond }
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)
	conn := f.factory.Conn(f.phone)

	first := make(chan error, 1)
	go func() {
		_, err := f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
		first <- err
	}()
	require.Eventually(t, func() bool { return conn.SignIns() == 1 }, time.Second, time.Millisecond)

	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyAuthorized)

	select {
	case err := <-first:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("first confirm did not finish")
	}

	assert.True(t, f.stored(t), "the duplicate must not remove the session")
	assert.Equal(t, 0, conn.LogOuts())
	pc, err := f.pool.Get(f.phone)
	require.NoError(t, err)
	assert.Equal(t, domain.StateAuthorized, pc.State())
}

func TestCreate_FloodWait(t *testing.T) {
	f := newFixture(t)
	f.factory.Setup = func(c *mocks.Connection) { c.SendCodeErr = domain.NewFloodWait(30) }

	_, err := f.uc.CreateSession(context.Background(), 1, "h", testPhone)

	var fw *domain.FloodWaitError
	require.True(t, errors.As(err, &fw))
	assert.Equal(t, 30, fw.Seconds)
	assert.False(t, f.factory.Conn(f.phone).IsConnected())
	assert.Equal(t, 0, f.challenges.Len())
}

func TestCreate_AlreadyAuthorized(t *testing.T) {
	f := newFixture(t)
	f.factory.Setup = func(c *mocks.Connection) { c.Authorized = true }

	_, err := f.uc.CreateSession(context.Background(), 1, "h", testPhone)
	assert.ErrorIs(t, err, domain.ErrAlreadyAuthorized)
	assert.False(t, f.factory.Conn(f.phone).IsConnected())
}

func TestCreate_ConnectFailed(t *testing.T) {
	f := newFixture(t)
	f.factory.Setup = func(c *mocks.Connection) { c.ConnectErr = errors.New("dial tcp: refused") }

	_, err := f.uc.CreateSession(context.Background(), 1, "h", testPhone)
	assert.ErrorIs(t, err, domain.ErrConnectFailed)
}

func TestCreate_InvalidPhone(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateSession(context.Background(), 1, "h", "12345")
	assert.ErrorIs(t, err, phone.ErrTooShort)
	assert.Equal(t, 0, f.factory.Built)
}

func TestCreate_MissingAPICredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateSession(context.Background(), 0, "", testPhone)
	assert.ErrorIs(t, err, sessionerrors.ErrMissingAPICredentials)
	assert.False(t, f.stored(t))
}

func TestCreate_DefaultAPICredentials(t *testing.T) {
	f := newFixture(t)
	f.uc.cfg.APIID = 42
	f.uc.cfg.APIHash = "default"

	_, err := f.uc.CreateSession(context.Background(), 0, "", testPhone)
	require.NoError(t, err)

	cred, ok, err := f.store.Get(context.Background(), f.phone)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, cred.APIID)
}

func TestCreate_ReusesCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, f.phone, 5, "stored"))

	_, err := f.uc.CreateSession(ctx, 1, "other", testPhone)
	require.NoError(t, err)

	cred, _, _ := f.store.Get(ctx, f.phone)
	assert.Equal(t, 5, cred.APIID)
	assert.Equal(t, "stored", cred.APIHash)
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.uc.CreateSession(ctx, 1, "h", testPhone)
	require.NoError(t, err)
	_, err = f.uc.ConfirmSession(ctx, "12345", token, testPhone, "")
	require.NoError(t, err)

	require.NoError(t, f.uc.DeleteSession(ctx, testPhone))

	conn := f.factory.Conn(f.phone)
	assert.Equal(t, 1, conn.LogOutCalls)
	assert.False(t, conn.IsConnected())
	_, err = f.pool.Get(f.phone)
	assert.ErrorIs(t, err, domain.ErrNotPooled)
	assert.False(t, f.stored(t))
}

func TestDeleteSession_LogOutFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, f.phone, 1, "h"))
	f.factory.Conn(f.phone).LogOutErr = errors.New("AUTH_KEY_UNREGISTERED")

	require.NoError(t, f.uc.DeleteSession(ctx, testPhone))
	assert.False(t, f.stored(t))
}

func TestDeleteSession_ConnectFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, f.phone, 1, "h"))
	f.factory.Conn(f.phone).ConnectErr = errors.New("network unreachable")

	require.NoError(t, f.uc.DeleteSession(ctx, testPhone))
	assert.False(t, f.stored(t))
}

func TestDeleteSession_StoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Add(ctx, f.phone, 1, "h"))
	f.store.DeleteErr = errors.New("database is down")

	assert.Error(t, f.uc.DeleteSession(ctx, testPhone))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", outcome(nil))
	assert.Equal(t, "flood_wait", outcome(domain.NewFloodWait(1)))
	assert.Equal(t, "password_required", outcome(domain.ErrPasswordRequired))
	assert.Equal(t, "invalid_code", outcome(domain.ErrInvalidCode))
	assert.Equal(t, "invalid_phone", outcome(phone.ErrWrongFormat))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
