package telegram

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/updates"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	"github.com/Conte777/NewsFlow/services/session-service/internal/utils"
)

const dialogsPageSize = 100

// MTProtoConnection implements domain.Connection using gotd/td
type MTProtoConnection struct {
	phone   phone.Number
	apiID   int
	apiHash string
	storage session.Storage

	// Connection state
	client        *telegram.Client
	api           *tg.Client
	connected     bool
	disconnecting bool
	mu            sync.RWMutex
	cancelFunc    context.CancelFunc
	runDone       chan struct{}

	dispatcher tg.UpdateDispatcher
	// gaps recovers missed updates when an updates state storage is set
	gaps     *updates.Manager
	signedIn chan int64

	handlersMu  sync.RWMutex
	handlers    map[uint64]func(ctx context.Context, msg domain.Message)
	nextHandler uint64

	// Input peers learned from the dialog list, keyed by entity reference
	peersMu sync.RWMutex
	peers   map[string]tg.InputPeerClass

	downloader  *downloader.Downloader
	rateLimiter *rate.Limiter
	logger      zerolog.Logger
}

// MTProtoConfig holds configuration for MTProtoConnection
type MTProtoConfig struct {
	Credential domain.AccountCredential
	Storage    session.Storage
	Logger     zerolog.Logger

	// UpdatesState enables gap recovery of missed updates across restarts
	UpdatesState updates.StateStorage

	// RateLimit is the sustained number of API calls per second
	RateLimit float64
	RateBurst int
}

// NewMTProtoConnection creates an unconnected handle
func NewMTProtoConnection(cfg MTProtoConfig) (*MTProtoConnection, error) {
	if cfg.Credential.APIID == 0 {
		return nil, fmt.Errorf("APIID is required")
	}
	if cfg.Credential.APIHash == "" {
		return nil, fmt.Errorf("APIHash is required")
	}
	if cfg.Credential.SessionID.IsZero() {
		return nil, phone.ErrEmptyPhone
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("session storage is required")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}

	c := &MTProtoConnection{
		phone:       cfg.Credential.SessionID,
		apiID:       cfg.Credential.APIID,
		apiHash:     cfg.Credential.APIHash,
		storage:     cfg.Storage,
		dispatcher:  tg.NewUpdateDispatcher(),
		signedIn:    make(chan int64, 1),
		handlers:    make(map[uint64]func(ctx context.Context, msg domain.Message)),
		peers:       make(map[string]tg.InputPeerClass),
		downloader:  downloader.NewDownloader(),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger: cfg.Logger.With().
			Str("component", "mtproto_connection").
			Str("phone", utils.MaskPhoneNumber(cfg.Credential.SessionID.String())).
			Logger(),
	}

	c.dispatcher.OnNewMessage(func(ctx context.Context, _ tg.Entities, u *tg.UpdateNewMessage) error {
		c.dispatch(ctx, u.Message)
		return nil
	})
	c.dispatcher.OnNewChannelMessage(func(ctx context.Context, _ tg.Entities, u *tg.UpdateNewChannelMessage) error {
		c.dispatch(ctx, u.Message)
		return nil
	})

	if cfg.UpdatesState != nil {
		c.gaps = updates.New(updates.Config{
			Handler: c.dispatcher,
			Storage: cfg.UpdatesState,
		})
	}

	return c, nil
}

func (c *MTProtoConnection) updateHandler() telegram.UpdateHandler {
	if c.gaps != nil {
		return c.gaps
	}
	return c.dispatcher
}

// Phone returns the account key
func (c *MTProtoConnection) Phone() phone.Number {
	return c.phone
}

// Connect starts the MTProto client and returns once the transport is
// ready. The client keeps running after ctx is done; stop it with Disconnect.
func (c *MTProtoConnection) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		c.logger.Debug().Msg("already connected")
		return nil
	}
	if c.disconnecting {
		c.mu.Unlock()
		return fmt.Errorf("disconnect in progress, cannot connect")
	}
	defer c.mu.Unlock()

	c.logger.Info().Msg("connecting to Telegram")

	client := telegram.NewClient(c.apiID, c.apiHash, telegram.Options{
		SessionStorage: c.storage,
		UpdateHandler:  c.updateHandler(),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	readyChan := make(chan struct{})
	errChan := make(chan error, 1)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		err := client.Run(runCtx, func(ctx context.Context) error {
			return c.run(ctx, client, readyChan)
		})
		select {
		case errChan <- err:
		default:
		}
	}()

	var connErr error
	select {
	case <-readyChan:
	case err := <-errChan:
		connErr = err
		if connErr == nil {
			connErr = fmt.Errorf("client stopped before becoming ready")
		}
	case <-ctx.Done():
		connErr = ctx.Err()
	}

	if connErr != nil {
		cancel()
		<-runDone
		c.logger.Warn().Err(connErr).Msg("failed to connect")
		return fmt.Errorf("failed to connect: %w", mapRPCError(connErr))
	}

	c.client = client
	c.api = client.API()
	c.cancelFunc = cancel
	c.runDone = runDone
	c.connected = true
	c.logger.Info().Msg("connected to Telegram")
	return nil
}

// run signals readiness and then, when gap recovery is enabled, feeds the
// updates manager once the account is known to be signed in
func (c *MTProtoConnection) run(ctx context.Context, client *telegram.Client, ready chan struct{}) error {
	if c.gaps == nil {
		close(ready)
		<-ctx.Done()
		return ctx.Err()
	}

	status, err := client.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to check auth status: %w", err)
	}
	close(ready)

	var userID int64
	if status.Authorized && status.User != nil {
		userID = status.User.ID
	} else {
		select {
		case userID = <-c.signedIn:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.logger.Debug().Int64("user_id", userID).Msg("starting updates gap recovery")
	return c.gaps.Run(ctx, client.API(), userID, updates.AuthOptions{})
}

// markSignedIn starts gap recovery for a session that signed in after Connect
func (c *MTProtoConnection) markSignedIn(userID int64) {
	select {
	case c.signedIn <- userID:
	default:
	}
}

// Disconnect stops the client and waits for it to shut down or for ctx
// to expire. Repeated calls are no-ops.
func (c *MTProtoConnection) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.disconnecting {
		c.mu.Unlock()
		c.logger.Debug().Msg("disconnect already in progress")
		return nil
	}
	if !c.connected {
		c.mu.Unlock()
		return nil
	}

	c.logger.Info().Msg("disconnecting from Telegram")
	c.disconnecting = true
	cancelFunc := c.cancelFunc
	runDone := c.runDone
	c.mu.Unlock()

	var err error
	if cancelFunc != nil {
		cancelFunc()
		select {
		case <-runDone:
		case <-ctx.Done():
			err = fmt.Errorf("timed out waiting for client shutdown: %w", ctx.Err())
			c.logger.Warn().Msg("disconnect timeout reached while waiting for client shutdown")
		}
	}

	c.mu.Lock()
	c.client = nil
	c.api = nil
	c.connected = false
	c.cancelFunc = nil
	c.runDone = nil
	c.disconnecting = false
	c.mu.Unlock()

	c.logger.Info().Msg("disconnected from Telegram")
	return err
}

// IsConnected reports whether the client is running
func (c *MTProtoConnection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// ready returns the running client or domain.ErrNotConnected
func (c *MTProtoConnection) ready(ctx context.Context) (*telegram.Client, error) {
	c.mu.RLock()
	client := c.client
	connected := c.connected
	c.mu.RUnlock()

	if !connected || client == nil {
		return nil, domain.ErrNotConnected
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return client, nil
}

// rpc returns the raw API client after rate limiting
func (c *MTProtoConnection) rpc(ctx context.Context) (*tg.Client, error) {
	if _, err := c.ready(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return nil, domain.ErrNotConnected
	}
	return c.api, nil
}

// Self returns the signed-in account profile
func (c *MTProtoConnection) Self(ctx context.Context) (*domain.Profile, error) {
	client, err := c.ready(ctx)
	if err != nil {
		return nil, err
	}

	user, err := client.Self(ctx)
	if err != nil {
		return nil, mapRPCError(err)
	}
	return profileFromUser(user), nil
}

// Dialogs pages through the whole chat list and refreshes the peer cache
func (c *MTProtoConnection) Dialogs(ctx context.Context) ([]domain.Dialog, error) {
	req := &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      dialogsPageSize,
	}

	var out []domain.Dialog
	for {
		api, err := c.rpc(ctx)
		if err != nil {
			return nil, err
		}

		res, err := api.MessagesGetDialogs(ctx, req)
		if err != nil {
			c.logger.Error().Err(err).Msg("failed to get dialogs")
			return nil, mapRPCError(err)
		}

		var (
			dialogs  []tg.DialogClass
			messages []tg.MessageClass
			users    []tg.UserClass
			chats    []tg.ChatClass
			total    int
			complete bool
		)
		switch r := res.(type) {
		case *tg.MessagesDialogs:
			dialogs, messages, users, chats = r.Dialogs, r.Messages, r.Users, r.Chats
			complete = true
		case *tg.MessagesDialogsSlice:
			dialogs, messages, users, chats = r.Dialogs, r.Messages, r.Users, r.Chats
			total = r.Count
		default:
			complete = true
		}

		idx := newPeerIndex(users, chats)
		var (
			lastPeer tg.InputPeerClass
			lastTop  int
		)
		for _, dc := range dialogs {
			d, ok := dc.(*tg.Dialog)
			if !ok {
				continue
			}
			dialog, input, ok := idx.dialog(d)
			if !ok {
				continue
			}
			c.rememberPeer(dialog, input)
			out = append(out, dialog)
			lastPeer, lastTop = input, d.TopMessage
		}

		if complete || len(dialogs) < dialogsPageSize || len(out) >= total || lastPeer == nil {
			break
		}
		req.OffsetPeer = lastPeer
		req.OffsetID = lastTop
		req.OffsetDate = messageDate(messages, lastTop)
	}

	c.logger.Debug().Int("dialogs_count", len(out)).Msg("fetched dialogs")
	return out, nil
}

// Messages returns up to limit messages of entity older than offsetID
func (c *MTProtoConnection) Messages(ctx context.Context, entity string, offsetID, limit int) ([]domain.Message, error) {
	peer, err := c.resolvePeer(ctx, entity)
	if err != nil {
		return nil, err
	}

	api, err := c.rpc(ctx)
	if err != nil {
		return nil, err
	}

	res, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     peer,
		OffsetID: offsetID,
		Limit:    limit,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("entity", entity).Msg("failed to get messages")
		return nil, mapRPCError(err)
	}

	var raw []tg.MessageClass
	switch m := res.(type) {
	case *tg.MessagesMessages:
		raw = m.Messages
	case *tg.MessagesMessagesSlice:
		raw = m.Messages
	case *tg.MessagesChannelMessages:
		raw = m.Messages
	}

	out := make([]domain.Message, 0, len(raw))
	for _, mc := range raw {
		if msg, ok := mc.(*tg.Message); ok {
			out = append(out, convertMessage(msg))
		}
	}

	c.logger.Debug().Str("entity", entity).Int("messages_count", len(out)).Msg("fetched messages")
	return out, nil
}

// Download fetches a photo, routing the request to the datacenter that
// stores it
func (c *MTProtoConnection) Download(ctx context.Context, photo domain.PhotoDescriptor) ([]byte, error) {
	client, err := c.ready(ctx)
	if err != nil {
		return nil, err
	}

	api := client.API()
	if photo.DCID != 0 && photo.DCID != client.Config().ThisDC {
		inv, err := client.DC(ctx, photo.DCID, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to dc %d: %w", photo.DCID, mapRPCError(err))
		}
		defer func() { _ = inv.Close() }()
		api = tg.NewClient(inv)
	}

	thumb := photo.ThumbSize
	if thumb == "" {
		thumb = defaultThumbSize
	}

	var buf bytes.Buffer
	_, err = c.downloader.Download(api, &tg.InputPhotoFileLocation{
		ID:            photo.ID,
		AccessHash:    photo.AccessHash,
		FileReference: photo.FileReference,
		ThumbSize:     thumb,
	}).Stream(ctx, &buf)
	if err != nil {
		c.logger.Error().Err(err).Int64("photo_id", photo.ID).Msg("failed to download photo")
		return nil, mapRPCError(err)
	}

	return buf.Bytes(), nil
}

// OnNewMessage registers fn for inbound messages
func (c *MTProtoConnection) OnNewMessage(fn func(ctx context.Context, msg domain.Message)) domain.Subscription {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = fn

	return &handlerSubscription{conn: c, id: id}
}

func (c *MTProtoConnection) dispatch(ctx context.Context, mc tg.MessageClass) {
	msg, ok := mc.(*tg.Message)
	if !ok {
		return
	}
	converted := convertMessage(msg)

	c.handlersMu.RLock()
	handlers := make([]func(ctx context.Context, msg domain.Message), 0, len(c.handlers))
	for _, h := range c.handlers {
		handlers = append(handlers, h)
	}
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		h(ctx, converted)
	}
}

type handlerSubscription struct {
	conn *MTProtoConnection
	id   uint64
	once sync.Once
}

func (s *handlerSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.conn.handlersMu.Lock()
		delete(s.conn.handlers, s.id)
		s.conn.handlersMu.Unlock()
	})
}

func (c *MTProtoConnection) rememberPeer(d domain.Dialog, input tg.InputPeerClass) {
	c.peersMu.Lock()
	defer c.peersMu.Unlock()

	for _, key := range d.Keys() {
		c.peers[key] = input
	}
}

func (c *MTProtoConnection) lookupPeer(key string) (tg.InputPeerClass, bool) {
	c.peersMu.RLock()
	defer c.peersMu.RUnlock()
	peer, ok := c.peers[key]
	return peer, ok
}

// resolvePeer maps an entity reference (username, "@username", numeric id
// or "<type>:<id>") to an input peer. Unknown references refresh the
// dialog list once before failing with domain.ErrInvalidPeer.
func (c *MTProtoConnection) resolvePeer(ctx context.Context, entity string) (tg.InputPeerClass, error) {
	key := domain.PeerKey(entity)
	switch key {
	case "":
		return nil, domain.ErrInvalidPeer
	case "me", "self":
		return &tg.InputPeerSelf{}, nil
	}

	if peer, ok := c.lookupPeer(key); ok {
		return peer, nil
	}
	if _, err := c.Dialogs(ctx); err != nil {
		return nil, err
	}
	if peer, ok := c.lookupPeer(key); ok {
		return peer, nil
	}
	return nil, domain.ErrInvalidPeer
}

func messageDate(messages []tg.MessageClass, id int) int {
	for _, mc := range messages {
		switch m := mc.(type) {
		case *tg.Message:
			if m.ID == id {
				return m.Date
			}
		case *tg.MessageService:
			if m.ID == id {
				return m.Date
			}
		}
	}
	return 0
}

var _ domain.Connection = (*MTProtoConnection)(nil)
