package business

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/deps"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/entities"
	accounterrors "github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/errors"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	"github.com/Conte777/NewsFlow/services/session-service/internal/utils"
)

// MaxMessagesLimit is the largest history page fetched in one call
const MaxMessagesLimit = 100

// UseCase routes read-only queries to the pooled connection of an account
type UseCase struct {
	pool     domain.ConnectionPool
	uploader deps.MediaUploader
	logger   zerolog.Logger
}

// NewUseCase creates a new query use case. uploader may be nil, which
// disables MirrorMedia.
func NewUseCase(pool domain.ConnectionPool, uploader deps.MediaUploader, logger zerolog.Logger) *UseCase {
	return &UseCase{
		pool:     pool,
		uploader: uploader,
		logger:   logger.With().Str("component", "query_facade").Logger(),
	}
}

func (u *UseCase) handle(rawPhone string) (domain.Connection, error) {
	p, err := phone.New(rawPhone)
	if err != nil {
		return nil, err
	}
	pc, err := u.pool.Get(p)
	if err != nil {
		return nil, err
	}
	return pc.Handle(), nil
}

// GetAccount returns the profile of a pooled account
func (u *UseCase) GetAccount(ctx context.Context, rawPhone string) (*domain.Profile, error) {
	conn, err := u.handle(rawPhone)
	if err != nil {
		return nil, err
	}
	return conn.Self(ctx)
}

// GetAccounts returns the profile of every pooled account. The first
// failure aborts the call.
func (u *UseCase) GetAccounts(ctx context.Context) ([]domain.Profile, error) {
	pooled := u.pool.All()
	profiles := make([]domain.Profile, 0, len(pooled))

	for _, pc := range pooled {
		profile, err := pc.Handle().Self(ctx)
		if err != nil {
			masked := utils.MaskPhoneNumber(pc.Phone().String())
			u.logger.Error().Err(err).Str("phone", masked).Msg("Failed to get account profile")
			return nil, fmt.Errorf("account %s: %w", masked, err)
		}
		profiles = append(profiles, *profile)
	}
	return profiles, nil
}

// GetDialogs returns the chat list of a pooled account
func (u *UseCase) GetDialogs(ctx context.Context, rawPhone string) ([]domain.Dialog, error) {
	conn, err := u.handle(rawPhone)
	if err != nil {
		return nil, err
	}
	return conn.Dialogs(ctx)
}

// GetDialogByEntity scans the chat list for entity, which is a numeric
// peer id, a typed id such as "channel:42" or a username
func (u *UseCase) GetDialogByEntity(ctx context.Context, rawPhone, entity string) (*domain.Dialog, error) {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return nil, accounterrors.ErrEmptyEntity
	}

	dialogs, err := u.GetDialogs(ctx, rawPhone)
	if err != nil {
		return nil, err
	}

	for i := range dialogs {
		if dialogs[i].Matches(entity) {
			return &dialogs[i], nil
		}
	}
	return nil, nil
}

// GetMessages returns history of entity older than offsetID. limit is
// clamped to MaxMessagesLimit; a non-positive limit means the maximum.
func (u *UseCase) GetMessages(ctx context.Context, rawPhone, entity string, offsetID, limit int) ([]domain.Message, error) {
	if strings.TrimSpace(entity) == "" {
		return nil, accounterrors.ErrEmptyEntity
	}
	conn, err := u.handle(rawPhone)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > MaxMessagesLimit {
		limit = MaxMessagesLimit
	}
	if offsetID < 0 {
		offsetID = 0
	}
	return conn.Messages(ctx, entity, offsetID, limit)
}

// DownloadMedia fetches the bytes of a photo through the account's connection
func (u *UseCase) DownloadMedia(ctx context.Context, rawPhone string, photo domain.PhotoDescriptor) ([]byte, error) {
	if photo.ID == 0 || photo.DCID == 0 {
		return nil, accounterrors.ErrInvalidPhoto
	}
	conn, err := u.handle(rawPhone)
	if err != nil {
		return nil, err
	}
	return conn.Download(ctx, photo)
}

// MirrorMedia downloads a photo and copies it to object storage
func (u *UseCase) MirrorMedia(ctx context.Context, rawPhone string, photo domain.PhotoDescriptor) (*entities.MirroredMedia, error) {
	if u.uploader == nil {
		return nil, accounterrors.ErrMediaMirrorDisabled
	}

	data, err := u.DownloadMedia(ctx, rawPhone, photo)
	if err != nil {
		return nil, err
	}

	contentType := photo.MimeType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	owner := phone.Normalize(rawPhone)
	media, err := u.uploader.UploadMedia(ctx, owner, photo.ID, contentType, data)
	if err != nil {
		return nil, err
	}

	u.logger.Debug().
		Str("phone", utils.MaskPhoneNumber(owner)).
		Int64("photo_id", photo.ID).
		Str("object_key", media.ObjectKey).
		Msg("Media mirrored")
	return media, nil
}

var _ deps.QueryFacade = (*UseCase)(nil)
