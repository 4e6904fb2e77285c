package deps

import (
	"context"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/account/entities"
)

// QueryFacade answers read-only questions about pooled accounts
type QueryFacade interface {
	GetAccount(ctx context.Context, rawPhone string) (*domain.Profile, error)
	GetAccounts(ctx context.Context) ([]domain.Profile, error)
	GetDialogs(ctx context.Context, rawPhone string) ([]domain.Dialog, error)
	// GetDialogByEntity returns nil without error when no dialog matches
	GetDialogByEntity(ctx context.Context, rawPhone, entity string) (*domain.Dialog, error)
	GetMessages(ctx context.Context, rawPhone, entity string, offsetID, limit int) ([]domain.Message, error)
	DownloadMedia(ctx context.Context, rawPhone string, photo domain.PhotoDescriptor) ([]byte, error)
	MirrorMedia(ctx context.Context, rawPhone string, photo domain.PhotoDescriptor) (*entities.MirroredMedia, error)
}

// MediaUploader stores media bytes and returns where they can be fetched
type MediaUploader interface {
	UploadMedia(ctx context.Context, owner string, mediaID int64, contentType string, data []byte) (*entities.MirroredMedia, error)
}
