package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/session/entities"
)

// Repository implements domain.SessionStore using PostgreSQL
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new PostgreSQL session store
func NewRepository(db *gorm.DB) domain.SessionStore {
	return &Repository{db: db}
}

// Get retrieves the credential and its session blob
func (r *Repository) Get(ctx context.Context, p phone.Number) (domain.AccountCredential, bool, error) {
	var account entities.AccountModel
	err := r.db.WithContext(ctx).
		Preload("Session").
		Where("phone_number = ?", p.String()).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.AccountCredential{}, false, nil
	}
	if err != nil {
		return domain.AccountCredential{}, false, fmt.Errorf("failed to get account: %w", err)
	}

	cred, err := account.ToCredential()
	if err != nil {
		return domain.AccountCredential{}, false, fmt.Errorf("stored account has invalid phone: %w", err)
	}
	return cred, true, nil
}

// Add registers a new account
func (r *Repository) Add(ctx context.Context, p phone.Number, apiID int, apiHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.AccountModel{}).
			Where("phone_number = ?", p.String()).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check account existence: %w", err)
		}
		if count > 0 {
			return domain.ErrDuplicateAccount
		}

		err := tx.Create(&entities.AccountModel{
			PhoneNumber: p.String(),
			APIID:       apiID,
			APIHash:     apiHash,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateAccount
		}
		if err != nil {
			return fmt.Errorf("failed to add account: %w", err)
		}
		return nil
	})
}

// Delete removes the account and its session blob in one transaction.
// Deleting an absent account is not an error.
func (r *Repository) Delete(ctx context.Context, p phone.Number) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account entities.AccountModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("phone_number = ?", p.String()).
			First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find account: %w", err)
		}

		if err := tx.Where("account_id = ?", account.ID).Delete(&entities.SessionModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if err := tx.Delete(&account).Error; err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		return nil
	})
}

// List returns every stored credential ordered by registration
func (r *Repository) List(ctx context.Context) ([]domain.AccountCredential, error) {
	var accounts []entities.AccountModel
	if err := r.db.WithContext(ctx).
		Preload("Session").
		Order("id").
		Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	creds := make([]domain.AccountCredential, 0, len(accounts))
	for i := range accounts {
		cred, err := accounts[i].ToCredential()
		if err != nil {
			return nil, fmt.Errorf("stored account %d has invalid phone: %w", accounts[i].ID, err)
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// LoadSession returns the session blob or nil when none is stored
func (r *Repository) LoadSession(ctx context.Context, p phone.Number) ([]byte, error) {
	var sess entities.SessionModel
	err := r.db.WithContext(ctx).
		Joins("JOIN accounts ON accounts.id = sessions.account_id").
		Where("accounts.phone_number = ?", p.String()).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess.SessionData, nil
}

// StoreSession replaces the session blob of a registered account
func (r *Repository) StoreSession(ctx context.Context, p phone.Number, data []byte) error {
	var account entities.AccountModel
	err := r.db.WithContext(ctx).
		Select("id").
		Where("phone_number = ?", p.String()).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"session_data", "updated_at"}),
	}).Create(&entities.SessionModel{
		AccountID:   account.ID,
		SessionData: data,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}
