package entities

import (
	"time"

	"github.com/Conte777/NewsFlow/services/session-service/internal/domain"
	"github.com/Conte777/NewsFlow/services/session-service/internal/domain/phone"
)

// AccountModel is a GORM model for accounts table
type AccountModel struct {
	ID          uint      `gorm:"primaryKey"`
	PhoneNumber string    `gorm:"uniqueIndex;not null;size:32"`
	APIID       int       `gorm:"column:api_id;not null"`
	APIHash     string    `gorm:"column:api_hash;not null;size:64"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`

	Session *SessionModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

// SessionModel is a GORM model for the provider session blob of an account
type SessionModel struct {
	ID          uint      `gorm:"primaryKey"`
	AccountID   uint      `gorm:"uniqueIndex;not null"`
	SessionData []byte    `gorm:"type:bytea;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

// ToCredential converts DB model to domain credential
func (m *AccountModel) ToCredential() (domain.AccountCredential, error) {
	p, err := phone.New(m.PhoneNumber)
	if err != nil {
		return domain.AccountCredential{}, err
	}

	cred := domain.AccountCredential{
		SessionID: p,
		APIID:     m.APIID,
		APIHash:   m.APIHash,
	}
	if m.Session != nil {
		cred.SessionBlob = m.Session.SessionData
	}
	return cred, nil
}
