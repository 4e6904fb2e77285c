package telegram

import (
	"context"
	"errors"

	"github.com/gotd/td/telegram/updates"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpdatesStateModel is the common updates sequence of one signed-in account
type UpdatesStateModel struct {
	UserID int64 `gorm:"primaryKey;column:user_id"`
	Pts    int   `gorm:"column:pts;default:0"`
	Qts    int   `gorm:"column:qts;default:0"`
	Date   int   `gorm:"column:date;default:0"`
	Seq    int   `gorm:"column:seq;default:0"`
}

func (UpdatesStateModel) TableName() string {
	return "updates_state"
}

// ChannelStateModel is the per-channel pts of one signed-in account
type ChannelStateModel struct {
	UserID    int64 `gorm:"primaryKey;column:user_id"`
	ChannelID int64 `gorm:"primaryKey;column:channel_id"`
	Pts       int   `gorm:"column:pts;default:0"`
}

func (ChannelStateModel) TableName() string {
	return "channel_state"
}

// UpdatesStateStorage implements updates.StateStorage on PostgreSQL so the
// listener resumes from the last seen update after a restart
type UpdatesStateStorage struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewUpdatesStateStorage creates a PostgreSQL-backed state storage
func NewUpdatesStateStorage(db *gorm.DB, logger zerolog.Logger) *UpdatesStateStorage {
	return &UpdatesStateStorage{
		db:     db,
		logger: logger.With().Str("component", "updates_state_storage").Logger(),
	}
}

// GetState returns the stored sequence of userID
func (s *UpdatesStateStorage) GetState(ctx context.Context, userID int64) (updates.State, bool, error) {
	var row UpdatesStateModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return updates.State{}, false, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to get state")
		return updates.State{}, false, err
	}

	return updates.State{Pts: row.Pts, Qts: row.Qts, Date: row.Date, Seq: row.Seq}, true, nil
}

// SetState replaces the whole sequence of userID
func (s *UpdatesStateStorage) SetState(ctx context.Context, userID int64, state updates.State) error {
	return s.upsert(ctx, UpdatesStateModel{
		UserID: userID,
		Pts:    state.Pts,
		Qts:    state.Qts,
		Date:   state.Date,
		Seq:    state.Seq,
	}, "pts", "qts", "date", "seq")
}

func (s *UpdatesStateStorage) SetPts(ctx context.Context, userID int64, pts int) error {
	return s.upsert(ctx, UpdatesStateModel{UserID: userID, Pts: pts}, "pts")
}

func (s *UpdatesStateStorage) SetQts(ctx context.Context, userID int64, qts int) error {
	return s.upsert(ctx, UpdatesStateModel{UserID: userID, Qts: qts}, "qts")
}

func (s *UpdatesStateStorage) SetDate(ctx context.Context, userID int64, date int) error {
	return s.upsert(ctx, UpdatesStateModel{UserID: userID, Date: date}, "date")
}

func (s *UpdatesStateStorage) SetSeq(ctx context.Context, userID int64, seq int) error {
	return s.upsert(ctx, UpdatesStateModel{UserID: userID, Seq: seq}, "seq")
}

func (s *UpdatesStateStorage) SetDateSeq(ctx context.Context, userID int64, date, seq int) error {
	return s.upsert(ctx, UpdatesStateModel{UserID: userID, Date: date, Seq: seq}, "date", "seq")
}

// upsert writes only the named columns when the row already exists
func (s *UpdatesStateStorage) upsert(ctx context.Context, row UpdatesStateModel, columns ...string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&row).Error
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", row.UserID).Strs("columns", columns).Msg("failed to save state")
	}
	return err
}

// GetChannelPts returns the pts of one channel
func (s *UpdatesStateStorage) GetChannelPts(ctx context.Context, userID, channelID int64) (int, bool, error) {
	var row ChannelStateModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.Pts, true, nil
}

func (s *UpdatesStateStorage) SetChannelPts(ctx context.Context, userID, channelID int64, pts int) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"pts"}),
	}).Create(&ChannelStateModel{UserID: userID, ChannelID: channelID, Pts: pts}).Error
}

// ForEachChannels calls f for every channel tracked for userID
func (s *UpdatesStateStorage) ForEachChannels(ctx context.Context, userID int64, f func(ctx context.Context, channelID int64, pts int) error) error {
	var rows []ChannelStateModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return err
	}

	for _, row := range rows {
		if err := f(ctx, row.ChannelID, row.Pts); err != nil {
			return err
		}
	}
	return nil
}

var _ updates.StateStorage = (*UpdatesStateStorage)(nil)
