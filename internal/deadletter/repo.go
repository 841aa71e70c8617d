package deadletter

import (
	"context"
	"errors"
	"time"

	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for dead-lettered notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, row *models.DeadLetterNotification) error
	Get(ctx context.Context, id int64) (*models.DeadLetterNotification, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, params listParams) ([]models.DeadLetterNotification, int64, error)
	CountTotal(ctx context.Context) (int64, error)
	CountByType(ctx context.Context) (map[string]int64, error)
	TopReasons(ctx context.Context, limit int) ([]ReasonCount, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReasonCount is one row of the failure-reason ranking.
type ReasonCount struct {
	Reason string `gorm:"column:failure_reason" json:"reason"`
	Count  int64  `gorm:"column:count" json:"count"`
}

type listParams struct {
	UserID string
	Type   *enums.NotificationType
	Limit  int
	Offset int
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a dead-letter repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Insert(ctx context.Context, row *models.DeadLetterNotification) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repositoryImpl) Get(ctx context.Context, id int64) (*models.DeadLetterNotification, error) {
	var row models.DeadLetterNotification
	err := r.db.WithContext(ctx).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.DeadLetterNotification{}, id).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.DeadLetterNotification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DeadLetterNotification{})
	if params.UserID != "" {
		query = query.Where("user_id = ?", params.UserID)
	}
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DeadLetterNotification
	err := query.
		Order("moved_at DESC, id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repositoryImpl) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeadLetterNotification{}).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CountByType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Type  string `gorm:"column:type"`
		Count int64  `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).
		Model(&models.DeadLetterNotification{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}

func (r *repositoryImpl) TopReasons(ctx context.Context, limit int) ([]ReasonCount, error) {
	var rows []ReasonCount
	err := r.db.WithContext(ctx).
		Model(&models.DeadLetterNotification{}).
		Select("failure_reason, COUNT(*) AS count").
		Group("failure_reason").
		Order("count DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeadLetterNotification{}).
		Where("moved_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("moved_at < ?", cutoff).
		Delete(&models.DeadLetterNotification{})
	return result.RowsAffected, result.Error
}
