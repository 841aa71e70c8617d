package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	Get(ctx context.Context, id int64, userID string) (*models.Notification, error)
	GetByID(ctx context.Context, id int64) (*models.Notification, error)
	List(ctx context.Context, params listParams) ([]models.Notification, int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	MarkRead(ctx context.Context, id int64, userID string, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error)
	Delete(ctx context.Context, id int64, userID string) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkSent(ctx context.Context, id int64, now time.Time) error
	MarkFailed(ctx context.Context, id int64, now time.Time) error
	DueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	FailedRetryable(ctx context.Context, limit int) ([]models.Notification, error)
	PermanentlyFailed(ctx context.Context, limit int) ([]models.Notification, error)
	TryClaim(ctx context.Context, id int64, now, until time.Time) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listParams struct {
	UserID     string
	Type       *enums.NotificationType
	Status     *enums.NotificationStatus
	UnreadOnly bool
	Limit      int
	Offset     int
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(notifications).Error
}

func (r *repositoryImpl) Get(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

func (r *repositoryImpl) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).First(&notification, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &notification, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listParams) ([]models.Notification, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", params.UserID)
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *repositoryImpl) Update(ctx context.Context, id int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repositoryImpl) MarkRead(ctx context.Context, id int64, userID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"status":  enums.NotificationStatusRead,
			"read_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Updates(map[string]any{
			"status":  enums.NotificationStatusRead,
			"read_at": now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Notification{}, id).Error
}

func (r *repositoryImpl) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) MarkSent(ctx context.Context, id int64, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.NotificationStatusSent,
			"sent_at":       now,
			"claimed_until": nil,
		}).Error
}

// MarkFailed transitions to FAILED and bumps the retry count in one UPDATE
// so concurrent attempts cannot lose an increment.
func (r *repositoryImpl) MarkFailed(ctx context.Context, id int64, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.NotificationStatusFailed,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"updated_at":    now,
			"claimed_until": nil,
		}).Error
}

// DueScheduled returns PENDING notifications whose scheduled time has
// arrived. Rows without a scheduled time are due immediately.
func (r *repositoryImpl) DueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.NotificationStatusPending).
		Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
		Order("id").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// FailedRetryable returns FAILED notifications that still have retry budget.
// Backoff gating happens in the service, where the policy is injected.
func (r *repositoryImpl) FailedRetryable(ctx context.Context, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", enums.NotificationStatusFailed).
		Order("id").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// PermanentlyFailed returns FAILED notifications that exhausted their retry
// budget and are awaiting the dead-letter sweep.
func (r *repositoryImpl) PermanentlyFailed(ctx context.Context, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count >= max_retries", enums.NotificationStatusFailed).
		Order("id").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

// TryClaim leases a notification to the calling scheduler instance. The
// conditional update keyed on id is what keeps two instances from
// delivering the same notification twice.
func (r *repositoryImpl) TryClaim(ctx context.Context, id int64, now, until time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND (claimed_until IS NULL OR claimed_until <= ?)", id, now).
		UpdateColumn("claimed_until", until)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
