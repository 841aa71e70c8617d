package deadletter

import (
	"context"
	"time"

	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"github.com/parkgolf/notify-backend/pkg/pagination"
	"gorm.io/gorm"
)

// DefaultRetentionDays bounds how long quarantined rows are kept.
const DefaultRetentionDays = 30

const topReasonsLimit = 10

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the dead-letter queue for permanently failed notifications.
type Service interface {
	Move(ctx context.Context, notification models.Notification, reason string) error
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Stats(ctx context.Context) (*Stats, error)
	Retry(ctx context.Context, id int64) (*models.Notification, error)
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

type service struct {
	repo          Repository
	notifications notifications.Repository
	tx            txRunner
	now           func() time.Time
}

// ServiceParams wires dead-letter dependencies.
type ServiceParams struct {
	Repo          Repository
	Notifications notifications.Repository
	Tx            txRunner
	Now           func() time.Time
}

// ListParams configures filtering and pagination for quarantined rows.
type ListParams struct {
	UserID string
	Type   *enums.NotificationType
	Page   int
	Limit  int
}

// ListResult wraps returned rows and page bookkeeping.
type ListResult struct {
	Items      []models.DeadLetterNotification `json:"items"`
	Total      int64                           `json:"total"`
	Page       int                             `json:"page"`
	Limit      int                             `json:"limit"`
	TotalPages int                             `json:"totalPages"`
}

// Stats summarizes the queue for operators.
type Stats struct {
	Total      int64            `json:"total"`
	ByType     map[string]int64 `json:"byType"`
	TopReasons []ReasonCount    `json:"topReasons"`
	Last24h    int64            `json:"last24h"`
	Last7d     int64            `json:"last7d"`
}

// NewService wires dead-letter dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dead-letter repository required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:          params.Repo,
		notifications: params.Notifications,
		tx:            params.Tx,
		now:           now,
	}, nil
}

// Move quarantines the notification: the snapshot insert and the source
// delete happen in one transaction, so a row is never in both tables.
func (s *service) Move(ctx context.Context, notification models.Notification, reason string) error {
	if reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "failure reason required")
	}

	snapshot := &models.DeadLetterNotification{
		OriginalID:      notification.ID,
		UserID:          notification.UserID,
		Type:            notification.Type,
		Title:           notification.Title,
		Message:         notification.Message,
		Data:            notification.Data,
		DeliveryChannel: notification.DeliveryChannel,
		FailureReason:   reason,
		RetryCount:      notification.RetryCount,
		MovedAt:         s.now(),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Insert(ctx, snapshot); err != nil {
			return err
		}
		return s.notifications.WithTx(tx).DeleteByID(ctx, notification.ID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "move notification to dead letter queue")
	}
	return nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()

	rows, total, err := s.repo.List(ctx, listParams{
		UserID: params.UserID,
		Type:   params.Type,
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dead letter notifications")
	}

	return &ListResult{
		Items:      rows,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: pagination.TotalPages(total, page.Limit),
	}, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()

	total, err := s.repo.CountTotal(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count dead letter notifications")
	}
	byType, err := s.repo.CountByType(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count dead letters by type")
	}
	reasons, err := s.repo.TopReasons(ctx, topReasonsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank dead letter reasons")
	}
	last24h, err := s.repo.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count dead letters in last 24h")
	}
	last7d, err := s.repo.CountSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count dead letters in last 7d")
	}

	return &Stats{
		Total:      total,
		ByType:     byType,
		TopReasons: reasons,
		Last24h:    last24h,
		Last7d:     last7d,
	}, nil
}

// Retry restores a quarantined notification as a fresh PENDING row with a
// reset retry budget and removes the snapshot, both in one transaction.
func (s *service) Retry(ctx context.Context, id int64) (*models.Notification, error) {
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get dead letter notification")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dead letter notification not found")
	}

	restored := &models.Notification{
		UserID:          row.UserID,
		Type:            row.Type,
		Title:           row.Title,
		Message:         row.Message,
		Data:            row.Data,
		DeliveryChannel: row.DeliveryChannel,
		Status:          enums.NotificationStatusPending,
		RetryCount:      0,
		MaxRetries:      models.DefaultMaxRetries,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.notifications.WithTx(tx).Create(ctx, restored); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Delete(ctx, row.ID)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore dead letter notification")
	}
	return restored, nil
}

// Cleanup removes quarantined rows older than the retention window. Safe to
// run repeatedly.
func (s *service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	count, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clean up dead letter notifications")
	}
	return count, nil
}
