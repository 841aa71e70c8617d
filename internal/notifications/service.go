package notifications

import (
	"context"
	"time"

	"github.com/parkgolf/notify-backend/pkg/db/models"
	dbtypes "github.com/parkgolf/notify-backend/pkg/db/types"
	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"github.com/parkgolf/notify-backend/pkg/pagination"
)

// BackoffPolicy decides when a failed notification may be attempted again.
type BackoffPolicy interface {
	NextAttemptAt(lastAttempt time.Time, retryCount int) time.Time
}

// Service defines notification store operations, both the user-facing CRUD
// surface and the selection/claim helpers the delivery pipeline runs on.
type Service interface {
	Create(ctx context.Context, params CreateParams) (*models.Notification, error)
	CreateBatch(ctx context.Context, userIDs []string, params CreateParams) ([]models.Notification, error)
	Get(ctx context.Context, id int64, userID string) (*models.Notification, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, id int64, userID string, params UpdateParams) (*models.Notification, error)
	MarkRead(ctx context.Context, id int64, userID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id int64, userID string) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	DueScheduled(ctx context.Context, limit int) ([]models.Notification, error)
	RetryEligible(ctx context.Context, limit int) ([]models.Notification, error)
	PermanentlyFailed(ctx context.Context, limit int) ([]models.Notification, error)
	Claim(ctx context.Context, id int64, lease time.Duration) (bool, error)
}

type service struct {
	repo    Repository
	backoff BackoffPolicy
	now     func() time.Time
}

// ServiceParams wires notification store dependencies.
type ServiceParams struct {
	Repo    Repository
	Backoff BackoffPolicy
	Now     func() time.Time
}

// CreateParams captures a new notification request.
type CreateParams struct {
	UserID          string
	Type            enums.NotificationType
	Title           string
	Message         string
	Data            map[string]any
	DeliveryChannel *enums.DeliveryChannel
	ScheduledAt     *time.Time
	MaxRetries      int
}

// UpdateParams carries the mutable fields of a pending notification. Nil
// fields keep their current value.
type UpdateParams struct {
	Title       *string
	Message     *string
	Data        map[string]any
	ScheduledAt *time.Time
}

// ListParams configures filtering and pagination for a user's notifications.
type ListParams struct {
	UserID     string
	Type       *enums.NotificationType
	Status     *enums.NotificationStatus
	UnreadOnly bool
	Page       int
	Limit      int
}

// ListResult wraps returned notifications and page bookkeeping.
type ListResult struct {
	Items      []models.Notification `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalPages int                   `json:"totalPages"`
}

// NewService wires notification store dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Backoff == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backoff policy required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, backoff: params.Backoff, now: now}, nil
}

func (s *service) Create(ctx context.Context, params CreateParams) (*models.Notification, error) {
	notification, err := buildNotification(params)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return notification, nil
}

// CreateBatch fans one payload out to many recipients in a single insert.
func (s *service) CreateBatch(ctx context.Context, userIDs []string, params CreateParams) ([]models.Notification, error) {
	if len(userIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one user id required")
	}

	notifications := make([]*models.Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		perUser := params
		perUser.UserID = userID
		notification, err := buildNotification(perUser)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}

	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification batch")
	}

	created := make([]models.Notification, 0, len(notifications))
	for _, notification := range notifications {
		created = append(created, *notification)
	}
	return created, nil
}

func buildNotification(params CreateParams) (*models.Notification, error) {
	if params.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !params.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}
	if params.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if params.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
	}
	if params.DeliveryChannel != nil && !params.DeliveryChannel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery channel")
	}

	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}

	return &models.Notification{
		UserID:          params.UserID,
		Type:            params.Type,
		Title:           params.Title,
		Message:         params.Message,
		Data:            params.Data,
		DeliveryChannel: params.DeliveryChannel,
		Status:          enums.NotificationStatusPending,
		MaxRetries:      maxRetries,
		ScheduledAt:     params.ScheduledAt,
	}, nil
}

func (s *service) Get(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	notification, err := s.repo.Get(ctx, id, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get notification")
	}
	if notification == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return notification, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	page := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()

	rows, total, err := s.repo.List(ctx, listParams{
		UserID:     params.UserID,
		Type:       params.Type,
		Status:     params.Status,
		UnreadOnly: params.UnreadOnly,
		Limit:      page.Limit,
		Offset:     page.Offset(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	return &ListResult{
		Items:      rows,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: pagination.TotalPages(total, page.Limit),
	}, nil
}

func (s *service) Update(ctx context.Context, id int64, userID string, params UpdateParams) (*models.Notification, error) {
	current, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if current.Status != enums.NotificationStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "only pending notifications can be updated")
	}

	updates := map[string]any{}
	if params.Title != nil {
		if *params.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
		}
		updates["title"] = *params.Title
	}
	if params.Message != nil {
		if *params.Message == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
		}
		updates["message"] = *params.Message
	}
	if params.Data != nil {
		updates["data"] = dbtypes.PayloadMap(params.Data)
	}
	if params.ScheduledAt != nil {
		updates["scheduled_at"] = *params.ScheduledAt
	}
	if len(updates) == 0 {
		return current, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update notification")
	}
	return s.Get(ctx, id, userID)
}

func (s *service) MarkRead(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	found, err := s.repo.MarkRead(ctx, id, userID, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return s.Get(ctx, id, userID)
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, id int64, userID string) error {
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	found, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}

func (s *service) MarkSent(ctx context.Context, id int64) error {
	if err := s.repo.MarkSent(ctx, id, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification sent")
	}
	return nil
}

func (s *service) MarkFailed(ctx context.Context, id int64) error {
	if err := s.repo.MarkFailed(ctx, id, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification failed")
	}
	return nil
}

func (s *service) DueScheduled(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := s.repo.DueScheduled(ctx, s.now(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list due notifications")
	}
	return rows, nil
}

// RetryEligible returns failed notifications whose backoff window has
// elapsed. The last attempt time is the row's updated_at, which MarkFailed
// refreshes on every attempt.
func (s *service) RetryEligible(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := s.repo.FailedRetryable(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list retryable notifications")
	}

	now := s.now()
	eligible := rows[:0]
	for _, row := range rows {
		if !s.backoff.NextAttemptAt(row.UpdatedAt, row.RetryCount).After(now) {
			eligible = append(eligible, row)
		}
	}
	return eligible, nil
}

func (s *service) PermanentlyFailed(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := s.repo.PermanentlyFailed(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list permanently failed notifications")
	}
	return rows, nil
}

// Claim takes a short lease on a notification so only one scheduler
// instance delivers it.
func (s *service) Claim(ctx context.Context, id int64, lease time.Duration) (bool, error) {
	now := s.now()
	claimed, err := s.repo.TryClaim(ctx, id, now, now.Add(lease))
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim notification")
	}
	return claimed, nil
}
