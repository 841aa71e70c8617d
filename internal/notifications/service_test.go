package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"gorm.io/gorm"
)

type fakeRepository struct {
	createFn          func(ctx context.Context, notification *models.Notification) error
	createBatchFn     func(ctx context.Context, notifications []*models.Notification) error
	getFn             func(ctx context.Context, id int64, userID string) (*models.Notification, error)
	listFn            func(ctx context.Context, params listParams) ([]models.Notification, int64, error)
	updateFn          func(ctx context.Context, id int64, updates map[string]any) error
	markReadFn        func(ctx context.Context, id int64, userID string, now time.Time) (bool, error)
	markAllReadFn     func(ctx context.Context, userID string, now time.Time) (int64, error)
	deleteFn          func(ctx context.Context, id int64, userID string) (bool, error)
	failedRetryableFn func(ctx context.Context, limit int) ([]models.Notification, error)
	tryClaimFn        func(ctx context.Context, id int64, now, until time.Time) (bool, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	if f.createFn != nil {
		return f.createFn(ctx, notification)
	}
	return nil
}

func (f *fakeRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if f.createBatchFn != nil {
		return f.createBatchFn(ctx, notifications)
	}
	return nil
}

func (f *fakeRepository) Get(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id, userID)
	}
	return nil, nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	return nil, nil
}

func (f *fakeRepository) List(ctx context.Context, params listParams) ([]models.Notification, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeRepository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, updates)
	}
	return nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, id int64, userID string, now time.Time) (bool, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, id, userID, now)
	}
	return false, nil
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID string, now time.Time) (int64, error) {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx, userID, now)
	}
	return 0, nil
}

func (f *fakeRepository) Delete(ctx context.Context, id int64, userID string) (bool, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id, userID)
	}
	return false, nil
}

func (f *fakeRepository) DeleteByID(ctx context.Context, id int64) error { return nil }

func (f *fakeRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (f *fakeRepository) MarkSent(ctx context.Context, id int64, now time.Time) error { return nil }

func (f *fakeRepository) MarkFailed(ctx context.Context, id int64, now time.Time) error { return nil }

func (f *fakeRepository) DueScheduled(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeRepository) FailedRetryable(ctx context.Context, limit int) ([]models.Notification, error) {
	if f.failedRetryableFn != nil {
		return f.failedRetryableFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeRepository) PermanentlyFailed(ctx context.Context, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeRepository) TryClaim(ctx context.Context, id int64, now, until time.Time) (bool, error) {
	if f.tryClaimFn != nil {
		return f.tryClaimFn(ctx, id, now, until)
	}
	return false, nil
}

type fixedBackoff struct {
	delay time.Duration
}

func (b fixedBackoff) NextAttemptAt(lastAttempt time.Time, retryCount int) time.Time {
	return lastAttempt.Add(b.delay)
}

func newServiceWithRepo(t *testing.T, repo Repository, now func() time.Time) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Backoff: fixedBackoff{delay: time.Minute}, Now: now})
	if err != nil {
		t.Fatalf("unexpected service constructor error: %v", err)
	}
	return svc
}

func TestService_CreateAppliesDefaults(t *testing.T) {
	var stored *models.Notification
	repo := &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			stored = notification
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	created, err := svc.Create(context.Background(), CreateParams{
		UserID:  "user-1",
		Type:    enums.NotificationTypeBookingConfirmed,
		Title:   "Booking confirmed",
		Message: "See you on the course",
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if stored == nil {
		t.Fatal("expected notification to reach the repository")
	}
	if created.Status != enums.NotificationStatusPending {
		t.Fatalf("expected PENDING status, got %s", created.Status)
	}
	if created.MaxRetries != models.DefaultMaxRetries {
		t.Fatalf("expected default retry budget, got %d", created.MaxRetries)
	}
	if created.RetryCount != 0 {
		t.Fatalf("expected zero retry count, got %d", created.RetryCount)
	}
}

func TestService_CreateRejectsInvalidInput(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{}, nil)

	cases := []struct {
		name   string
		params CreateParams
	}{
		{"missing user", CreateParams{Type: enums.NotificationTypeBookingConfirmed, Title: "t", Message: "m"}},
		{"unknown type", CreateParams{UserID: "u", Type: "NOPE", Title: "t", Message: "m"}},
		{"missing title", CreateParams{UserID: "u", Type: enums.NotificationTypeBookingConfirmed, Message: "m"}},
		{"missing message", CreateParams{UserID: "u", Type: enums.NotificationTypeBookingConfirmed, Title: "t"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.params)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CreateBatchFansOut(t *testing.T) {
	var stored []*models.Notification
	repo := &fakeRepository{
		createBatchFn: func(ctx context.Context, notifications []*models.Notification) error {
			stored = notifications
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	created, err := svc.CreateBatch(context.Background(), []string{"u1", "u2", "u3"}, CreateParams{
		Type:    enums.NotificationTypeSystem,
		Title:   "Course closed",
		Message: "Back nine closed for maintenance",
	})
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}
	if len(created) != 3 || len(stored) != 3 {
		t.Fatalf("expected 3 notifications, got %d created %d stored", len(created), len(stored))
	}
	if stored[1].UserID != "u2" {
		t.Fatalf("expected per-user fan out, got %s", stored[1].UserID)
	}
}

func TestService_GetNotFound(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{}, nil)
	_, err := svc.Get(context.Background(), 42, "user-1")
	if err == nil {
		t.Fatal("expected not found error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_ListNormalizesPagination(t *testing.T) {
	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listParams) ([]models.Notification, int64, error) {
			if params.Limit != 20 {
				t.Fatalf("expected default limit, got %d", params.Limit)
			}
			if params.Offset != 0 {
				t.Fatalf("expected zero offset, got %d", params.Offset)
			}
			return []models.Notification{{ID: 1}}, 45, nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	result, err := svc.List(context.Background(), ListParams{UserID: "user-1", Page: -2, Limit: 0})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if result.Total != 45 || result.TotalPages != 3 {
		t.Fatalf("unexpected totals: %d pages for %d rows", result.TotalPages, result.Total)
	}
	if result.Page != 1 || result.Limit != 20 {
		t.Fatalf("expected normalized page echo, got page=%d limit=%d", result.Page, result.Limit)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected repository rows back, got %d", len(result.Items))
	}
}

func TestService_ListClampsOversizedLimit(t *testing.T) {
	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listParams) ([]models.Notification, int64, error) {
			if params.Limit != 100 {
				t.Fatalf("expected limit clamped to 100, got %d", params.Limit)
			}
			return nil, 0, nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	result, err := svc.List(context.Background(), ListParams{UserID: "user-1", Page: 1, Limit: 5000})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if result.Limit != 100 {
		t.Fatalf("expected clamped limit echo, got %d", result.Limit)
	}
}

func TestService_UpdatePersistsChanges(t *testing.T) {
	title := "Tee time moved"
	pending := &models.Notification{ID: 5, UserID: "user-1", Status: enums.NotificationStatusPending, Title: "Old title"}

	var gotUpdates map[string]any
	repo := &fakeRepository{
		getFn: func(ctx context.Context, id int64, userID string) (*models.Notification, error) {
			if gotUpdates != nil {
				return &models.Notification{ID: 5, UserID: "user-1", Status: enums.NotificationStatusPending, Title: title}, nil
			}
			return pending, nil
		},
		updateFn: func(ctx context.Context, id int64, updates map[string]any) error {
			gotUpdates = updates
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	updated, err := svc.Update(context.Background(), 5, "user-1", UpdateParams{Title: &title})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if gotUpdates["title"] != title {
		t.Fatalf("expected title update, got %v", gotUpdates)
	}
	if updated.Title != title {
		t.Fatalf("expected refreshed row, got %q", updated.Title)
	}
}

func TestService_UpdateRejectsDeliveredRows(t *testing.T) {
	repo := &fakeRepository{
		getFn: func(ctx context.Context, id int64, userID string) (*models.Notification, error) {
			return &models.Notification{ID: 5, UserID: "user-1", Status: enums.NotificationStatusSent}, nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	title := "too late"
	_, err := svc.Update(context.Background(), 5, "user-1", UpdateParams{Title: &title})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestService_UpdateNoopReturnsCurrent(t *testing.T) {
	repo := &fakeRepository{
		getFn: func(ctx context.Context, id int64, userID string) (*models.Notification, error) {
			return &models.Notification{ID: 5, UserID: "user-1", Status: enums.NotificationStatusPending}, nil
		},
		updateFn: func(ctx context.Context, id int64, updates map[string]any) error {
			t.Fatal("expected no repository write")
			return nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	updated, err := svc.Update(context.Background(), 5, "user-1", UpdateParams{})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.ID != 5 {
		t.Fatalf("expected current row back, got %+v", updated)
	}
}

func TestService_MarkReadNotFound(t *testing.T) {
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, id int64, userID string, now time.Time) (bool, error) {
			return false, nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)
	if _, err := svc.MarkRead(context.Background(), 7, "user-1"); err == nil {
		t.Fatal("expected not found error")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestService_MarkReadReturnsUpdatedRow(t *testing.T) {
	readAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, id int64, userID string, now time.Time) (bool, error) {
			return true, nil
		},
		getFn: func(ctx context.Context, id int64, userID string) (*models.Notification, error) {
			return &models.Notification{ID: id, UserID: userID, Status: enums.NotificationStatusRead, ReadAt: &readAt}, nil
		},
	}
	svc := newServiceWithRepo(t, repo, nil)

	notification, err := svc.MarkRead(context.Background(), 7, "user-1")
	if err != nil {
		t.Fatalf("unexpected mark read error: %v", err)
	}
	if notification.Status != enums.NotificationStatusRead {
		t.Fatalf("expected READ status, got %s", notification.Status)
	}
	if notification.ReadAt == nil || !notification.ReadAt.Equal(readAt) {
		t.Fatalf("expected read timestamp, got %v", notification.ReadAt)
	}
}

func TestService_MarkAllReadError(t *testing.T) {
	repo := &fakeRepository{
		markAllReadFn: func(ctx context.Context, userID string, now time.Time) (int64, error) {
			return 0, errors.New("boom")
		},
	}
	svc := newServiceWithRepo(t, repo, nil)
	if _, err := svc.MarkAllRead(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_RetryEligibleAppliesBackoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ready := models.Notification{ID: 1, RetryCount: 1, UpdatedAt: now.Add(-2 * time.Minute)}
	waiting := models.Notification{ID: 2, RetryCount: 1, UpdatedAt: now.Add(-10 * time.Second)}

	repo := &fakeRepository{
		failedRetryableFn: func(ctx context.Context, limit int) ([]models.Notification, error) {
			return []models.Notification{ready, waiting}, nil
		},
	}
	svc := newServiceWithRepo(t, repo, func() time.Time { return now })

	rows, err := svc.RetryEligible(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected retry eligible error: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != ready.ID {
		t.Fatalf("expected only the backed-off notification, got %v", rows)
	}
}

func TestService_ClaimUsesLease(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		tryClaimFn: func(ctx context.Context, id int64, claimNow, until time.Time) (bool, error) {
			if !until.Equal(claimNow.Add(2 * time.Minute)) {
				t.Fatalf("expected 2m lease, got %s", until.Sub(claimNow))
			}
			return true, nil
		},
	}
	svc := newServiceWithRepo(t, repo, func() time.Time { return now })

	claimed, err := svc.Claim(context.Background(), 9, 2*time.Minute)
	if err != nil {
		t.Fatalf("unexpected claim error: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim to succeed")
	}
}
