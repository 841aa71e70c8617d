package preferences

import (
	"context"
	"testing"

	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	"gorm.io/gorm"
)

type fakeRepository struct {
	rows map[string]models.NotificationSettings
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: map[string]models.NotificationSettings{}}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Get(ctx context.Context, userID string) (*models.NotificationSettings, error) {
	settings, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	return &settings, nil
}

func (f *fakeRepository) Upsert(ctx context.Context, settings *models.NotificationSettings) error {
	f.rows[settings.UserID] = *settings
	return nil
}

func newService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service constructor error: %v", err)
	}
	return svc
}

func TestGetCreatesDefaultsOnFirstRead(t *testing.T) {
	repo := newFakeRepository()
	svc := newService(t, repo)

	settings, err := svc.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if !settings.Email || !settings.Push {
		t.Fatal("expected email and push enabled by default")
	}
	if settings.SMS || settings.Marketing {
		t.Fatal("expected sms and marketing disabled by default")
	}
	if _, ok := repo.rows["user-1"]; !ok {
		t.Fatal("expected defaults to be persisted")
	}
}

func TestUpdateKeepsUnsetFlags(t *testing.T) {
	repo := newFakeRepository()
	svc := newService(t, repo)

	off := false
	on := true
	updated, err := svc.Update(context.Background(), "user-1", UpdateParams{Push: &off, Marketing: &on})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.Push {
		t.Fatal("expected push disabled")
	}
	if !updated.Marketing {
		t.Fatal("expected marketing enabled")
	}
	if !updated.Email {
		t.Fatal("expected email untouched")
	}
}

func TestAllowsGatesMarketingAndChannels(t *testing.T) {
	repo := newFakeRepository()
	svc := newService(t, repo)

	allowed, err := svc.Allows(context.Background(), "user-1", enums.NotificationTypeBookingConfirmed, enums.DeliveryChannelPush)
	if err != nil {
		t.Fatalf("unexpected allows error: %v", err)
	}
	if !allowed {
		t.Fatal("expected push allowed by default")
	}

	allowed, err = svc.Allows(context.Background(), "user-1", enums.NotificationTypeBookingConfirmed, enums.DeliveryChannelSMS)
	if err != nil {
		t.Fatalf("unexpected allows error: %v", err)
	}
	if allowed {
		t.Fatal("expected sms blocked by default")
	}

	allowed, err = svc.Allows(context.Background(), "user-1", enums.NotificationTypeMarketing, enums.DeliveryChannelPush)
	if err != nil {
		t.Fatalf("unexpected allows error: %v", err)
	}
	if allowed {
		t.Fatal("expected marketing blocked without opt-in")
	}
}
