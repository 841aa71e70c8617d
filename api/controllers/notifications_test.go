package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parkgolf/notify-backend/api/middleware"
	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
)

type stubNotifications struct {
	createFn      func(ctx context.Context, params notifications.CreateParams) (*models.Notification, error)
	createBatchFn func(ctx context.Context, userIDs []string, params notifications.CreateParams) ([]models.Notification, error)
	getFn         func(ctx context.Context, id int64, userID string) (*models.Notification, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	updateFn      func(ctx context.Context, id int64, userID string, params notifications.UpdateParams) (*models.Notification, error)
	markReadFn    func(ctx context.Context, id int64, userID string) (*models.Notification, error)
	markAllFn     func(ctx context.Context, userID string) (int64, error)
	deleteFn      func(ctx context.Context, id int64, userID string) error
	unreadFn      func(ctx context.Context, userID string) (int64, error)
}

func (s stubNotifications) Create(ctx context.Context, params notifications.CreateParams) (*models.Notification, error) {
	return s.createFn(ctx, params)
}

func (s stubNotifications) CreateBatch(ctx context.Context, userIDs []string, params notifications.CreateParams) ([]models.Notification, error) {
	return s.createBatchFn(ctx, userIDs, params)
}

func (s stubNotifications) Get(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	return s.getFn(ctx, id, userID)
}

func (s stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return s.listFn(ctx, params)
}

func (s stubNotifications) Update(ctx context.Context, id int64, userID string, params notifications.UpdateParams) (*models.Notification, error) {
	return s.updateFn(ctx, id, userID, params)
}

func (s stubNotifications) MarkRead(ctx context.Context, id int64, userID string) (*models.Notification, error) {
	return s.markReadFn(ctx, id, userID)
}

func (s stubNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.markAllFn(ctx, userID)
}

func (s stubNotifications) Delete(ctx context.Context, id int64, userID string) error {
	return s.deleteFn(ctx, id, userID)
}

func (s stubNotifications) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.unreadFn(ctx, userID)
}

func (s stubNotifications) MarkSent(ctx context.Context, id int64) error   { return nil }
func (s stubNotifications) MarkFailed(ctx context.Context, id int64) error { return nil }

func (s stubNotifications) DueScheduled(ctx context.Context, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (s stubNotifications) RetryEligible(ctx context.Context, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (s stubNotifications) PermanentlyFailed(ctx context.Context, limit int) ([]models.Notification, error) {
	return nil, nil
}

func (s stubNotifications) Claim(ctx context.Context, id int64, lease time.Duration) (bool, error) {
	return false, nil
}

func TestCreateNotificationSuccess(t *testing.T) {
	var got notifications.CreateParams
	svc := stubNotifications{
		createFn: func(ctx context.Context, params notifications.CreateParams) (*models.Notification, error) {
			got = params
			return &models.Notification{ID: 7, UserID: params.UserID, Title: params.Title}, nil
		},
	}
	handler := CreateNotification(svc, nil)

	body := `{"userId":"user-1","type":"BOOKING_CONFIRMED","title":"Booking confirmed","message":"See you at the course","deliveryChannel":"PUSH"}`
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/notifications", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", got.UserID)
	}
	if got.Type != enums.NotificationTypeBookingConfirmed {
		t.Fatalf("unexpected type: %s", got.Type)
	}
	if got.DeliveryChannel == nil || *got.DeliveryChannel != enums.DeliveryChannelPush {
		t.Fatalf("unexpected channel: %v", got.DeliveryChannel)
	}

	var envelope struct {
		Data models.Notification `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != 7 {
		t.Fatalf("unexpected id: %d", envelope.Data.ID)
	}
}

func TestCreateNotificationUnknownType(t *testing.T) {
	handler := CreateNotification(stubNotifications{}, nil)

	body := `{"userId":"user-1","type":"CARRIER_PIGEON","title":"t","message":"m"}`
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/notifications", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateNotificationMissingTitle(t *testing.T) {
	handler := CreateNotification(stubNotifications{}, nil)

	body := `{"userId":"user-1","type":"SYSTEM","message":"m"}`
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/notifications", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateNotificationBatchSuccess(t *testing.T) {
	svc := stubNotifications{
		createBatchFn: func(ctx context.Context, userIDs []string, params notifications.CreateParams) ([]models.Notification, error) {
			items := make([]models.Notification, len(userIDs))
			for i, userID := range userIDs {
				items[i] = models.Notification{ID: int64(i + 1), UserID: userID}
			}
			return items, nil
		},
	}
	handler := CreateNotificationBatch(svc, nil)

	body := `{"userIds":["a","b","c"],"type":"SYSTEM","title":"Course closed","message":"Back nine closed for aeration"}`
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/notifications/batch", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Created int `json:"created"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Created != 3 {
		t.Fatalf("expected 3 created got %d", envelope.Data.Created)
	}
}

func TestCreateNotificationBatchEmptyUsers(t *testing.T) {
	handler := CreateNotificationBatch(stubNotifications{}, nil)

	body := `{"userIds":[],"type":"SYSTEM","title":"t","message":"m"}`
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/notifications/batch", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateNotificationSuccess(t *testing.T) {
	var gotID int64
	var gotUser string
	var gotParams notifications.UpdateParams
	svc := stubNotifications{
		updateFn: func(ctx context.Context, id int64, userID string, params notifications.UpdateParams) (*models.Notification, error) {
			gotID = id
			gotUser = userID
			gotParams = params
			return &models.Notification{ID: id, UserID: userID, Title: *params.Title}, nil
		},
	}

	r := chi.NewRouter()
	r.Put("/internal/v1/notifications/{id}", UpdateNotification(svc, nil))

	body := `{"userId":"user-1","title":"Tee time moved"}`
	req := httptest.NewRequest(http.MethodPut, "/internal/v1/notifications/7", strings.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotID != 7 || gotUser != "user-1" {
		t.Fatalf("unexpected target: id=%d user=%s", gotID, gotUser)
	}
	if gotParams.Title == nil || *gotParams.Title != "Tee time moved" {
		t.Fatalf("unexpected title param: %v", gotParams.Title)
	}
	if gotParams.Message != nil {
		t.Fatalf("expected message untouched, got %v", gotParams.Message)
	}
}

func TestUpdateNotificationMissingUser(t *testing.T) {
	r := chi.NewRouter()
	r.Put("/internal/v1/notifications/{id}", UpdateNotification(stubNotifications{}, nil))

	req := httptest.NewRequest(http.MethodPut, "/internal/v1/notifications/7", strings.NewReader(`{"title":"t"}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListNotificationsFilters(t *testing.T) {
	var got notifications.ListParams
	svc := stubNotifications{
		listFn: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{Items: []models.Notification{}, Page: params.Page, Limit: params.Limit}, nil
		},
	}
	handler := ListNotifications(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?type=SYSTEM&unreadOnly=true&page=2&limit=5", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-9"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.UserID != "user-9" {
		t.Fatalf("unexpected user id: %s", got.UserID)
	}
	if got.Type == nil || *got.Type != enums.NotificationTypeSystem {
		t.Fatalf("unexpected type filter: %v", got.Type)
	}
	if !got.UnreadOnly {
		t.Fatal("expected unreadOnly filter")
	}
	if got.Page != 2 || got.Limit != 5 {
		t.Fatalf("unexpected pagination: page=%d limit=%d", got.Page, got.Limit)
	}
}

func TestListNotificationsBadLimit(t *testing.T) {
	handler := ListNotifications(stubNotifications{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=zero", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-9"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationReadNotFound(t *testing.T) {
	svc := stubNotifications{
		markReadFn: func(ctx context.Context, id int64, userID string) (*models.Notification, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		},
	}

	r := chi.NewRouter()
	r.Post("/notifications/{id}/read", MarkNotificationRead(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/notifications/42/read", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-9"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestMarkNotificationReadReturnsRow(t *testing.T) {
	svc := stubNotifications{
		markReadFn: func(ctx context.Context, id int64, userID string) (*models.Notification, error) {
			return &models.Notification{ID: id, UserID: userID, Status: enums.NotificationStatusRead}, nil
		},
	}

	r := chi.NewRouter()
	r.Post("/notifications/{id}/read", MarkNotificationRead(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/notifications/42/read", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-9"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data models.Notification `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != 42 || envelope.Data.Status != enums.NotificationStatusRead {
		t.Fatalf("expected updated notification in body, got %+v", envelope.Data)
	}
}

func TestMarkAllNotificationsReadCountKey(t *testing.T) {
	svc := stubNotifications{
		markAllFn: func(ctx context.Context, userID string) (int64, error) {
			return 5, nil
		},
	}
	handler := MarkAllNotificationsRead(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-9"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["count"] != 5 {
		t.Fatalf("expected count key, got %v", envelope.Data)
	}
}

func TestGetNotificationBadID(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/notifications/{id}", GetNotification(stubNotifications{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/notifications/abc", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-9"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUnreadNotificationCount(t *testing.T) {
	svc := stubNotifications{
		unreadFn: func(ctx context.Context, userID string) (int64, error) {
			return 12, nil
		},
	}
	handler := UnreadNotificationCount(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "user-9"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["unread"] != 12 {
		t.Fatalf("unexpected count: %d", envelope.Data["unread"])
	}
}
