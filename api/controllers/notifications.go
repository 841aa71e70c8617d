package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parkgolf/notify-backend/api/middleware"
	"github.com/parkgolf/notify-backend/api/responses"
	"github.com/parkgolf/notify-backend/api/validators"
	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

type createNotificationRequest struct {
	UserID          string         `json:"userId" validate:"required"`
	Type            string         `json:"type" validate:"required"`
	Title           string         `json:"title" validate:"required,max=255"`
	Message         string         `json:"message" validate:"required"`
	Data            map[string]any `json:"data"`
	DeliveryChannel string         `json:"deliveryChannel"`
	ScheduledAt     *time.Time     `json:"scheduledAt"`
	MaxRetries      int            `json:"maxRetries" validate:"min=0,max=10"`
}

type createBatchRequest struct {
	UserIDs         []string       `json:"userIds" validate:"required,min=1,max=1000"`
	Type            string         `json:"type" validate:"required"`
	Title           string         `json:"title" validate:"required,max=255"`
	Message         string         `json:"message" validate:"required"`
	Data            map[string]any `json:"data"`
	DeliveryChannel string         `json:"deliveryChannel"`
	ScheduledAt     *time.Time     `json:"scheduledAt"`
}

func buildCreateParams(userID, typeStr, title, message string, data map[string]any, channel string, scheduledAt *time.Time, maxRetries int) (notifications.CreateParams, error) {
	notificationType, err := enums.ParseNotificationType(typeStr)
	if err != nil {
		return notifications.CreateParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type")
	}

	params := notifications.CreateParams{
		UserID:      userID,
		Type:        notificationType,
		Title:       title,
		Message:     message,
		Data:        data,
		ScheduledAt: scheduledAt,
		MaxRetries:  maxRetries,
	}

	if channel != "" {
		parsed, err := enums.ParseDeliveryChannel(channel)
		if err != nil {
			return notifications.CreateParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery channel")
		}
		params.DeliveryChannel = &parsed
	}
	return params, nil
}

// CreateNotification enqueues a notification for a single recipient. This is
// an internal surface for other services, so the recipient comes from the
// body rather than the caller's identity.
func CreateNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		var req createNotificationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := buildCreateParams(req.UserID, req.Type, req.Title, req.Message, req.Data, req.DeliveryChannel, req.ScheduledAt, req.MaxRetries)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// CreateNotificationBatch fans one payload out to many recipients.
func CreateNotificationBatch(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		var req createBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := buildCreateParams("", req.Type, req.Title, req.Message, req.Data, req.DeliveryChannel, req.ScheduledAt, 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateBatch(r.Context(), req.UserIDs, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"created": len(created),
			"items":   created,
		})
	}
}

// ListNotifications returns paginated notifications for the calling user.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		params := notifications.ListParams{UserID: middleware.UserIDFromContext(r.Context())}

		if typeStr := strings.TrimSpace(r.URL.Query().Get("type")); typeStr != "" {
			parsed, err := enums.ParseNotificationType(typeStr)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter"))
				return
			}
			params.Type = &parsed
		}

		if statusStr := strings.TrimSpace(r.URL.Query().Get("status")); statusStr != "" {
			parsed, err := enums.ParseNotificationStatus(statusStr)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &parsed
		}

		if unread := strings.TrimSpace(r.URL.Query().Get("unreadOnly")); unread != "" {
			value, err := strconv.ParseBool(unread)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unreadOnly value"))
				return
			}
			params.UnreadOnly = value
		}

		page, limit, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Page = page
		params.Limit = limit

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// GetNotification returns one of the calling user's notifications.
func GetNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		id, err := parseIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notification, err := svc.Get(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notification)
	}
}

type updateNotificationRequest struct {
	UserID      string         `json:"userId" validate:"required"`
	Title       *string        `json:"title" validate:"omitempty,max=255"`
	Message     *string        `json:"message"`
	Data        map[string]any `json:"data"`
	ScheduledAt *time.Time     `json:"scheduledAt"`
}

// UpdateNotification amends a pending notification before delivery. Like
// create, this is an internal surface, so the owner comes from the body.
func UpdateNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		id, err := parseIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateNotificationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), id, req.UserID, notifications.UpdateParams{
			Title:       req.Title,
			Message:     req.Message,
			Data:        req.Data,
			ScheduledAt: req.ScheduledAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		id, err := parseIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		notification, err := svc.MarkRead(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notification)
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		count, err := svc.MarkAllRead(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"count": count})
	}
}

func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		count, err := svc.UnreadCount(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"unread": count})
	}
}

func DeleteNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		id, err := parseIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, middleware.UserIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "id must be a positive integer")
	}
	return id, nil
}

func parsePagination(r *http.Request) (page int, limit int, err error) {
	if pageStr := strings.TrimSpace(r.URL.Query().Get("page")); pageStr != "" {
		value, convErr := strconv.Atoi(pageStr)
		if convErr != nil || value <= 0 {
			return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "page must be a positive integer")
		}
		page = value
	}
	if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
		value, convErr := strconv.Atoi(limitStr)
		if convErr != nil || value <= 0 {
			return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
		}
		limit = value
	}
	return page, limit, nil
}
