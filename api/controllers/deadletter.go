package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/parkgolf/notify-backend/api/responses"
	"github.com/parkgolf/notify-backend/internal/deadletter"
	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

// ListDeadLetters returns paginated quarantined notifications for operators.
func ListDeadLetters(svc deadletter.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}

		params := deadletter.ListParams{
			UserID: strings.TrimSpace(r.URL.Query().Get("userId")),
		}

		if typeStr := strings.TrimSpace(r.URL.Query().Get("type")); typeStr != "" {
			parsed, err := enums.ParseNotificationType(typeStr)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter"))
				return
			}
			params.Type = &parsed
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

func DeadLetterStats(svc deadletter.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// RetryDeadLetter restores a quarantined notification as a fresh pending one.
func RetryDeadLetter(svc deadletter.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}

		id, err := parseIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		restored, err := svc.Retry(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, restored)
	}
}

// CleanupDeadLetters removes quarantined rows older than the retention
// window. An optional retentionDays query overrides the default.
func CleanupDeadLetters(svc deadletter.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dead letter service unavailable"))
			return
		}

		retentionDays := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("retentionDays")); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "retentionDays must be a positive integer"))
				return
			}
			retentionDays = value
		}

		deleted, err := svc.Cleanup(r.Context(), retentionDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"deleted": deleted})
	}
}
