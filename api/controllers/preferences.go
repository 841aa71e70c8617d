package controllers

import (
	"net/http"

	"github.com/parkgolf/notify-backend/api/middleware"
	"github.com/parkgolf/notify-backend/api/responses"
	"github.com/parkgolf/notify-backend/api/validators"
	"github.com/parkgolf/notify-backend/internal/preferences"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

// GetPreferences returns the calling user's channel opt-ins, creating
// defaults on first read.
func GetPreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		settings, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

// UpdatePreferences applies a partial update. Omitted flags keep their
// current value.
func UpdatePreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
			return
		}

		var req preferences.UpdateParams
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.Update(r.Context(), middleware.UserIDFromContext(r.Context()), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}
