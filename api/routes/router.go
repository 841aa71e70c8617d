package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parkgolf/notify-backend/api/controllers"
	"github.com/parkgolf/notify-backend/api/middleware"
	"github.com/parkgolf/notify-backend/internal/deadletter"
	"github.com/parkgolf/notify-backend/internal/notifications"
	"github.com/parkgolf/notify-backend/internal/preferences"
	"github.com/parkgolf/notify-backend/pkg/config"
	"github.com/parkgolf/notify-backend/pkg/db"
	"github.com/parkgolf/notify-backend/pkg/logger"
	"github.com/parkgolf/notify-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database *db.Client,
	redisClient *redis.Client,
	notificationsService notifications.Service,
	preferencesService preferences.Service,
	deadLetterService deadletter.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, redisClient, logg))
	})

	// Service-to-service surface. Callers address recipients explicitly, so
	// it stays outside the user-context group.
	r.Route("/internal/v1/notifications", func(r chi.Router) {
		r.Post("/", controllers.CreateNotification(notificationsService, logg))
		r.Post("/batch", controllers.CreateNotificationBatch(notificationsService, logg))
		r.Put("/{id}", controllers.UpdateNotification(notificationsService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.UserContext(logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Get("/{id}", controllers.GetNotification(notificationsService, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Delete("/{id}", controllers.DeleteNotification(notificationsService, logg))
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", controllers.GetPreferences(preferencesService, logg))
			r.Put("/", controllers.UpdatePreferences(preferencesService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminAuth, logg))

		r.Route("/dead-letters", func(r chi.Router) {
			r.Get("/", controllers.ListDeadLetters(deadLetterService, logg))
			r.Get("/stats", controllers.DeadLetterStats(deadLetterService, logg))
			r.Post("/{id}/retry", controllers.RetryDeadLetter(deadLetterService, logg))
			r.Delete("/", controllers.CleanupDeadLetters(deadLetterService, logg))
		})
	})

	return r
}
