package templates

import (
	"context"
	"errors"

	"github.com/parkgolf/notify-backend/pkg/db/models"
	"github.com/parkgolf/notify-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository exposes persistence helpers for notification templates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ActiveByType(ctx context.Context, notificationType enums.NotificationType) (*models.NotificationTemplate, error)
	Create(ctx context.Context, template *models.NotificationTemplate) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a templates repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// ActiveByType returns the most recently updated active template for the
// type, or nil when none exists.
func (r *repositoryImpl) ActiveByType(ctx context.Context, notificationType enums.NotificationType) (*models.NotificationTemplate, error) {
	var template models.NotificationTemplate
	err := r.db.WithContext(ctx).
		Where("type = ? AND is_active = ?", notificationType, true).
		Order("updated_at DESC").
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &template, nil
}

func (r *repositoryImpl) Create(ctx context.Context, template *models.NotificationTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}
