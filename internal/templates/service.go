package templates

import (
	"context"
	"fmt"
	"strings"

	"github.com/parkgolf/notify-backend/pkg/enums"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
)

// Rendered is the title/message pair produced from a template.
type Rendered struct {
	Title   string
	Message string
}

// Service turns event data into notification text via stored templates.
type Service interface {
	GenerateFromType(ctx context.Context, notificationType enums.NotificationType, vars map[string]any) (*Rendered, error)
}

type service struct {
	repo Repository
}

// NewService wires template dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "templates repository required")
	}
	return &service{repo: repo}, nil
}

// GenerateFromType renders the active template for the type. Returns
// (nil, nil) when no active template exists so callers can fall back to
// literal text.
func (s *service) GenerateFromType(ctx context.Context, notificationType enums.NotificationType, vars map[string]any) (*Rendered, error) {
	template, err := s.repo.ActiveByType(ctx, notificationType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification template")
	}
	if template == nil {
		return nil, nil
	}
	return &Rendered{
		Title:   Render(template.Title, vars),
		Message: Render(template.Content, vars),
	}, nil
}

// Render substitutes every {{key}} placeholder with the stringified value.
// Placeholders without a matching key stay literal.
func Render(text string, vars map[string]any) string {
	for key, value := range vars {
		placeholder := "{{" + key + "}}"
		text = strings.ReplaceAll(text, placeholder, stringify(value))
	}
	return text
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
