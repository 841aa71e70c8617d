package push

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parkgolf/notify-backend/pkg/config"
	"google.golang.org/api/option"
)

// resolvedCredentials holds the client options and project id picked from the
// configured credential source.
type resolvedCredentials struct {
	options   []option.ClientOption
	projectID string
}

// resolveCredentials walks the credential sources in order: inline
// service-account JSON, split project/email/key values, then an
// application-default credentials file. A nil result with a nil error means
// no source is configured and pushes should be simulated.
func resolveCredentials(cfg config.FirebaseConfig) (*resolvedCredentials, error) {
	if raw := strings.TrimSpace(cfg.ServiceAccountJSON); raw != "" {
		var account struct {
			ProjectID string `json:"project_id"`
		}
		if err := json.Unmarshal([]byte(raw), &account); err != nil {
			return nil, fmt.Errorf("parsing inline service account json: %w", err)
		}
		projectID := account.ProjectID
		if cfg.ProjectID != "" {
			projectID = cfg.ProjectID
		}
		return &resolvedCredentials{
			options:   []option.ClientOption{option.WithCredentialsJSON([]byte(raw))},
			projectID: projectID,
		}, nil
	}

	if cfg.ProjectID != "" && cfg.ClientEmail != "" && cfg.PrivateKey != "" {
		account := map[string]string{
			"type":         "service_account",
			"project_id":   cfg.ProjectID,
			"client_email": cfg.ClientEmail,
			"private_key":  strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n"),
			"token_uri":    "https://oauth2.googleapis.com/token",
		}
		encoded, err := json.Marshal(account)
		if err != nil {
			return nil, fmt.Errorf("encoding service account from split credentials: %w", err)
		}
		return &resolvedCredentials{
			options:   []option.ClientOption{option.WithCredentialsJSON(encoded)},
			projectID: cfg.ProjectID,
		}, nil
	}

	if cfg.CredentialsFile != "" {
		return &resolvedCredentials{
			options:   []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)},
			projectID: cfg.ProjectID,
		}, nil
	}

	return nil, nil
}
