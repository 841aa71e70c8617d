package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable read by this service.
	EnvPrefix = "parkgolf"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	AdminAuth AdminAuthConfig
	Firebase  FirebaseConfig
	Devices   DevicesConfig
	Email     EmailConfig
	SMS       SMSConfig
	PubSub    PubSubConfig
	Scheduler SchedulerConfig
	Features  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PARKGOLF_APP_ENV" required:"true"`
	Port         string `envconfig:"PARKGOLF_APP_PORT" default:"8084"`
	LogLevel     string `envconfig:"PARKGOLF_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PARKGOLF_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PARKGOLF_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PARKGOLF_DB_DSN"`
	Driver string `envconfig:"PARKGOLF_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PARKGOLF_DB_HOST"`
	Port     int    `envconfig:"PARKGOLF_DB_PORT" default:"5432"`
	User     string `envconfig:"PARKGOLF_DB_USER"`
	Password string `envconfig:"PARKGOLF_DB_PASSWORD"`
	Name     string `envconfig:"PARKGOLF_DB_NAME"`
	SSLMode  string `envconfig:"PARKGOLF_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARKGOLF_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARKGOLF_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARKGOLF_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARKGOLF_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either PARKGOLF_DB_DSN or host/user/name settings are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PARKGOLF_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PARKGOLF_REDIS_ADDR"`
	Password     string        `envconfig:"PARKGOLF_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARKGOLF_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARKGOLF_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARKGOLF_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARKGOLF_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARKGOLF_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARKGOLF_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AdminAuthConfig gates the dead-letter admin endpoints. This is a shared
// bearer secret, not a user identity system.
type AdminAuthConfig struct {
	JWTSecret string `envconfig:"PARKGOLF_ADMIN_JWT_SECRET"`
	Issuer    string `envconfig:"PARKGOLF_ADMIN_JWT_ISSUER" default:"parkgolf-admin"`
}

// FirebaseConfig carries the push-provider credential sources. The sender
// tries them in order: inline service-account JSON, split credentials, then
// an application-default credentials file. With none set, pushes are
// simulated.
type FirebaseConfig struct {
	ServiceAccountJSON string `envconfig:"PARKGOLF_GCP_SA_KEY"`
	ProjectID          string `envconfig:"PARKGOLF_FIREBASE_PROJECT_ID"`
	ClientEmail        string `envconfig:"PARKGOLF_FIREBASE_CLIENT_EMAIL"`
	PrivateKey         string `envconfig:"PARKGOLF_FIREBASE_PRIVATE_KEY"`
	CredentialsFile    string `envconfig:"PARKGOLF_GOOGLE_APPLICATION_CREDENTIALS"`
}

// DevicesConfig points at the IAM service's device-token registry.
type DevicesConfig struct {
	BaseURL string        `envconfig:"PARKGOLF_DEVICES_BASE_URL"`
	Timeout time.Duration `envconfig:"PARKGOLF_DEVICES_TIMEOUT" default:"5s"`
}

type EmailConfig struct {
	APIKey    string        `envconfig:"PARKGOLF_EMAIL_API_KEY"`
	BaseURL   string        `envconfig:"PARKGOLF_EMAIL_BASE_URL" default:"https://api.sendgrid.com/v3"`
	FromEmail string        `envconfig:"PARKGOLF_EMAIL_FROM" default:"noreply@parkgolf.app"`
	Timeout   time.Duration `envconfig:"PARKGOLF_EMAIL_TIMEOUT" default:"10s"`
}

type SMSConfig struct {
	APIKey  string        `envconfig:"PARKGOLF_SMS_API_KEY"`
	BaseURL string        `envconfig:"PARKGOLF_SMS_BASE_URL"`
	Sender  string        `envconfig:"PARKGOLF_SMS_SENDER"`
	Timeout time.Duration `envconfig:"PARKGOLF_SMS_TIMEOUT" default:"10s"`
}

type PubSubConfig struct {
	ProjectID      string        `envconfig:"PARKGOLF_PUBSUB_PROJECT_ID"`
	Subscription   string        `envconfig:"PARKGOLF_PUBSUB_SUBSCRIPTION" default:"notify-domain-events"`
	IdempotencyTTL time.Duration `envconfig:"PARKGOLF_PUBSUB_IDEMPOTENCY_TTL" default:"720h"`
}

// SchedulerConfig sets the tick cadences of the delivery pipeline. Defaults
// follow the production schedule; tests shrink them.
type SchedulerConfig struct {
	DueInterval      time.Duration `envconfig:"PARKGOLF_SCHEDULER_DUE_INTERVAL" default:"1m"`
	RetryInterval    time.Duration `envconfig:"PARKGOLF_SCHEDULER_RETRY_INTERVAL" default:"1m"`
	SweepInterval    time.Duration `envconfig:"PARKGOLF_SCHEDULER_SWEEP_INTERVAL" default:"5m"`
	CleanupInterval  time.Duration `envconfig:"PARKGOLF_SCHEDULER_CLEANUP_INTERVAL" default:"24h"`
	StatsInterval    time.Duration `envconfig:"PARKGOLF_SCHEDULER_STATS_INTERVAL" default:"1h"`
	BatchLimit       int           `envconfig:"PARKGOLF_SCHEDULER_BATCH_LIMIT" default:"100"`
	ClaimLease       time.Duration `envconfig:"PARKGOLF_SCHEDULER_CLAIM_LEASE" default:"2m"`
	RetentionDays    int           `envconfig:"PARKGOLF_DLQ_RETENTION_DAYS" default:"30"`
	DeliveryTimeout  time.Duration `envconfig:"PARKGOLF_DELIVERY_TIMEOUT" default:"30s"`
	DeliveryWorkers  int           `envconfig:"PARKGOLF_DELIVERY_WORKERS" default:"4"`
	LockTTL          time.Duration `envconfig:"PARKGOLF_SCHEDULER_LOCK_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PARKGOLF_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PARKGOLF_AUTO_MIGRATE" default:"false"`
}
