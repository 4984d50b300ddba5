package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "INTROCAR"

	EnvAppEnv       = "INTROCAR_APP_ENV"
	EnvPort         = "INTROCAR_APP_PORT"
	EnvDBDSN        = "INTROCAR_DB_DSN"
	EnvDBHost       = "INTROCAR_DB_HOST"
	EnvDBUser       = "INTROCAR_DB_USER"
	EnvDBName       = "INTROCAR_DB_NAME"
	EnvRedisURL     = "INTROCAR_REDIS_URL"
	EnvAdminSecret  = "INTROCAR_ADMIN_JWT_SECRET"
	EnvAdminIssuer  = "INTROCAR_ADMIN_JWT_ISSUER"
	EnvSquareToken  = "INTROCAR_SQUARE_ACCESS_TOKEN"
	EnvSquareLocale = "INTROCAR_SQUARE_LOCATION_ID"
	EnvGCPProjectID = "INTROCAR_GCP_PROJECT_ID"
	EnvOrdersTopic  = "INTROCAR_PUBSUB_ORDERS_TOPIC"

	AppEnvDev  = "dev"
	AppEnvTest = "test"
	AppEnvProd = "prod"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	AdminJWT     AdminJWTConfig
	Catalog      CatalogConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	Square       SquareConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	env := strings.ToLower(strings.TrimSpace(c.App.Env))
	switch env {
	case AppEnvDev, AppEnvTest, AppEnvProd:
	default:
		return fmt.Errorf("%s must be one of dev, test, prod (got %q)", EnvAppEnv, c.App.Env)
	}
	if c.Catalog.SupersessionMaxDepth <= 0 {
		return fmt.Errorf("catalog supersession max depth must be positive")
	}
	if c.Catalog.ResolveTimeout <= 0 {
		return fmt.Errorf("catalog resolve timeout must be positive")
	}
	if c.App.IsProd() && c.AdminJWT.Secret == "" {
		return fmt.Errorf("%s is required in prod", EnvAdminSecret)
	}
	return nil
}

type AppConfig struct {
	Name         string `envconfig:"INTROCAR_APP_NAME" default:"introcar-api"`
	Env          string `envconfig:"INTROCAR_APP_ENV" required:"true"`
	Port         string `envconfig:"INTROCAR_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"INTROCAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"INTROCAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"INTROCAR_DB_DSN"`

	LegacyHost     string `envconfig:"INTROCAR_DB_HOST"`
	LegacyPort     int    `envconfig:"INTROCAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"INTROCAR_DB_USER"`
	LegacyPassword string `envconfig:"INTROCAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"INTROCAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"INTROCAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"INTROCAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"INTROCAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"INTROCAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"INTROCAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// The catalog is loaded right after connecting, so boot waits for
	// Postgres instead of failing on the first refused dial.
	ConnectAttempts int           `envconfig:"INTROCAR_DB_CONNECT_ATTEMPTS" default:"5"`
	ConnectTimeout  time.Duration `envconfig:"INTROCAR_DB_CONNECT_TIMEOUT" default:"5s"`
	ConnectBackoff  time.Duration `envconfig:"INTROCAR_DB_CONNECT_BACKOFF" default:"1s"`
	SlowQuery       time.Duration `envconfig:"INTROCAR_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL            string        `envconfig:"INTROCAR_REDIS_URL"`
	Address        string        `envconfig:"INTROCAR_REDIS_ADDR" default:"localhost:6379"`
	Password       string        `envconfig:"INTROCAR_REDIS_PASSWORD"`
	DB             int           `envconfig:"INTROCAR_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"INTROCAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"INTROCAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"INTROCAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"INTROCAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"INTROCAR_REDIS_WRITE_TIMEOUT" default:"5s"`
	CatalogChannel string        `envconfig:"INTROCAR_REDIS_CATALOG_CHANNEL" default:"catalog:invalidate"`
	TenantCacheTTL time.Duration `envconfig:"INTROCAR_REDIS_TENANT_CACHE_TTL" default:"5m"`
}

// AdminJWTConfig verifies bearer tokens minted by the admin identity provider.
type AdminJWTConfig struct {
	Secret            string `envconfig:"INTROCAR_ADMIN_JWT_SECRET"`
	Issuer            string `envconfig:"INTROCAR_ADMIN_JWT_ISSUER" default:"introcar-admin"`
	ExpirationMinutes int    `envconfig:"INTROCAR_ADMIN_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CatalogConfig struct {
	SuggestionLimit      int           `envconfig:"INTROCAR_CATALOG_SUGGESTION_LIMIT" default:"5"`
	SupersessionMaxDepth int           `envconfig:"INTROCAR_CATALOG_SUPERSESSION_MAX_DEPTH" default:"32"`
	ResolveTimeout       time.Duration `envconfig:"INTROCAR_CATALOG_RESOLVE_TIMEOUT" default:"2s"`
	VariantSuffixes      []string      `envconfig:"INTROCAR_CATALOG_VARIANT_SUFFIXES" default:"-X,-A,-U"`
	AutoReload           bool          `envconfig:"INTROCAR_CATALOG_AUTO_RELOAD" default:"true"`
}

type CartConfig struct {
	TTL      time.Duration `envconfig:"INTROCAR_CART_TTL" default:"72h"`
	MaxLines int           `envconfig:"INTROCAR_CART_MAX_LINES" default:"200"`
}

type CheckoutConfig struct {
	Currency    string `envconfig:"INTROCAR_CHECKOUT_CURRENCY" default:"USD"`
	RedirectURL string `envconfig:"INTROCAR_CHECKOUT_REDIRECT_URL"`
}

type SquareConfig struct {
	AccessToken         string        `envconfig:"INTROCAR_SQUARE_ACCESS_TOKEN"`
	Env                 string        `envconfig:"INTROCAR_SQUARE_ENV" default:"sandbox"`
	LocationID          string        `envconfig:"INTROCAR_SQUARE_LOCATION_ID"`
	WebhookSignatureKey string        `envconfig:"INTROCAR_SQUARE_WEBHOOK_SIGNATURE_KEY"`
	WebhookURL          string        `envconfig:"INTROCAR_SQUARE_WEBHOOK_URL"`
	WebhookEventTTL     time.Duration `envconfig:"INTROCAR_SQUARE_WEBHOOK_EVENT_TTL" default:"72h"`
}

// Enabled reports whether hosted checkout can reach Square.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != "" && strings.TrimSpace(s.LocationID) != ""
}

// WebhooksEnabled reports whether payment notifications can be verified.
func (s SquareConfig) WebhooksEnabled() bool {
	return strings.TrimSpace(s.WebhookSignatureKey) != "" && strings.TrimSpace(s.WebhookURL) != ""
}

type GCPConfig struct {
	ProjectID              string `envconfig:"INTROCAR_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"INTROCAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"INTROCAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"INTROCAR_PUBSUB_ORDERS_TOPIC" default:"introcar-orders"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"INTROCAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"INTROCAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"INTROCAR_OUTBOX_MAX_ATTEMPTS" default:"10"`

	// Settlement events carry captured payments and outlast transient
	// Pub/Sub outages longer than the other order events.
	SettlementMaxAttempts int `envconfig:"INTROCAR_OUTBOX_SETTLEMENT_MAX_ATTEMPTS" default:"30"`
}

// CronConfig drives the scheduled maintenance worker.
type CronConfig struct {
	Interval        time.Duration `envconfig:"INTROCAR_CRON_INTERVAL" default:"15m"`
	LockTTL         time.Duration `envconfig:"INTROCAR_CRON_LOCK_TTL" default:"10m"`
	PendingOrderTTL time.Duration `envconfig:"INTROCAR_CRON_PENDING_ORDER_TTL" default:"72h"`
	ExpiryBatchSize int           `envconfig:"INTROCAR_CRON_EXPIRY_BATCH_SIZE" default:"200"`
	OutboxRetention time.Duration `envconfig:"INTROCAR_CRON_OUTBOX_RETENTION" default:"720h"`
}

type RateLimitConfig struct {
	ChassisLookupWindow  time.Duration `envconfig:"INTROCAR_RATE_LIMIT_CHASSIS_WINDOW" default:"1m"`
	ChassisLookupIPLimit int           `envconfig:"INTROCAR_RATE_LIMIT_CHASSIS_IP_LIMIT" default:"120"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"INTROCAR_CORS_ALLOWED_ORIGINS" default:"*"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"INTROCAR_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
