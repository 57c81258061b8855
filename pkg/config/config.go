package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	State         StateConfig
	Backend       BackendConfig
	OTP           OTPConfig
	Checkout      CheckoutConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.State.validate(); err != nil {
		return nil, err
	}
	if cfg.State.Backend == StateBackendSQL {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// MigrateConfig is the subset cmd/migrate needs: the database and logging.
type MigrateConfig struct {
	Env       string `envconfig:"AGROWORLD_APP_ENV" default:"dev"`
	LogLevel  string `envconfig:"AGROWORLD_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"AGROWORLD_LOG_FORMAT" default:"json"`
	DB        DBConfig
}

// LoadMigrate reads MigrateConfig. A DSN, given directly or built from the
// legacy host settings, is required.
func LoadMigrate() (*MigrateConfig, error) {
	var cfg MigrateConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGROWORLD_APP_ENV" required:"true"`
	Port         string `envconfig:"AGROWORLD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGROWORLD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGROWORLD_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"AGROWORLD_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AGROWORLD_DB_DSN"`
	Driver string `envconfig:"AGROWORLD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGROWORLD_DB_HOST"`
	LegacyPort     int    `envconfig:"AGROWORLD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGROWORLD_DB_USER"`
	LegacyPassword string `envconfig:"AGROWORLD_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGROWORLD_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGROWORLD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGROWORLD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGROWORLD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGROWORLD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGROWORLD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"AGROWORLD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGROWORLD_REDIS_ADDR"`
	Password     string        `envconfig:"AGROWORLD_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGROWORLD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGROWORLD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGROWORLD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGROWORLD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGROWORLD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGROWORLD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AGROWORLD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AGROWORLD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AGROWORLD_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"AGROWORLD_SESSION_TTL_MINUTES" default:"10080"`
}

// SessionTTL returns how long a storefront session (and its persisted state) lives.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

// StateConfig selects where the per-session client state is persisted.
type StateConfig struct {
	Backend string `envconfig:"AGROWORLD_STATE_BACKEND" default:"redis"`
	// Secret keys the sealing of verification payloads such as pending signups.
	Secret string `envconfig:"AGROWORLD_STATE_SECRET" required:"true"`
}

func (s StateConfig) validate() error {
	switch s.Backend {
	case StateBackendRedis, StateBackendSQL:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s", EnvStateBackend, StateBackendRedis, StateBackendSQL)
}

// BackendConfig points at the remote REST backend that owns catalog, cart and orders.
type BackendConfig struct {
	BaseURL string        `envconfig:"AGROWORLD_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"AGROWORLD_BACKEND_TIMEOUT" default:"15s"`
}

// OTPConfig configures the SMS gateway used for phone verification.
type OTPConfig struct {
	BaseURL       string        `envconfig:"AGROWORLD_OTP_BASE_URL" default:"https://api.getshoutout.com/otpservice"`
	APIKey        string        `envconfig:"AGROWORLD_OTP_API_KEY"`
	Source        string        `envconfig:"AGROWORLD_OTP_SOURCE" default:"ShoutDEMO"`
	Timeout       time.Duration `envconfig:"AGROWORLD_OTP_TIMEOUT" default:"10s"`
	ResendAfter   time.Duration `envconfig:"AGROWORLD_OTP_RESEND_AFTER" default:"60s"`
	SuccessStatus string        `envconfig:"AGROWORLD_OTP_SUCCESS_STATUS" default:"1000"`
	CodeLength    int           `envconfig:"AGROWORLD_OTP_CODE_LENGTH" default:"5"`
}

type CheckoutConfig struct {
	MinLeadDays int    `envconfig:"AGROWORLD_CHECKOUT_MIN_LEAD_DAYS" default:"3"`
	Timezone    string `envconfig:"AGROWORLD_CHECKOUT_TIMEZONE" default:"Asia/Colombo"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c CheckoutConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

type AuthRateLimitConfig struct {
	LoginWindow   time.Duration `envconfig:"AGROWORLD_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginKeyLimit int           `envconfig:"AGROWORLD_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit  int           `envconfig:"AGROWORLD_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	OTPWindow     time.Duration `envconfig:"AGROWORLD_AUTH_RATE_LIMIT_OTP_WINDOW" default:"10m"`
	OTPKeyLimit   int           `envconfig:"AGROWORLD_AUTH_RATE_LIMIT_OTP_PHONE_LIMIT" default:"5"`
	OTPIPLimit    int           `envconfig:"AGROWORLD_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"AGROWORLD_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:4200"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AGROWORLD_AUTO_MIGRATE" default:"false"`
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
