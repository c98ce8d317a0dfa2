package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Tokens        TokensConfig
	Query         QueryConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Mail          MailConfig
	GCP           GCPConfig
	Stripe        StripeConfig
	Cron          CronConfig
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
	if c.JWT.ExpiresInDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvJWTExpiresInDays)
	}
	if !c.DB.UsesSQLite() && !strings.EqualFold(c.DB.Driver, DBDriverPostgres) {
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.Mail.Driver == MailDriverPubSub {
		if c.GCP.ProjectID == "" || c.Mail.Topic == "" {
			return fmt.Errorf("mail driver %q requires %s and %s", MailDriverPubSub, EnvGCPProjectID, EnvMailTopic)
		}
	} else if c.Mail.Driver != MailDriverLog {
		return fmt.Errorf("unsupported mail driver %q", c.Mail.Driver)
	}
	if c.Stripe.Enabled && c.Stripe.APIKey == "" {
		return fmt.Errorf("%s is required when payments are enabled", EnvStripeAPIKey)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"TOURBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"TOURBOOK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TOURBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOURBOOK_LOG_WARN_STACK" default:"false"`
	// PublicURL overrides the request origin when building links sent to users.
	PublicURL      string   `envconfig:"TOURBOOK_PUBLIC_URL"`
	AllowedOrigins []string `envconfig:"TOURBOOK_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN        string `envconfig:"TOURBOOK_DB_DSN"`
	Driver     string `envconfig:"TOURBOOK_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"TOURBOOK_SQLITE_PATH" default:"tourbook.db"`

	Host     string `envconfig:"TOURBOOK_DB_HOST"`
	Port     int    `envconfig:"TOURBOOK_DB_PORT" default:"5432"`
	User     string `envconfig:"TOURBOOK_DB_USER"`
	Password string `envconfig:"TOURBOOK_DB_PASSWORD"`
	Name     string `envconfig:"TOURBOOK_DB_NAME"`
	SSLMode  string `envconfig:"TOURBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOURBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOURBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOURBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOURBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional; an empty URL disables rate limiting.
type RedisConfig struct {
	URL          string        `envconfig:"TOURBOOK_REDIS_URL"`
	PoolSize     int           `envconfig:"TOURBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOURBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOURBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOURBOOK_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"TOURBOOK_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type JWTConfig struct {
	Secret              string `envconfig:"TOURBOOK_JWT_SECRET" required:"true"`
	Issuer              string `envconfig:"TOURBOOK_JWT_ISSUER" default:"tourbook"`
	ExpiresInDays       int    `envconfig:"TOURBOOK_JWT_EXPIRES_IN_DAYS" default:"90"`
	CookieExpiresInDays int    `envconfig:"TOURBOOK_JWT_COOKIE_EXPIRES_IN_DAYS" default:"90"`
}

func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpiresInDays) * 24 * time.Hour
}

func (j JWTConfig) CookieTTL() time.Duration {
	if j.CookieExpiresInDays <= 0 {
		return j.TTL()
	}
	return time.Duration(j.CookieExpiresInDays) * 24 * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TOURBOOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TOURBOOK_ARGON_TIME" default:"1"`
	ArgonParallelism int `envconfig:"TOURBOOK_ARGON_PARALLELISM" default:"4"`
	ArgonSaltLen     int `envconfig:"TOURBOOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TOURBOOK_ARGON_KEY_LEN" default:"32"`
}

// TokensConfig controls the lifetime of single-use reset and confirmation tokens.
type TokensConfig struct {
	PasswordResetTTL time.Duration `envconfig:"TOURBOOK_PASSWORD_RESET_TTL" default:"10m"`
	EmailConfirmTTL  time.Duration `envconfig:"TOURBOOK_EMAIL_CONFIRM_TTL" default:"10m"`
}

type QueryConfig struct {
	DefaultLimit int `envconfig:"TOURBOOK_QUERY_DEFAULT_LIMIT" default:"10"`
	MaxLimit     int `envconfig:"TOURBOOK_QUERY_MAX_LIMIT" default:"100"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow       time.Duration `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit   int           `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit      int           `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
	ForgotWindow       time.Duration `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_FORGOT_WINDOW" default:"15m"`
	ForgotEmailLimit   int           `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_FORGOT_EMAIL_LIMIT" default:"3"`
	ForgotIPLimit      int           `envconfig:"TOURBOOK_AUTH_RATE_LIMIT_FORGOT_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate              bool `envconfig:"TOURBOOK_AUTO_MIGRATE" default:"false"`
	RequireEmailConfirmation bool `envconfig:"TOURBOOK_REQUIRE_EMAIL_CONFIRMATION" default:"false"`
}

type MailConfig struct {
	Driver string `envconfig:"TOURBOOK_MAIL_DRIVER" default:"log"`
	From   string `envconfig:"TOURBOOK_MAIL_FROM" default:"Tourbook <hello@tourbook.io>"`
	Topic  string `envconfig:"TOURBOOK_MAIL_TOPIC"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TOURBOOK_GCP_PROJECT_ID"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TOURBOOK_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"TOURBOOK_CRON_LOCK_TTL" default:"30m"`
}

type StripeConfig struct {
	Enabled  bool   `envconfig:"TOURBOOK_STRIPE_ENABLED" default:"false"`
	APIKey   string `envconfig:"TOURBOOK_STRIPE_API_KEY"`
	Secret   string `envconfig:"TOURBOOK_STRIPE_WEBHOOK_SECRET"`
	Env      string `envconfig:"TOURBOOK_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"TOURBOOK_STRIPE_CURRENCY" default:"usd"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// UsesSQLite reports whether the sqlite dialector was selected.
func (db DBConfig) UsesSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.UsesSQLite() {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
