package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Store         StoreConfig
	DB            DBConfig
	Redis         RedisConfig
	Session       SessionConfig
	Commerce      CommerceConfig
	Analysis      AnalysisConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.Driver == StoreDriverSQL {
		if err := cfg.DB.EnsureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Store.Driver == StoreDriverRedis && !cfg.Redis.Configured() {
		return nil, fmt.Errorf("%s or %s is required for the redis store", EnvRedisURL, EnvRedisAddr)
	}
	if _, err := cfg.Commerce.TaxRateDecimal(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AGRIGEN_APP_ENV" required:"true"`
	Port         string `envconfig:"AGRIGEN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGRIGEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGRIGEN_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"AGRIGEN_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// ConsoleLogs reports whether logs should be rendered for humans instead of as JSON.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig selects the backend that persists per-session entries.
type StoreConfig struct {
	Driver      string        `envconfig:"AGRIGEN_STORE_DRIVER" default:"memory"`
	EntryTTL    time.Duration `envconfig:"AGRIGEN_STORE_ENTRY_TTL" default:"720h"`
	IdleSession time.Duration `envconfig:"AGRIGEN_STORE_IDLE_SESSION" default:"30m"`
}

func (s *StoreConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StoreDriverMemory, StoreDriverRedis, StoreDriverSQL:
		return nil
	}
	return fmt.Errorf("unsupported %s %q", EnvStoreDriver, s.Driver)
}

type DBConfig struct {
	DSN    string `envconfig:"AGRIGEN_DB_DSN"`
	Driver string `envconfig:"AGRIGEN_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"AGRIGEN_DB_HOST"`
	Port     int    `envconfig:"AGRIGEN_DB_PORT" default:"5432"`
	User     string `envconfig:"AGRIGEN_DB_USER"`
	Password string `envconfig:"AGRIGEN_DB_PASSWORD"`
	Name     string `envconfig:"AGRIGEN_DB_NAME"`
	SSLMode  string `envconfig:"AGRIGEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGRIGEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGRIGEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGRIGEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGRIGEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the SQL store runs on the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"AGRIGEN_REDIS_URL"`
	Address      string        `envconfig:"AGRIGEN_REDIS_ADDR"`
	Password     string        `envconfig:"AGRIGEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGRIGEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGRIGEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGRIGEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGRIGEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGRIGEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGRIGEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a redis endpoint was supplied.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

// SessionConfig signs the bearer tokens that carry the session id.
type SessionConfig struct {
	Secret     string `envconfig:"AGRIGEN_SESSION_SECRET" required:"true"`
	Issuer     string `envconfig:"AGRIGEN_SESSION_ISSUER" default:"agrigen"`
	TTLMinutes int    `envconfig:"AGRIGEN_SESSION_TTL_MINUTES" default:"43200"`
}

// TTL returns the token lifetime configured in minutes.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

type CommerceConfig struct {
	SeedUnitPrice int64  `envconfig:"AGRIGEN_SEED_UNIT_PRICE" default:"299"`
	ShippingFlat  int64  `envconfig:"AGRIGEN_SHIPPING_FLAT" default:"50"`
	TaxRate       string `envconfig:"AGRIGEN_TAX_RATE" default:"0.18"`
}

// TaxRateDecimal parses the configured tax rate.
func (c CommerceConfig) TaxRateDecimal() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvTaxRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", EnvTaxRate)
	}
	return rate, nil
}

type AnalysisConfig struct {
	BaseURL          string        `envconfig:"AGRIGEN_ANALYSIS_BASE_URL" default:"http://localhost:5000"`
	Timeout          time.Duration `envconfig:"AGRIGEN_ANALYSIS_TIMEOUT" default:"60s"`
	DefaultLocation  string        `envconfig:"AGRIGEN_ANALYSIS_DEFAULT_LOCATION" default:"Bangalore,IN"`
	MaxUploadMB      int           `envconfig:"AGRIGEN_ANALYSIS_MAX_UPLOAD_MB" default:"10"`
	BreakerFailures  uint32        `envconfig:"AGRIGEN_ANALYSIS_BREAKER_FAILURES" default:"5"`
	BreakerOpenDelay time.Duration `envconfig:"AGRIGEN_ANALYSIS_BREAKER_OPEN_DELAY" default:"30s"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"AGRIGEN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"AGRIGEN_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"AGRIGEN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"AGRIGEN_AUTO_MIGRATE" default:"false"`
}

// EnsureDSN fills DSN from the discrete AGRIGEN_DB_* settings when it is not set directly.
func (db *DBConfig) EnsureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
