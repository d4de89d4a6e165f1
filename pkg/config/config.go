package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Paystack     PaystackConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NAIRAMART_APP_ENV" required:"true"`
	Port         string `envconfig:"NAIRAMART_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"NAIRAMART_APP_BASE_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"NAIRAMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NAIRAMART_LOG_WARN_STACK" default:"false"`

	AllowedOrigins []string `envconfig:"NAIRAMART_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NAIRAMART_DB_DSN"`
	Driver string `envconfig:"NAIRAMART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"NAIRAMART_DB_HOST"`
	Port     int    `envconfig:"NAIRAMART_DB_PORT" default:"5432"`
	User     string `envconfig:"NAIRAMART_DB_USER"`
	Password string `envconfig:"NAIRAMART_DB_PASSWORD"`
	Name     string `envconfig:"NAIRAMART_DB_NAME"`
	SSLMode  string `envconfig:"NAIRAMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NAIRAMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NAIRAMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NAIRAMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NAIRAMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NAIRAMART_REDIS_URL"`
	Address      string        `envconfig:"NAIRAMART_REDIS_ADDR"`
	Password     string        `envconfig:"NAIRAMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"NAIRAMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NAIRAMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NAIRAMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NAIRAMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NAIRAMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NAIRAMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NAIRAMART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NAIRAMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NAIRAMART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PaystackConfig struct {
	SecretKey      string        `envconfig:"NAIRAMART_PAYSTACK_SECRET_KEY" required:"true"`
	BaseURL        string        `envconfig:"NAIRAMART_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL    string        `envconfig:"NAIRAMART_PAYSTACK_CALLBACK_URL"`
	RequestTimeout time.Duration `envconfig:"NAIRAMART_PAYSTACK_REQUEST_TIMEOUT" default:"15s"`
	WebhookTTL     time.Duration `envconfig:"NAIRAMART_PAYSTACK_WEBHOOK_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NAIRAMART_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, val := range map[string]string{
		"NAIRAMART_DB_HOST": db.Host,
		"NAIRAMART_DB_USER": db.User,
		"NAIRAMART_DB_NAME": db.Name,
	} {
		if val == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either NAIRAMART_DB_DSN or %s are required", strings.Join(missing, ", "))
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
