package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Schema    SchemaConfig
	Session   SessionConfig
	Password  PasswordConfig
	SMTP      SMTPConfig
	OIDC      OIDCConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Addr            string        `env:"HTTP_ADDR,default=:8080"`
	GinMode         string        `env:"GIN_MODE,default=release"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS,default=*"`
}

type LoggerConfig struct {
	Level             string `env:"LOG_LEVEL,default=info"`
	Encoding          string `env:"LOG_ENCODING,default=json"`
	Development       bool   `env:"LOG_DEVELOPMENT,default=false"`
	DisableCaller     bool   `env:"LOG_DISABLE_CALLER,default=false"`
	DisableStacktrace bool   `env:"LOG_DISABLE_STACKTRACE,default=true"`
}

type DatabaseConfig struct {
	Host            string        `env:"DATABASE_HOST,default=localhost"`
	Port            int           `env:"DATABASE_PORT,default=5432"`
	User            string        `env:"DATABASE_USER,default=postgres"`
	Password        string        `env:"DATABASE_PASSWORD,default=postgres"`
	Name            string        `env:"DATABASE_NAME,default=storefront"`
	SSLMode         string        `env:"DATABASE_SSLMODE,default=disable"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=5m"`
	AutoMigrate     bool          `env:"DATABASE_AUTO_MIGRATE,default=true"`
}

// DSN renders the connection string understood by the postgres driver.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type SchemaConfig struct {
	Dir string `env:"SCHEMA_DIR,default=schemas"`
}

type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET,required"`
	CookieName string        `env:"SESSION_COOKIE_NAME,default=session"`
	TTL        time.Duration `env:"SESSION_TTL,default=168h"`
	Secure     bool          `env:"SESSION_SECURE,default=false"`
}

type PasswordConfig struct {
	Time    uint32 `env:"ARGON2_TIME,default=1"`
	Memory  uint32 `env:"ARGON2_MEMORY_KIB,default=65536"`
	Threads uint8  `env:"ARGON2_THREADS,default=2"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,default=587"`
	Username string `env:"SMTP_USERNAME,default=no-reply@localhost"`
	Password string `env:"SMTP_PASSWORD"`
}

type OIDCConfig struct {
	Issuer   string `env:"OIDC_ISSUER"`
	ClientID string `env:"OIDC_CLIENT_ID"`
}

// Enabled reports whether bearer ID tokens should be accepted.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != "" && o.ClientID != ""
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `env:"RATE_LIMIT_RPS,default=5"`
	Burst             int     `env:"RATE_LIMIT_BURST,default=10"`
}

// MinSessionSecretLength is the shortest accepted HS256 session secret.
const MinSessionSecretLength = 32

// Load reads an optional .env file and decodes the environment into a Config.
// Malformed values and a missing or short session secret are errors.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if len(cfg.Session.Secret) < MinSessionSecretLength {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSessionSecretLength)
	}
	return &cfg, nil
}
