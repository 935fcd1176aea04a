package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hmis-dev/hmis-sdk/pkg/logging"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"hmis"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"hmis"`
	Password string `env:"DB_PASSWORD" envDefault:"hmis"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"20"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

type OpenTelemetryOptions struct {
	Enabled      bool   `env:"OTEL_ENABLED" envDefault:"false"`
	CollectorURL string `env:"OTEL_COLLECTOR_URL" envDefault:"localhost:4318"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"hmis"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int  `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	return nil
}

type AuthzOptions struct {
	ModelPath      string `env:"AUTHZ_MODEL_PATH" envDefault:"config/access/model.conf"`
	PolicyPath     string `env:"AUTHZ_POLICY_PATH" envDefault:"config/access/policy.csv"`
	FlagConfigPath string `env:"AUTHZ_FLAG_CONFIG" envDefault:"config/access/authz_flags.yaml"`
	Mode           string `env:"AUTHZ_MODE" envDefault:"shadow"`
}

type CacheOptions struct {
	ProgramTTL       time.Duration `env:"CACHE_PROGRAM_TTL" envDefault:"30m"`
	UserGroupTTL     time.Duration `env:"CACHE_USER_GROUP_TTL" envDefault:"60m"`
	CanWriteCocTTL   time.Duration `env:"CACHE_CAN_WRITE_COC_TTL" envDefault:"3h"`
	CanWriteCocSize  uint64        `env:"CACHE_CAN_WRITE_COC_SIZE" envDefault:"10000"`
	SystemSettingTTL time.Duration `env:"CACHE_SYSTEM_SETTING_TTL" envDefault:"12h"`
}

// Validate rejects non-positive cache lifetimes.
func (c *CacheOptions) Validate() error {
	for name, ttl := range map[string]time.Duration{
		"CACHE_PROGRAM_TTL":        c.ProgramTTL,
		"CACHE_USER_GROUP_TTL":     c.UserGroupTTL,
		"CACHE_CAN_WRITE_COC_TTL":  c.CanWriteCocTTL,
		"CACHE_SYSTEM_SETTING_TTL": c.SystemSettingTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("invalid %s=%s (must be positive)", name, ttl)
		}
	}
	if c.CanWriteCocSize == 0 {
		return fmt.Errorf("invalid CACHE_CAN_WRITE_COC_SIZE=0")
	}
	return nil
}

type EventOptions struct {
	PartitionSize int `env:"EVENT_PARTITION_SIZE" envDefault:"20000"`
}

type Configuration struct {
	Database      DatabaseOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions
	Authz         AuthzOptions
	Cache         CacheOptions
	Event         EventOptions

	ServerPort       int    `env:"PORT" envDefault:"8080"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	Origin           string `env:"ORIGIN" envDefault:"http://localhost:8080"`
	CORSOrigins      string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// Looked up on every request; a random uuidv4 is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Falls back to request.RemoteAddr when absent.
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	// Set by the authenticating gateway in front of the API.
	UserHeader string `env:"USER_HEADER" envDefault:"X-Hmis-User"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas and whitespace.
func (c *Configuration) AllowedOrigins() []string {
	var out []string
	for _, part := range strings.FieldsFunc(c.CORSOrigins, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	}) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) validate() error {
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache configuration error: %w", err)
	}
	if c.Event.PartitionSize <= 0 {
		return fmt.Errorf("invalid EVENT_PARTITION_SIZE=%d (must be positive)", c.Event.PartitionSize)
	}
	mode := strings.ToLower(strings.TrimSpace(c.Authz.Mode))
	switch mode {
	case "", "disabled", "shadow", "enforce":
	default:
		return fmt.Errorf("invalid AUTHZ_MODE=%q (expected disabled|shadow|enforce)", c.Authz.Mode)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
