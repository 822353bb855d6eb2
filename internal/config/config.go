package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the storefront.
//
// Values are layered: defaults, then the JSON file given with -c/-config,
// then .env and STOREFRONT_* environment variables, then command-line flags.
// Later sources take precedence over earlier ones.
type Config struct {
	// Storage
	StorageBackend string `env:"STORAGE_BACKEND"` // memory | file | sqlite | postgres | redis | s3
	StorageDSN     string `env:"STORAGE_DSN"`     // file path, sqlite path, postgres DSN or redis URL
	KeyPrefix      string `env:"KEY_PREFIX"`      // namespace for redis keys and s3 object names

	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`

	// Behaviour
	SessionTTL   time.Duration `env:"SESSION_TTL"`
	PaymentDelay time.Duration `env:"PAYMENT_DELAY"`
	CatalogFile  string        `env:"CATALOG_FILE"`

	// Operator account provisioned on startup.
	AdminName     string `env:"ADMIN_NAME"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Logging
	LogBackend string `env:"LOG_BACKEND"`
	LogFormat  string `env:"LOG_FORMAT"`
	LogLevel   string `env:"LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StorageBackend = "sqlite"
	c.StorageDSN = "coursestore.db"
	c.KeyPrefix = "coursestore/"
	c.S3Region = "us-east-1"

	c.SessionTTL = 24 * time.Hour
	c.PaymentDelay = 2 * time.Second

	// No operator account is provisioned unless AdminEmail is configured.
	c.AdminName = "Administrador"

	c.LogBackend = "slog"
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config from defaults, the JSON file, the
// environment and the command line. It panics if any source is malformed.
func LoadConfig() *Config {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
