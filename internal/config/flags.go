package config

import (
	"flag"

	"github.com/dmitrijs2005/coursestore/internal/flagx"
)

var knownFlags = []string{
	"-backend", "-dsn", "-prefix",
	"-ttl", "-payment-delay", "-catalog",
	"-admin-email",
	"-log-backend", "-log-format", "-log-level",
}

// parseFlags overlays cfg with command-line flags.
//
//	-backend string        storage backend
//	-dsn string            storage DSN / path / URL
//	-prefix string         key prefix for redis and s3
//	-ttl duration          session lifetime
//	-payment-delay dur     simulated payment processing time
//	-catalog string        course catalog file (YAML or JSON)
//	-admin-email string    operator account email
//	-log-backend string    slog | zap
//	-log-format string     text | json
//	-log-level string      debug | info | warn | error
//
// Unknown arguments are filtered out first with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.StorageBackend, "backend", cfg.StorageBackend, "storage backend: memory, file, sqlite, postgres, redis, s3")
	fs.StringVar(&cfg.StorageDSN, "dsn", cfg.StorageDSN, "storage DSN, path or URL")
	fs.StringVar(&cfg.KeyPrefix, "prefix", cfg.KeyPrefix, "key prefix for redis and s3 backends")
	fs.DurationVar(&cfg.SessionTTL, "ttl", cfg.SessionTTL, "session lifetime")
	fs.DurationVar(&cfg.PaymentDelay, "payment-delay", cfg.PaymentDelay, "simulated payment processing time")
	fs.StringVar(&cfg.CatalogFile, "catalog", cfg.CatalogFile, "course catalog file")
	fs.StringVar(&cfg.AdminEmail, "admin-email", cfg.AdminEmail, "operator account email")
	fs.StringVar(&cfg.LogBackend, "log-backend", cfg.LogBackend, "log backend: slog or zap")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
