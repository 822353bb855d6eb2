package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/coursestore/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read into Config.
const EnvPrefix = "STOREFRONT_"

// parseEnv loads the .env file (the -env-file flag, or ./.env when present)
// and overlays STOREFRONT_* variables. Variables already set in the process
// environment win over the file. Unset variables leave cfg untouched.
func parseEnv(cfg *Config, args []string) {
	path := flagx.EnvFile(args)
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
