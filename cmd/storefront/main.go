package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/coursestore/internal/buildinfo"
	"github.com/dmitrijs2005/coursestore/internal/catalog"
	"github.com/dmitrijs2005/coursestore/internal/cli"
	"github.com/dmitrijs2005/coursestore/internal/config"
	"github.com/dmitrijs2005/coursestore/internal/logging"
	"github.com/dmitrijs2005/coursestore/internal/repositories/kv"
	"github.com/dmitrijs2005/coursestore/internal/services"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	logger, err := logging.New(logging.Options{
		Backend: cfg.LogBackend,
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
	}, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if z, ok := logger.(*logging.ZapLogger); ok {
		defer z.Sync()
	}

	store, err := kv.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer store.Close()

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := cli.NewApp(cfg, services.New(store, cat, cfg, logger), logger)
	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "storefront stopped", "error", err)
		store.Close()
		os.Exit(1)
	}

}
