package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName+"-seed")
	config.MustNonEmpty(logger, config.Required{Env: "DATABASE_URL", Value: cfg.DatabaseURL})
	ctx := logging.IntoContext(context.Background(), logger)

	gdb, err := db.Open(ctx, db.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL, PGDriver: cfg.PGDriver})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = db.Close(gdb) }()

	if err := db.Migrate(ctx, gdb); err != nil {
		log.Fatal(err)
	}

	var index search.Index
	if cfg.ESURL != "" {
		client, err := search.NewClient(ctx, search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			log.Fatal(err)
		}
		es := search.NewElastic(client, cfg.ESIndex)
		if err := es.EnsureIndex(ctx); err != nil {
			log.Fatal(err)
		}
		index = es
	}

	if _, err := seed.Run(ctx, repo.New(gdb), index); err != nil {
		log.Fatal(err)
	}
}
