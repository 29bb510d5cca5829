package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/validation"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	config.MustNonEmpty(logger,
		config.Required{Env: "JWT_SECRET", Value: string(cfg.JWTSecret)},
		config.Required{Env: "DATABASE_URL", Value: cfg.DatabaseURL},
	)
	ctx := logging.IntoContext(context.Background(), logger)

	gdb, err := db.Open(ctx, db.Options{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL, PGDriver: cfg.PGDriver})
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		log.Fatal(err)
	}
	r := repo.New(gdb)
	if n, err := r.DeleteExpiredTokens(ctx, time.Now().UTC()); err != nil {
		logger.Warn("prune_tokens_failed", "error", err)
	} else if n > 0 {
		logger.Info("prune_tokens_success", "deleted", n)
	}

	files, err := storage.NewLocal(cfg.StorageDir, cfg.StorageURL)
	if err != nil {
		log.Fatal(err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewProducer(cfg.KafkaBrokers)
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

	maxImage := cfg.MaxImageBytes
	if maxImage <= 0 {
		maxImage = service.DefaultMaxImageBytes
	}

	e := httpserver.New(&httpserver.Deps{
		DB:     gdb,
		Logger: logger,
		Auth: &service.AuthService{
			Users:     r,
			Tokens:    r,
			Issuer:    tokens.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
			Validator: validation.New(),
			Events:    publisher,
		},
		Catalog: &service.CatalogService{
			Repo:          r,
			Files:         files,
			Events:        publisher,
			Index:         index,
			MaxImageBytes: maxImage,
		},
		URL:         files.URL,
		CORSOrigins: cfg.CORSOrigins,
		StorageDir:  cfg.StorageDir,
		StorageURL:  cfg.StorageURL,
		FrontendDir: cfg.FrontendDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http_server_started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}

	logger.Info("shutdown complete")
}
