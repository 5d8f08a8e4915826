package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hoodview/internal/auth"
	"hoodview/internal/broker"
	"hoodview/internal/config"
	"hoodview/internal/httpapi"
	"hoodview/internal/portfolio"
	"hoodview/internal/store"
	"hoodview/internal/util"
)

func main() {
	cfgPath := "config/hoodview.yaml"
	if p := os.Getenv("HOODVIEW_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	sessionStore, err := openSessionStore(cfg)
	if err != nil {
		log.Fatalf("failed to open session store: %v", err)
	}

	client := broker.NewClient(broker.Options{
		APIURL:          cfg.Robinhood.APIURL,
		NummusURL:       cfg.Robinhood.NummusURL,
		PhoenixURL:      cfg.Robinhood.PhoenixURL,
		ClientID:        cfg.Robinhood.ClientID,
		Timeout:         time.Duration(cfg.Robinhood.TimeoutSeconds) * time.Second,
		RateLimitPerMin: cfg.Robinhood.RateLimitPerMin,
	})

	clock := util.RealClock{}
	sessions := auth.NewSessions(sessionStore, clock)
	resolver := auth.NewChallengeResolver(client, clock)
	login := auth.NewService(client, sessions, auth.NewDeviceRegistry(), resolver, clock, cfg.Robinhood.TokenTTLSeconds)

	var journal *store.TradeJournal
	if cfg.Storage.DataDir != "" {
		journal = store.NewTradeJournal(cfg.Storage.DataDir)
	}
	pf := portfolio.NewService(client, sessions, journal, clock)

	api := httpapi.NewServer(login, pf, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("hoodview-server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

// openSessionStore selects the configured session store backend.
func openSessionStore(cfg *config.Config) (store.SessionStore, error) {
	switch cfg.Storage.Sessions {
	case "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = "hoodview.db"
		}
		return store.NewSQLiteStore(path)
	case "", "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Storage.Sessions)
	}
}
