package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/plexy44/doplen/internal/app"
	"github.com/plexy44/doplen/internal/browser"
	"github.com/plexy44/doplen/internal/config"
	"github.com/plexy44/doplen/internal/cookies"
	"github.com/plexy44/doplen/internal/logging"
	"github.com/plexy44/doplen/internal/scrape"
	"github.com/plexy44/doplen/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupBrowser(cfg *config.Config) *browser.Manager {
	store := cookies.NewFileStore(cfg.CookiesPath)
	manager := browser.NewManager(browser.Options{
		Username:   cfg.TikTokUsername,
		Password:   cfg.TikTokPassword,
		ChromePath: cfg.ChromePath,
		Headless:   cfg.Headless,
	}, store)

	// Launch and authenticate eagerly so a broken environment fails fast
	// instead of on the first client request.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.InitTimeout)
	defer cancel()
	if _, err := manager.Acquire(ctx); err != nil {
		slog.Error("Failed to initialize browser session", "error", err)
		manager.Close()
		os.Exit(1)
	}

	return manager
}

func runGracefulShutdown(srv *server.Server, manager *browser.Manager) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		manager.Close()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	manager := setupBrowser(cfg)

	opener := &scrape.Opener{Browser: manager}
	svc := app.NewService(opener, cfg.MaxSessionsPerTarget)

	srv := server.NewServer(cfg, svc, manager.Ready, clock)

	done := runGracefulShutdown(srv, manager)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
