package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Trabajadores202/work-flow-connect-80-89/api"
	"github.com/Trabajadores202/work-flow-connect-80-89/auth"
	"github.com/Trabajadores202/work-flow-connect-80-89/internal"
	"github.com/Trabajadores202/work-flow-connect-80-89/moderation"
	"github.com/Trabajadores202/work-flow-connect-80-89/observability"
	"github.com/Trabajadores202/work-flow-connect-80-89/repositories"
	"github.com/Trabajadores202/work-flow-connect-80-89/runtime"
	"github.com/Trabajadores202/work-flow-connect-80-89/runtime/workers"
	"github.com/Trabajadores202/work-flow-connect-80-89/services"
	"github.com/Trabajadores202/work-flow-connect-80-89/ws"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const tokenIssuer = "work-flow-connect"

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. Deferred cleanups (like the database close)
// always execute before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Releases the lock and flushes buffers before the process exits.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	store := repositories.NewStore(db, logger)

	// 3. Real-time core: presence registry, fan-out, supervision
	metrics := observability.NewCollector(prometheus.DefaultRegisterer)
	registry := runtime.NewRegistry()
	fanout := workers.NewFanoutWorker(logger, registry, store, config.BufferSize, config.SinkTimeout, metrics)
	presence := workers.NewPresenceBroadcaster(logger, store, fanout)

	supervisor := workers.NewSupervisor(logger, config.RestartInterval).
		Add(fanout, workers.NewHealthMonitoringWorker(logger, config.MetricInterval))

	// 4. Domain services
	var censoredWords []string
	if config.CensoredWords != "" {
		censoredWords = strings.Split(config.CensoredWords, ",")
	}
	moderator, err := moderation.NewModerator(censoredWords, charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation dictionary error: %w", err)
	}

	tokens := auth.NewTokenService([]byte(config.JWTSecret), tokenIssuer, config.AuthTokenDuration)
	authService := services.NewAuthService(store, tokens)
	chatService := services.NewChatService(logger, store, fanout, moderator,
		config.MaxContentLength, config.MaxAttachmentSize)

	// 5. HTTP surface: REST fallback + websocket endpoint
	router := ws.NewRouter(logger, chatService, metrics)
	channelHandler := ws.NewHandler(logger, tokens, registry, presence, router, metrics, config.ConnectionBufferSize)
	handlers := api.NewHandlers(logger, authService, chatService, store, metrics)
	mux := api.NewRouter(handlers, channelHandler, tokens, config.RateLimitGeneral)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: mux,
	}

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)
	go func() {
		logger.Info("Starting supervised workers...")
		supervisor.Run(ctx)
	}()
	go func() {
		logger.Info("Starting HTTP server", "address", server.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful Shutdown: let in-flight requests finish, then stop the
	// workers so the queue drains before the database closes.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	supervisor.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
