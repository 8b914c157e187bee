package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/example/room-booker/internal/application"
	"github.com/example/room-booker/internal/auth"
	"github.com/example/room-booker/internal/config"
	"github.com/example/room-booker/internal/google"
	httptransport "github.com/example/room-booker/internal/http"
	"github.com/example/room-booker/internal/instrumentation"
	"github.com/example/room-booker/internal/logging"
	"github.com/example/room-booker/internal/persistence/sqlstore"
	"github.com/example/room-booker/internal/secrets"
)

func newServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the room booking API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := logging.New(os.Stdout, cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, version, logger); err != nil {
				logger.Error("server stopped with error", "error", err)
				return err
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg config.Config, version string, logger *slog.Logger) error {
	pool, err := sqlstore.NewConnectionPool(ctx, sqlstore.DefaultConfig(cfg.DatabaseDriver, cfg.DatabaseDSN))
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := runMigrations(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	tracing, err := instrumentation.NewTracing(ctx, cfg.TracingExporter, version, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	var metrics *instrumentation.Metrics
	if cfg.MetricsEnabled {
		metrics = instrumentation.NewMetrics()
	}

	handler, err := newHandler(cfg, pool, handlerOptions{
		Logger:  logger,
		Metrics: metrics,
		Tracer:  tracing.Tracer(),
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("room booking API listening",
		"addr", server.Addr,
		"version", version,
		"db_driver", cfg.DatabaseDriver,
		"metrics", cfg.MetricsEnabled,
		"tracing", cfg.TracingExporter,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

type handlerOptions struct {
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Tracer  trace.Tracer

	// Google and OAuthEndpoint override the Google transport and token
	// endpoint; tests point them at a local server.
	Google        google.Options
	OAuthEndpoint oauth2.Endpoint
}

// newHandler wires stores, Google clients and services into the HTTP router.
func newHandler(cfg config.Config, pool *sqlstore.ConnectionPool, opts handlerOptions) (http.Handler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cipher, err := secrets.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	googleOpts := opts.Google
	googleOpts.Metrics = opts.Metrics
	googleOpts.Tracer = opts.Tracer
	identity := google.NewOAuth(google.OAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     opts.OAuthEndpoint,
	}, googleOpts)
	calendars := google.NewCalendarProvider(googleOpts)
	directory := google.NewDirectoryClient(cfg.GoogleCustomer, googleOpts)

	users := newUserStore(sqlstore.NewUserRepository(pool))
	tokens := newAuthStore(sqlstore.NewAuthRepository(pool))
	rooms := newRoomStore(sqlstore.NewConferenceRoomRepository(pool))

	authService := application.NewAuthServiceWithLogger(application.AuthDependencies{
		Users:     users,
		Auth:      tokens,
		Rooms:     rooms,
		Identity:  identity,
		Directory: directory,
		Sessions:  sessions,
		Cipher:    cipher,
	}, logger)
	roomService := application.NewRoomServiceWithLogger(rooms, tokens, cipher, directory, calendars, logger)
	bookingService := application.NewBookingServiceWithLogger(application.BookingDependencies{
		Rooms:     rooms,
		Auth:      tokens,
		Cipher:    cipher,
		Calendars: calendars,
		Recorder:  opts.Metrics,
		Lookahead: cfg.EventLookahead,
	}, logger)

	routerCfg := httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(authService, logger),
		Rooms:      httptransport.NewRoomHandler(roomService, logger),
		Bookings:   httptransport.NewBookingHandler(bookingService, logger),
		Sessions:   authService,
		Logger:     logger,
		Health:     httptransport.HealthHandler(pool.DB(), logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger, opts.Metrics)},
	}
	if opts.Metrics != nil {
		routerCfg.Metrics = opts.Metrics.Handler()
	}
	router := httptransport.NewRouter(routerCfg)

	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         600,
	}).Handler(router), nil
}
