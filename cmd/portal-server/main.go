package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cimef/portal/internal/config"
	"github.com/cimef/portal/internal/domain/dashboard"
	"github.com/cimef/portal/internal/domain/exams"
	"github.com/cimef/portal/internal/domain/invoices"
	"github.com/cimef/portal/internal/domain/patients"
	"github.com/cimef/portal/internal/domain/payments"
	"github.com/cimef/portal/internal/domain/portal"
	"github.com/cimef/portal/internal/domain/reports"
	"github.com/cimef/portal/internal/domain/search"
	"github.com/cimef/portal/internal/domain/staffauth"
	"github.com/cimef/portal/internal/domain/users"
	"github.com/cimef/portal/internal/platform/auth"
	"github.com/cimef/portal/internal/platform/db"
	"github.com/cimef/portal/internal/platform/metrics"
	"github.com/cimef/portal/internal/platform/middleware"
	"github.com/cimef/portal/internal/session"
	"github.com/cimef/portal/internal/upstream"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "Session gateway for the CIMEF billing console and patient portal",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx := context.Background()
			conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBIdleConns)
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := db.NewMigrator(conn, cfg.MigrationsDir).Up(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migration(s)\n", n)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx := context.Background()
			conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBIdleConns)
			if err != nil {
				return err
			}
			defer conn.Close()

			statuses, err := db.NewMigrator(conn, cfg.MigrationsDir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}

	cmd.AddCommand(upCmd)
	cmd.AddCommand(statusCmd)
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBIdleConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()
	logger.Info().Msg("connected to database")

	// Session stores: staff sessions survive restarts, portal sessions are
	// deliberately volatile.
	staffStore := session.NewPGStaffStore(conn)
	patientStore := session.NewMemPatientStore(cfg.PatientSessionTTL)
	resolver := session.NewResolver(staffStore, patientStore)

	// Upstream client
	client, err := upstream.New(cfg.UpstreamURL, cfg.UpstreamTimeout, staffStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid upstream configuration")
	}

	cookies := auth.CookieConfig{
		StaffName:   cfg.StaffCookieName,
		PatientName: cfg.PatientCookieName,
		StaffMaxAge: cfg.StaffSessionTTL,
		Secure:      cfg.CookieSecure,
	}
	guard := auth.NewGuard(resolver, cookies, cfg.LoginPath, cfg.PortalPath)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadBodyLimit))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Credential endpoints get a much tighter bucket than general traffic.
	loginLimiter := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.LoginRateLimitRPS,
		BurstSize:         cfg.LoginRateLimitBurst,
	})

	// Operational endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(conn))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API surface
	api := e.Group("/api")
	staffauth.NewHandler(client, staffStore, guard, cookies, logger).RegisterRoutes(api, loginLimiter)
	portal.NewHandler(client, patientStore, guard, cookies, logger).RegisterRoutes(api, loginLimiter)
	patients.NewHandler(client, guard).RegisterRoutes(api)
	exams.NewHandler(client, guard).RegisterRoutes(api)
	invoices.NewHandler(client, guard).RegisterRoutes(api)
	payments.NewHandler(client, guard).RegisterRoutes(api)
	reports.NewHandler(client, guard).RegisterRoutes(api)
	users.NewHandler(client, guard).RegisterRoutes(api)
	dashboard.NewHandler(client, guard).RegisterRoutes(api)
	search.NewHandler(client, guard).RegisterRoutes(api)

	// Session janitor
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go runJanitor(janitorCtx, logger, staffStore, patientStore)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("upstream", cfg.UpstreamURL).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// runJanitor periodically drops staff sessions whose refresh token has
// expired and portal sessions past their idle deadline.
func runJanitor(ctx context.Context, logger zerolog.Logger, staff *session.PGStaffStore, patients *session.MemPatientStore) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := staff.PurgeExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("purge staff sessions")
			} else if n > 0 {
				metrics.SessionsPurged.WithLabelValues("staff").Add(float64(n))
				logger.Info().Int64("count", n).Msg("purged expired staff sessions")
			}

			if n := patients.PurgeExpired(); n > 0 {
				metrics.SessionsPurged.WithLabelValues("patient").Add(float64(n))
				logger.Info().Int("count", n).Msg("purged expired portal sessions")
			}
		}
	}
}
