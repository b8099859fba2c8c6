package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/priorauth/priorauth/internal/config"
	"github.com/priorauth/priorauth/internal/domain/directory"
	"github.com/priorauth/priorauth/internal/domain/priorauth"
	"github.com/priorauth/priorauth/internal/platform/audit"
	"github.com/priorauth/priorauth/internal/platform/auth"
	"github.com/priorauth/priorauth/internal/platform/db"
	"github.com/priorauth/priorauth/internal/platform/middleware"
	"github.com/priorauth/priorauth/internal/platform/notification"
	"github.com/priorauth/priorauth/internal/platform/websocket"
)

// StatusNotifierAdapter fans a status change out to the WebSocket hub and
// the notification manager, adapting both to the priorauth.StatusNotifier
// interface without the domain package importing either platform package.
type StatusNotifierAdapter struct {
	hub *websocket.Hub
	mgr *notification.NotificationManager
}

func NewStatusNotifierAdapter(hub *websocket.Hub, mgr *notification.NotificationManager) *StatusNotifierAdapter {
	return &StatusNotifierAdapter{hub: hub, mgr: mgr}
}

// NotifyStatusChanged implements priorauth.StatusNotifier.
func (a *StatusNotifierAdapter) NotifyStatusChanged(ctx context.Context, requestID uuid.UUID, newStatus priorauth.Status) error {
	a.hub.PublishStatusChange(requestID.String(), string(newStatus))

	_, err := a.mgr.SendFromTemplate(ctx, "auth-status-sms", map[string]string{
		"request_id": requestID.String(),
		"status":     string(newStatus),
	}, "on-call")
	return err
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "priorauth-server",
		Short: "Prior Authorization API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the prior authorization API server",
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

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a forward migration instead.")
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample patients, providers and payers for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := directory.NewService(
				directory.NewPatientRepo(pool),
				directory.NewProviderRepo(pool),
				directory.NewPayerRepo(pool),
			)

			dob := time.Date(1984, time.March, 12, 0, 0, 0, 0, time.UTC)
			patient := &directory.Patient{
				FirstName:   "Jane",
				LastName:    "Samples",
				DateOfBirth: dob,
				MemberID:    "MBR-100001",
				Contact: priorauth.ContactInfo{
					Phone: "+1-555-0100",
					Email: "jane.samples@example.com",
				},
			}
			if err := svc.CreatePatient(ctx, patient); err != nil {
				return fmt.Errorf("seed patient: %w", err)
			}

			provider := &directory.Provider{
				Name:      "Dr. Alan Ortiz",
				NPI:       "1234567893",
				Specialty: "Orthopedic Surgery",
				Contact: priorauth.ContactInfo{
					Phone: "+1-555-0101",
					Email: "a.ortiz@clinic.example.com",
				},
			}
			if err := svc.CreateProvider(ctx, provider); err != nil {
				return fmt.Errorf("seed provider: %w", err)
			}

			payer := &directory.Payer{
				Name:                 "Acme Health Plan",
				PayerCode:            "ACME",
				StandardResponseDays: 14,
				Contact: priorauth.ContactInfo{
					Phone: "+1-555-0102",
					Email: "intake@acmehealth.example.com",
				},
			}
			if err := svc.CreatePayer(ctx, payer); err != nil {
				return fmt.Errorf("seed payer: %w", err)
			}

			fmt.Printf("Seeded patient %s, provider %s, payer %s\n", patient.ID, provider.ID, payer.ID)
			return nil
		},
	}
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
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	switch cfg.ResolvedAuthMode() {
	case "development":
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	case "hmac":
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	default:
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		}))
	}

	// Request audit trail: structured access log plus a bounded in-memory
	// trail inspectable over the admin API.
	trail := audit.NewTrail(cfg.AuditCapacity, logger)
	e.Use(middleware.Audit(logger))

	// API groups
	apiV1 := e.Group("/api/v1")
	fhirGroup := e.Group("/fhir")

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	fhirGroup.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// WebSocket hub for live status updates
	hub := websocket.NewHub()
	wsHandler := websocket.NewWebSocketHandler(hub)
	wsHandler.RegisterRoutes(e.Group(""))

	// Notification manager. Mock transports until a real SMTP/SMS gateway is
	// configured; deliveries are still recorded and queryable over the API.
	notifyMgr := notification.NewNotificationManager(
		&notification.MockEmailSender{},
		&notification.MockSMSSender{},
		notification.NewTemplateEngine(),
	)
	notifyHandler := notification.NewNotificationHandler(notifyMgr)
	notifyHandler.RegisterRoutes(apiV1)

	// Directory domain: patients, providers, payers
	dirSvc := directory.NewService(
		directory.NewPatientRepo(pool),
		directory.NewProviderRepo(pool),
		directory.NewPayerRepo(pool),
	)
	dirHandler := directory.NewHandler(dirSvc)
	dirHandler.RegisterRoutes(apiV1, fhirGroup)

	// Prior authorization domain
	notifier := NewStatusNotifierAdapter(hub, notifyMgr)
	authSvc := priorauth.NewService(
		priorauth.NewRepoPG(pool),
		directory.NewDirectory(dirSvc),
		notifier,
		trail,
		logger,
	)
	authHandler := priorauth.NewHandler(authSvc)
	authHandler.RegisterRoutes(apiV1, fhirGroup)

	// Admin inspection of the audit trail
	trail.RegisterRoutes(apiV1.Group("", auth.RequireRole("admin")))

	// Background expiration sweep
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	sweeper := priorauth.NewSweeper(authSvc, cfg.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	return nil
}
