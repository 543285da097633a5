package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/config"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/handler"
	authHandler "github.com/jwalitptl/schoolmed/internal/handler/auth"
	"github.com/jwalitptl/schoolmed/internal/handler/health"
	"github.com/jwalitptl/schoolmed/internal/handler/nurse"
	"github.com/jwalitptl/schoolmed/internal/handler/parent"
	studentHandler "github.com/jwalitptl/schoolmed/internal/handler/student"
	"github.com/jwalitptl/schoolmed/internal/middleware"
	"github.com/jwalitptl/schoolmed/internal/router"
	authService "github.com/jwalitptl/schoolmed/internal/service/auth"
	"github.com/jwalitptl/schoolmed/internal/service/healthevent"
	"github.com/jwalitptl/schoolmed/internal/service/medication"
	"github.com/jwalitptl/schoolmed/internal/service/staff"
	studentService "github.com/jwalitptl/schoolmed/internal/service/student"
	"github.com/jwalitptl/schoolmed/internal/service/vaccination"
	"github.com/jwalitptl/schoolmed/internal/session"
	"github.com/jwalitptl/schoolmed/internal/workflow/medrequest"
	"github.com/jwalitptl/schoolmed/pkg/auth"
	"github.com/jwalitptl/schoolmed/pkg/logger"
	"github.com/jwalitptl/schoolmed/pkg/messaging/redis"
	"github.com/jwalitptl/schoolmed/pkg/metrics"
	"github.com/jwalitptl/schoolmed/pkg/validator"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal",
		Short: "School medical portal",
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(pingCmd())
	rootCmd.AddCommand(importCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Medication.Location()
	if err != nil {
		return nil, nil, err
	}
	model.SetLocation(loc)
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console || cfg.IsDevelopment(),
	})
	log.Logger = l.ZL
	return cfg, l, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cfg, l)
		},
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the school health API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := apiclient.New(apiConfig(cfg), apiclient.WithLogger(l))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := client.Ping(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is reachable\n", client.BaseURL())
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-students",
		Short: "Upload a student list file to the school health API",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			token, _ := cmd.Flags().GetString("token")
			if file == "" {
				return errors.New("--file is required")
			}
			cfg, l, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if token == "" {
				token = cfg.Worker.APIToken
			}
			client, err := apiclient.New(apiConfig(cfg),
				apiclient.WithLogger(l),
				apiclient.WithTokenSource(apiclient.StaticToken(token)))
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file, err)
			}
			defer f.Close()

			env := studentService.NewService(client).Import(cmd.Context(), f.Name(), f)
			if !env.Success {
				return fmt.Errorf("import failed: %s", env.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), env.Message)
			return nil
		},
	}
	cmd.Flags().String("file", "", "Student list (.xlsx, .xls or .csv)")
	cmd.Flags().String("token", "", "Bearer token; defaults to worker.api_token")
	return cmd
}

func apiConfig(cfg *config.Config) apiclient.Config {
	return apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.Session.Store != "redis" {
		return session.NewMemoryStore(10 * time.Minute), func() {}, nil
	}
	client, err := redis.NewClient(cfg.Redis.ToBrokerConfig())
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	store, err := session.NewRedisStore(client, cfg.Session.Secret, cfg.Session.KeyPrefix)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return store, func() { client.Close() }, nil
}

func serve(cfg *config.Config, l *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics("portal", "", registry)

	client, err := apiclient.New(apiConfig(cfg),
		apiclient.WithTokenSource(session.TokenSource()),
		apiclient.WithLogger(l),
		apiclient.WithMetrics(m))
	if err != nil {
		return err
	}

	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	periods, err := cfg.Medication.Periods()
	if err != nil {
		return err
	}

	shared := validator.New()
	medValidator, err := medrequest.NewValidator()
	if err != nil {
		return err
	}
	bind := handler.Binder{Validator: shared}
	parser := auth.NewParser(cfg.Session.JWTSecret)

	students := studentService.NewService(client)
	medications := medication.NewService(client)
	events := healthevent.NewService(client)
	vaccinations := vaccination.NewService(client)
	staffSvc := staff.NewService(client)

	handlers := router.Handlers{
		Health: health.NewHandler(client, registry),
		Auth: authHandler.NewHandler(authService.NewService(client), store, parser, authHandler.CookieConfig{
			Name:   cfg.Session.CookieName,
			TTL:    cfg.Session.TTL,
			Secure: cfg.Session.Secure,
		}, bind),
		Parent: parent.NewHandler(parent.Services{
			Students:     students,
			Vaccinations: vaccinations,
			Medications:  medications,
			HealthEvents: events,
		}, bind, medValidator, cfg.Paging.PageSize),
		Student: studentHandler.NewHandler(studentHandler.Services{
			Vaccinations: vaccinations.ListStudentSessions,
			Medications:  medications.ListByStudent,
			HealthEvents: events.ListByStudent,
		}),
		Nurse: nurse.NewHandler(nurse.Services{
			Students:     students,
			Medications:  medications,
			HealthEvents: events,
			Vaccinations: vaccinations,
			Staff:        staffSvc,
		}, bind, nurse.AdministrationConfig{
			Periods:    periods,
			CloseDelay: cfg.Medication.CloseDelay,
			Location:   model.Location(),
		}),
	}

	r := router.NewRouter(middleware.NewAuthMiddleware(store, cfg.Session.CookieName, parser), handlers, router.Config{
		Mode:             cfg.Server.Mode,
		RequestTimeout:   cfg.Server.RequestTimeout,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit: middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		},
		CORS:             middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
		Security:         middleware.DefaultSecurityConfig(cfg.Session.Secure),
		SizeLimit:        middleware.DefaultSizeLimitConfig(),
		MetricsNamespace: "portal",
		Registerer:       registry,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Starting portal server", "port", cfg.Server.Port, "api", client.BaseURL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	l.Info("Shutting down portal server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
