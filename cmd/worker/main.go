package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/config"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/email"
	"github.com/jwalitptl/schoolmed/internal/handler/health"
	"github.com/jwalitptl/schoolmed/internal/service/medication"
	"github.com/jwalitptl/schoolmed/pkg/logger"
	"github.com/jwalitptl/schoolmed/pkg/messaging/redis"
	"github.com/jwalitptl/schoolmed/pkg/metrics"
	"github.com/jwalitptl/schoolmed/pkg/worker"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "worker",
		Short: "Medication alert worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd)
		},
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.AddCommand(listenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
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

func setupHealthCheck(port int, upstream health.Pinger, gatherer prometheus.Gatherer) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(upstream, gatherer).RegisterRoutes(engine)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
}

func run(cmd *cobra.Command) error {
	cfg, l, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.Worker.APIToken == "" {
		return errors.New("worker.api_token is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics("medication_alerts", "", registry)

	client, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
	},
		apiclient.WithTokenSource(apiclient.StaticToken(cfg.Worker.APIToken)),
		apiclient.WithLogger(l),
		apiclient.WithMetrics(m))
	if err != nil {
		return err
	}

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create Redis broker: %w", err)
	}
	defer broker.Close()

	mailer := email.NewService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log.Logger)

	processor, err := worker.NewAlertProcessor(
		medication.NewService(client),
		broker,
		mailer,
		worker.AlertProcessorConfig{
			PageSize:      cfg.Worker.PageSize,
			PollInterval:  cfg.Worker.PollInterval,
			DedupeWindow:  cfg.Worker.DedupeWindow,
			Channel:       cfg.Worker.Channel,
			AlertEmail:    cfg.Worker.AlertEmail,
			RetryAttempts: cfg.Worker.RetryAttempts,
			RetryDelay:    cfg.Worker.RetryDelay,
		},
		l,
		m,
	)
	if err != nil {
		return err
	}

	srv := setupHealthCheck(cfg.Worker.HealthPort, client, registry)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(err, "Health check server failed")
			stop()
		}
	}()

	processor.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// listenCmd prints published alerts, handy when checking a deployment.
func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print medication alerts as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log.Logger)
			if err != nil {
				return fmt.Errorf("failed to create Redis broker: %w", err)
			}
			defer broker.Close()

			msgs, err := broker.Subscribe(ctx, cfg.Worker.Channel)
			if err != nil {
				return err
			}
			for raw := range msgs {
				var msg struct {
					Type    string                 `json:"type"`
					Payload worker.MedicationAlert `json:"payload"`
				}
				if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != worker.AlertType {
					log.Warn().Bytes("message", raw).Msg("Skipping unknown message")
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\texpiring=%t\tlow=%t\tremaining=%d\n",
					msg.Payload.DetectedAt.Format(time.RFC3339),
					msg.Payload.StudentName,
					msg.Payload.MedicationName,
					msg.Payload.IsExpiringSoon,
					msg.Payload.IsLowStock,
					msg.Payload.QuantityRemaining)
			}
			return nil
		},
	}
}
