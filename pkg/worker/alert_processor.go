package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/email"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/paging"
	"github.com/jwalitptl/schoolmed/pkg/logger"
	"github.com/jwalitptl/schoolmed/pkg/messaging"
	"github.com/jwalitptl/schoolmed/pkg/metrics"
)

// AlertType is the message type of published medication alerts.
const AlertType = "medication.alert"

// maxPages bounds one poll when the API keeps reporting more pages.
const maxPages = 50

type UsageLister interface {
	ListUsages(ctx context.Context, q model.ListQuery) apiclient.Envelope
}

// MedicationAlert is the payload published for a medication that needs the
// nurse's attention.
type MedicationAlert struct {
	MedicationID      string         `json:"medicationId"`
	StudentID         string         `json:"studentId"`
	StudentName       string         `json:"studentName,omitempty"`
	MedicationName    string         `json:"medicationName"`
	IsExpiringSoon    bool           `json:"isExpiringSoon"`
	IsLowStock        bool           `json:"isLowStock"`
	QuantityRemaining int            `json:"quantityRemaining"`
	ExpiryDate        model.DateTime `json:"expiryDate"`
	DetectedAt        time.Time      `json:"detectedAt"`
}

type AlertProcessorConfig struct {
	PageSize      int
	PollInterval  time.Duration
	DedupeWindow  time.Duration
	Channel       string
	AlertEmail    string
	RetryAttempts int
	RetryDelay    time.Duration
}

// AlertProcessor polls active medications and raises an alert for each one
// that is expiring soon or low on stock, at most once per dedupe window.
type AlertProcessor struct {
	usages  UsageLister
	broker  messaging.Broker
	mailer  email.Service
	config  AlertProcessorConfig
	seen    *cache.Cache
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAlertProcessor(
	usages UsageLister,
	broker messaging.Broker,
	mailer email.Service,
	config AlertProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) (*AlertProcessor, error) {
	if config.PageSize <= 0 {
		return nil, fmt.Errorf("page size must be greater than 0")
	}
	if config.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be greater than 0")
	}
	if config.DedupeWindow <= 0 {
		return nil, fmt.Errorf("dedupe window must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	if config.Channel == "" {
		return nil, fmt.Errorf("alert channel is required")
	}

	return &AlertProcessor{
		usages:  usages,
		broker:  broker,
		mailer:  mailer,
		config:  config,
		seen:    cache.New(config.DedupeWindow, config.DedupeWindow),
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Start polls once immediately and then on every tick until ctx is done.
func (p *AlertProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting medication alert processor", "channel", p.config.Channel)

	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error(err, "Failed to poll medications")
		}
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down medication alert processor")
			return
		case <-ticker.C:
		}
	}
}

// Poll runs one pass over every page of active medications.
func (p *AlertProcessor) Poll(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.PollDuration)
	defer timer.ObserveDuration()

	q := model.ListQuery{
		PageIndex: 1,
		PageSize:  p.config.PageSize,
		Status:    string(model.MedicationActive),
	}
	for q.PageIndex <= maxPages {
		page, err := paging.FromEnvelope[model.MedicationUsage](p.usages.ListUsages(ctx, q))
		if err != nil {
			p.metrics.PollErrors.Inc()
			return fmt.Errorf("failed to list active medications: %w", err)
		}

		for _, usage := range page.Items {
			if !usage.NeedsAttention() {
				continue
			}
			if err := p.raise(ctx, usage); err != nil {
				p.logger.Error(err, "Failed to raise medication alert",
					"medication_id", usage.ID,
					"student_id", usage.StudentID)
			}
		}

		totalPages := page.TotalPages
		if totalPages == 0 {
			totalPages = paging.NewPagination(q.PageIndex, q.PageSize, page.TotalCount).TotalPages
		}
		if len(page.Items) == 0 || q.PageIndex >= totalPages {
			return nil
		}
		q.PageIndex++
	}
	return nil
}

func (p *AlertProcessor) raise(ctx context.Context, usage model.MedicationUsage) error {
	key := alertKey(usage)
	if _, found := p.seen.Get(key); found {
		p.metrics.AlertsSkipped.Inc()
		return nil
	}

	alert := MedicationAlert{
		MedicationID:      usage.ID,
		StudentID:         usage.StudentID,
		StudentName:       usage.StudentName,
		MedicationName:    usage.MedicationName,
		IsExpiringSoon:    usage.IsExpiringSoon,
		IsLowStock:        usage.IsLowStock,
		QuantityRemaining: usage.QuantityRemaining,
		ExpiryDate:        usage.ExpiryDate,
		DetectedAt:        p.now(),
	}

	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, p.config.Channel, messaging.Message{Type: AlertType, Payload: alert})
	})
	if err != nil {
		p.metrics.AlertsFailed.Inc()
		return err
	}

	if p.config.AlertEmail != "" && p.mailer != nil {
		if err := p.mailer.SendMedicationAlert(ctx, p.config.AlertEmail, usage); err != nil {
			// the alert is already on the channel
			p.logger.Error(err, "Failed to e-mail medication alert", "medication_id", usage.ID)
		}
	}

	p.seen.SetDefault(key, struct{}{})
	p.metrics.AlertsPublished.Inc()
	return nil
}

// alertKey changes when the reason changes, so a medication that was low on
// stock and is now also expiring alerts again.
func alertKey(u model.MedicationUsage) string {
	return fmt.Sprintf("%s:%t:%t", u.ID, u.IsExpiringSoon, u.IsLowStock)
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
