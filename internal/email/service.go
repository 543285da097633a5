package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/schoolmed/internal/model"
)

type Service interface {
	SendMedicationAlert(ctx context.Context, to string, usage model.MedicationUsage) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

// SMTPConfig holds configuration for the SMTP server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Dialer is the part of gomail.Dialer the service uses.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	config SMTPConfig
	dialer Dialer
	logger zerolog.Logger
}

// NewService returns an SMTP backed service. Without credentials mails are
// only logged, which is what development setups run with.
func NewService(config SMTPConfig, logger zerolog.Logger) Service {
	return NewServiceWithDialer(config, gomail.NewDialer(config.Host, config.Port, config.Username, config.Password), logger)
}

func NewServiceWithDialer(config SMTPConfig, dialer Dialer, logger zerolog.Logger) Service {
	return &smtpService{config: config, dialer: dialer, logger: logger}
}

func (s *smtpService) SendMedicationAlert(ctx context.Context, to string, usage model.MedicationUsage) error {
	subject, body := AlertContent(usage)
	return s.SendCustom(ctx, to, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("email recipient is required")
	}
	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("to", to).
			Str("subject", subject).
			Msg("SMTP credentials not configured - email not sent")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// AlertContent renders the subject and html body of a nurse alert.
func AlertContent(u model.MedicationUsage) (string, string) {
	var reasons []string
	if u.IsExpiringSoon {
		reasons = append(reasons, "sắp hết hạn")
	}
	if u.IsLowStock {
		reasons = append(reasons, "sắp hết thuốc")
	}
	reason := strings.Join(reasons, ", ")

	subject := fmt.Sprintf("[Y tế học đường] %s của %s %s", u.MedicationName, u.StudentName, reason)

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>Thuốc <strong>%s</strong> của học sinh %s", html.EscapeString(u.MedicationName), html.EscapeString(u.StudentName))
	if u.StudentCode != "" {
		fmt.Fprintf(&b, " (%s)", html.EscapeString(u.StudentCode))
	}
	fmt.Fprintf(&b, " %s.</p>", html.EscapeString(reason))
	fmt.Fprintf(&b, "<p>Số lượng còn lại: %d / %d</p>", u.QuantityRemaining, u.QuantitySent)
	if !u.ExpiryDate.IsZero() {
		fmt.Fprintf(&b, "<p>Hạn sử dụng: %s</p>", u.ExpiryDate.Format("02/01/2006"))
	}
	b.WriteString("</body></html>")
	return subject, b.String()
}
