package email

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/schoolmed/internal/model"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

var smtp = SMTPConfig{Host: "smtp.school.vn", Port: 587, Username: "bot", Password: "pw", From: "yte@school.vn"}

func alertUsage() model.MedicationUsage {
	return model.MedicationUsage{
		ID:                "m1",
		StudentName:       "Lê <Bảo>",
		StudentCode:       "HS001",
		MedicationName:    "Ventolin",
		IsExpiringSoon:    true,
		IsLowStock:        true,
		QuantityRemaining: 2,
		QuantitySent:      20,
		ExpiryDate:        model.NewDateTime(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)),
	}
}

func TestAlertContent(t *testing.T) {
	subject, body := AlertContent(alertUsage())

	assert.Equal(t, "[Y tế học đường] Ventolin của Lê <Bảo> sắp hết hạn, sắp hết thuốc", subject)
	assert.Contains(t, body, "Lê &lt;Bảo&gt; (HS001)")
	assert.Contains(t, body, "Số lượng còn lại: 2 / 20")
	assert.Contains(t, body, "Hạn sử dụng: 10/03/2024")

	u := alertUsage()
	u.IsExpiringSoon = false
	u.ExpiryDate = model.DateTime{}
	subject, body = AlertContent(u)
	assert.True(t, strings.HasSuffix(subject, " sắp hết thuốc"))
	assert.NotContains(t, body, "Hạn sử dụng")
}

func TestSendMedicationAlert(t *testing.T) {
	d := &fakeDialer{}
	svc := NewServiceWithDialer(smtp, d, zerolog.Nop())

	require.NoError(t, svc.SendMedicationAlert(context.Background(), "nurse@school.vn", alertUsage()))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"yte@school.vn"}, m.GetHeader("From"))
	assert.Equal(t, []string{"nurse@school.vn"}, m.GetHeader("To"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
}

func TestSendCustomErrors(t *testing.T) {
	d := &fakeDialer{err: errors.New("connection refused")}
	svc := NewServiceWithDialer(smtp, d, zerolog.Nop())

	err := svc.SendCustom(context.Background(), "nurse@school.vn", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	assert.Error(t, svc.SendCustom(context.Background(), " ", "s", "b"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.SendCustom(ctx, "nurse@school.vn", "s", "b"), context.Canceled)
}

func TestSendWithoutCredentialsOnlyLogs(t *testing.T) {
	var logs bytes.Buffer
	d := &fakeDialer{}
	svc := NewServiceWithDialer(SMTPConfig{Host: "localhost"}, d, zerolog.New(&logs))

	require.NoError(t, svc.SendCustom(context.Background(), "nurse@school.vn", "Cảnh báo", "<p>x</p>"))
	assert.Empty(t, d.sent)
	assert.Contains(t, logs.String(), "SMTP credentials not configured")
}
