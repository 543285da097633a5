package medication

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

type recordedCall struct {
	method string
	path   string
	query  string
	body   map[string]interface{}
}

type recorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *recorder) all() []recordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedCall(nil), r.calls...)
}

func setup(t *testing.T, reply string, status int) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			assert.NoError(t, json.Unmarshal(raw, &call.body))
		}
		rec.mu.Lock()
		rec.calls = append(rec.calls, call)
		rec.mu.Unlock()
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return NewService(client), rec
}

func TestMissingIdentifiersMakeNoCalls(t *testing.T) {
	svc, rec := setup(t, `{"success":true}`, http.StatusOK)
	ctx := context.Background()

	envs := []apiclient.Envelope{
		svc.GetUsage(ctx, ""),
		svc.ListByStudent(ctx, " ", model.ListQuery{}),
		svc.UsageHistory(ctx, "", model.ListQuery{}),
		svc.RecordAdministration(ctx, "", model.AdministrationRequest{}),
		svc.Discontinue(ctx, "", "reason"),
		svc.Discontinue(ctx, "m1", "  "),
		svc.ConfirmReceived(ctx, ""),
		svc.Approve(ctx, ""),
		svc.Reject(ctx, "m1", ""),
		svc.CreateRequest(ctx, model.MedicationRequest{}),
		svc.CreateRequest(ctx, model.MedicationRequest{StudentID: "s1"}),
	}

	for _, env := range envs {
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Errors)
	}
	assert.Empty(t, rec.all())
}

func TestDiscontinueSendsReason(t *testing.T) {
	svc, rec := setup(t, `{"success":true,"message":"Đã ngừng"}`, http.StatusOK)

	env := svc.Discontinue(context.Background(), "m 1", "Hết liệu trình")
	require.True(t, env.Success)
	calls := rec.all()
	require.Len(t, calls, 1)

	call := calls[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "/student-medications/m 1/discontinue", call.path)
	assert.Equal(t, map[string]interface{}{"reason": "Hết liệu trình"}, call.body)
}

func TestApproveAndReject(t *testing.T) {
	svc, rec := setup(t, `{"success":true}`, http.StatusOK)
	ctx := context.Background()

	require.True(t, svc.Approve(ctx, "m1").Success)
	require.True(t, svc.Reject(ctx, "m2", "Sai đơn thuốc").Success)

	calls := rec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPatch, calls[0].method)
	assert.Equal(t, "/student-medications/m1/approve", calls[0].path)
	assert.Nil(t, calls[0].body)
	assert.Equal(t, "/student-medications/m2/reject", calls[1].path)
	assert.Equal(t, "Sai đơn thuốc", calls[1].body["reason"])
}

func TestRecordAdministrationBody(t *testing.T) {
	svc, rec := setup(t, `{"success":true}`, http.StatusOK)

	at := time.Date(2024, 3, 4, 8, 30, 0, 0, time.Local)
	env := svc.RecordAdministration(context.Background(), "m1", model.AdministrationRequest{
		Status:           model.AdministrationUsed,
		DosageUsed:       "1 viên",
		Note:             "Uống sau ăn",
		IsMakeupDose:     true,
		AdministeredTime: model.NewDateTime(at),
	})
	require.True(t, env.Success)

	call := rec.all()[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/student-medications/m1/administer", call.path)
	assert.Equal(t, "Used", call.body["status"])
	assert.Equal(t, "1 viên", call.body["dosageUsed"])
	assert.Equal(t, true, call.body["isMakeupDose"])
	assert.Equal(t, "2024-03-04T08:30:00", call.body["administeredTime"])
}

func TestUsageHistoryForOneDay(t *testing.T) {
	svc, rec := setup(t, `{"success":true,"data":[]}`, http.StatusOK)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	env := svc.UsageHistory(context.Background(), "m1", model.ListQuery{PageSize: 50, FromDate: day, ToDate: day})
	require.True(t, env.Success)

	q := rec.all()[0].query
	assert.Contains(t, q, "fromDate=2024-03-04")
	assert.Contains(t, q, "toDate=2024-03-04")
	assert.Contains(t, q, "pageSize=50")
}

func TestFailurePassesServerMessage(t *testing.T) {
	svc, _ := setup(t, `{"success":false,"message":"Thuốc đã bị ngừng trước đó"}`, http.StatusConflict)

	env := svc.Discontinue(context.Background(), "m1", "x")
	assert.False(t, env.Success)
	assert.Equal(t, "Thuốc đã bị ngừng trước đó", env.Message)
	assert.Equal(t, http.StatusConflict, env.StatusCode)
}
