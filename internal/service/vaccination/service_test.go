package vaccination

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

func newService(t *testing.T, h http.HandlerFunc) (*Service, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return NewService(client), &calls
}

func TestSubmitParentConsent(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/vaccination-sessions/vs1/parent-consent", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "s1", body["studentId"])
		io.WriteString(w, `{"success":true,"message":"Đã xác nhận"}`)
	})

	env := svc.SubmitParentConsent(context.Background(), "vs1", model.ConsentRequest{StudentID: "s1", Status: model.ConsentConfirmed})
	assert.True(t, env.Success)
	assert.Equal(t, "Đã xác nhận", env.Message)
}

func TestGetParentConsentQuery(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vaccination-sessions/vs1/parent-consent", r.URL.Path)
		assert.Equal(t, "s1", r.URL.Query().Get("studentId"))
		io.WriteString(w, `{"success":true,"data":{"status":"Confirmed"}}`)
	})

	env := svc.GetParentConsent(context.Background(), "vs1", "s1")
	assert.True(t, env.Success)
}

func TestListStudentSessionsQuery(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vaccination-sessions/students/s1", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("pageIndex"))
		assert.Equal(t, "WaitingForParentConsent", r.URL.Query().Get("status"))
		io.WriteString(w, `{"success":true,"data":[],"totalCount":0}`)
	})

	env := svc.ListStudentSessions(context.Background(), "s1", model.ListQuery{PageIndex: 2, Status: "WaitingForParentConsent"})
	assert.True(t, env.Success)
}

func TestMissingIdentifiersMakeNoCall(t *testing.T) {
	svc, calls := newService(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	envs := []apiclient.Envelope{
		svc.GetSession(ctx, ""),
		svc.DeleteSession(ctx, " "),
		svc.ListStudentSessions(ctx, "", model.ListQuery{}),
		svc.GetParentConsent(ctx, "vs1", ""),
		svc.SubmitParentConsent(ctx, "vs1", model.ConsentRequest{}),
		svc.RecordResult(ctx, "vs1", "", model.VaccinationResultRequest{}),
	}
	for _, env := range envs {
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Errors)
	}
	assert.Zero(t, atomic.LoadInt32(calls))
}
