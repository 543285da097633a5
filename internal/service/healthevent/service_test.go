package healthevent

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

func TestListDefaultsPaging(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health-events", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("pageIndex"))
		assert.Equal(t, "10", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "sốt", r.URL.Query().Get("searchTerm"))
		io.WriteString(w, `{"success":true,"data":[{"id":"he1"}],"totalCount":1}`)
	})

	env := svc.List(context.Background(), model.ListQuery{SearchTerm: "  sốt "})
	assert.True(t, env.Success)
	assert.Equal(t, 1, env.TotalCount)
}

func TestCreateSendsBody(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/health-events", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "s1", body["studentId"])
		assert.Equal(t, "Fever", body["eventType"])
		assert.Equal(t, true, body["isEmergency"])
		io.WriteString(w, `{"success":true,"message":"Đã tạo"}`)
	})

	env := svc.Create(context.Background(), model.HealthEventRequest{
		StudentID:   "s1",
		EventType:   "Fever",
		Location:    "Lớp 3A",
		Description: "Sốt 39 độ",
		IsEmergency: true,
	})
	assert.True(t, env.Success)
	assert.Equal(t, "Đã tạo", env.Message)
}

func TestUpdateAndDeletePaths(t *testing.T) {
	var seen []string
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		io.WriteString(w, `{"success":true}`)
	})
	ctx := context.Background()

	assert.True(t, svc.Update(ctx, "he1", model.HealthEventRequest{StudentID: "s1"}).Success)
	assert.True(t, svc.Delete(ctx, "he1").Success)
	assert.True(t, svc.ListByStudent(ctx, "s1", model.ListQuery{}).Success)
	assert.Equal(t, []string{
		"PUT /health-events/he1",
		"DELETE /health-events/he1",
		"GET /health-events/students/s1",
	}, seen)
}

func TestUpstreamFailureKeepsStatus(t *testing.T) {
	svc, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"success":false,"message":"Không tìm thấy"}`)
	})

	env := svc.Get(context.Background(), "missing")
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
	assert.Equal(t, "Không tìm thấy", env.Message)
}

func TestMissingIdentifiersMakeNoCall(t *testing.T) {
	svc, calls := newService(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	envs := []apiclient.Envelope{
		svc.Get(ctx, ""),
		svc.Create(ctx, model.HealthEventRequest{}),
		svc.Update(ctx, " ", model.HealthEventRequest{}),
		svc.Delete(ctx, ""),
		svc.ListByStudent(ctx, "", model.ListQuery{}),
	}
	for _, env := range envs {
		assert.False(t, env.Success)
		assert.NotEmpty(t, env.Errors)
	}
	assert.Zero(t, atomic.LoadInt32(calls))
}
