package student

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

func newService(t *testing.T, h http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return NewService(client)
}

func TestSearch(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students", r.URL.Path)
		assert.Equal(t, "An", r.URL.Query().Get("searchTerm"))
		assert.Equal(t, "5", r.URL.Query().Get("pageSize"))
		io.WriteString(w, `{"success":true,"data":[{"id":"s1","fullName":"Trần Bảo An"}],"totalCount":1}`)
	})

	env := svc.Search(context.Background(), model.ListQuery{PageSize: 5, SearchTerm: " An "})
	require.True(t, env.Success)
	assert.Equal(t, 1, env.TotalCount)
}

func TestImport(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/students/import", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		f, fh, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "roster.csv", fh.Filename)
		assert.Equal(t, "code,name\nHS1,An\n", string(b))
		io.WriteString(w, `{"success":true,"message":"Đã nhập 1 học sinh"}`)
	})

	env := svc.Import(context.Background(), "roster.csv", strings.NewReader("code,name\nHS1,An\n"))
	assert.True(t, env.Success)
	assert.Equal(t, "Đã nhập 1 học sinh", env.Message)
}

func TestImportRequiresFile(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected call")
	})
	env := svc.Import(context.Background(), "", nil)
	assert.False(t, env.Success)
	assert.Equal(t, apiclient.ErrorList{"file is required"}, env.Errors)
}
