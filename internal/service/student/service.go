package student

import (
	"context"
	"io"
	"net/http"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

const resource = "student"

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Search backs the student type-ahead; it is a plain paginated list filtered by searchTerm.
func (s *Service) Search(ctx context.Context, q model.ListQuery) apiclient.Envelope {
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     "/students",
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải danh sách học sinh")
}

func (s *Service) Get(ctx context.Context, id string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("studentId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/students/%s", id),
		Resource: resource,
	}, "Không thể tải thông tin học sinh")
}

// ListByParent returns the children linked to the signed-in parent.
func (s *Service) ListByParent(ctx context.Context) apiclient.Envelope {
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     "/parents/students",
		Resource: resource,
	}, "Không thể tải danh sách con em")
}

// Import uploads a student roster spreadsheet as multipart/form-data.
func (s *Service) Import(ctx context.Context, filename string, content io.Reader) apiclient.Envelope {
	if filename == "" || content == nil {
		return apiclient.MissingParam("file")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/students/import",
		Body: &apiclient.Multipart{
			Files: []apiclient.File{{Field: "file", Name: filename, Content: content}},
		},
		Resource: resource,
	}, "Không thể nhập danh sách học sinh")
}
