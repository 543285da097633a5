package healthevent

import (
	"context"
	"net/http"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

const resource = "health_event"

// Service is the health event API module. Writes are nurse-only; the
// upstream enforces that.
type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

func (s *Service) List(ctx context.Context, q model.ListQuery) apiclient.Envelope {
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     "/health-events",
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải danh sách sự kiện y tế")
}

func (s *Service) Get(ctx context.Context, id string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("healthEventId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/health-events/%s", id),
		Resource: resource,
	}, "Không thể tải chi tiết sự kiện y tế")
}

func (s *Service) Create(ctx context.Context, req model.HealthEventRequest) apiclient.Envelope {
	if apiclient.Blank(req.StudentID) {
		return apiclient.MissingParam("studentId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     "/health-events",
		Body:     req,
		Resource: resource,
	}, "Không thể tạo sự kiện y tế")
}

func (s *Service) Update(ctx context.Context, id string, req model.HealthEventRequest) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("healthEventId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     apiclient.Path("/health-events/%s", id),
		Body:     req,
		Resource: resource,
	}, "Không thể cập nhật sự kiện y tế")
}

func (s *Service) Delete(ctx context.Context, id string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("healthEventId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodDelete,
		Path:     apiclient.Path("/health-events/%s", id),
		Resource: resource,
	}, "Không thể xóa sự kiện y tế")
}

func (s *Service) ListByStudent(ctx context.Context, studentID string, q model.ListQuery) apiclient.Envelope {
	if apiclient.Blank(studentID) {
		return apiclient.MissingParam("studentId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/health-events/students/%s", studentID),
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải sự kiện y tế của học sinh")
}
