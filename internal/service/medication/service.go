package medication

import (
	"context"
	"net/http"
	"strings"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

const resource = "student_medication"

// Service is the medication usage API module.
type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

func (s *Service) ListUsages(ctx context.Context, q model.ListQuery) apiclient.Envelope {
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     "/student-medications",
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải danh sách thuốc")
}

func (s *Service) GetUsage(ctx context.Context, id string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("studentMedicationId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/student-medications/%s", id),
		Resource: resource,
	}, "Không thể tải thông tin thuốc")
}

func (s *Service) ListByStudent(ctx context.Context, studentID string, q model.ListQuery) apiclient.Envelope {
	if apiclient.Blank(studentID) {
		return apiclient.MissingParam("studentId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/student-medications/students/%s", studentID),
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải danh sách thuốc của học sinh")
}

// UsageHistory lists administration records. A query with FromDate == ToDate
// returns the records of a single day.
func (s *Service) UsageHistory(ctx context.Context, id string, q model.ListQuery) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("studentMedicationId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/student-medications/%s/usage-history", id),
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải lịch sử sử dụng thuốc")
}

func (s *Service) RecordAdministration(ctx context.Context, id string, req model.AdministrationRequest) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("studentMedicationId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     apiclient.Path("/student-medications/%s/administer", id),
		Body:     req,
		Resource: resource,
	}, "Không thể ghi nhận việc cho uống thuốc")
}

func (s *Service) Discontinue(ctx context.Context, id, reason string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("studentMedicationId")
	}
	if strings.TrimSpace(reason) == "" {
		return apiclient.MissingParam("reason")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     apiclient.Path("/student-medications/%s/discontinue", id),
		Body:     model.ReasonRequest{Reason: reason},
		Resource: resource,
	}, "Không thể ngừng sử dụng thuốc")
}

func (s *Service) ConfirmReceived(ctx context.Context, id string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("studentMedicationId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     apiclient.Path("/student-medications/%s/confirm-received", id),
		Resource: resource,
	}, "Không thể xác nhận đã nhận thuốc")
}

func (s *Service) Approve(ctx context.Context, id string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("studentMedicationId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPatch,
		Path:     apiclient.Path("/student-medications/%s/approve", id),
		Resource: resource,
	}, "Không thể duyệt yêu cầu thuốc")
}

func (s *Service) Reject(ctx context.Context, id, reason string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("studentMedicationId")
	}
	if strings.TrimSpace(reason) == "" {
		return apiclient.MissingParam("reason")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPatch,
		Path:     apiclient.Path("/student-medications/%s/reject", id),
		Body:     model.ReasonRequest{Reason: reason},
		Resource: resource,
	}, "Không thể từ chối yêu cầu thuốc")
}

// CreateRequest submits a parent's medication request for one student.
func (s *Service) CreateRequest(ctx context.Context, req model.MedicationRequest) apiclient.Envelope {
	if apiclient.Blank(req.StudentID) {
		return apiclient.MissingParam("studentId")
	}
	if len(req.Medications) == 0 {
		return apiclient.MissingParam("medications")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     "/student-medications/requests",
		Body:     req,
		Resource: resource,
	}, "Không thể gửi yêu cầu thuốc")
}
