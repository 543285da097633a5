package vaccination

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

const resource = "vaccination"

// Service is the vaccination schedule API module.
type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

func (s *Service) ListSessions(ctx context.Context, q model.ListQuery) apiclient.Envelope {
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     "/vaccination-sessions",
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải danh sách lịch tiêm chủng")
}

func (s *Service) GetSession(ctx context.Context, sessionID string) apiclient.Envelope {
	if apiclient.Blank(sessionID) {
		return apiclient.MissingParam("sessionId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/vaccination-sessions/%s", sessionID),
		Resource: resource,
	}, "Không thể tải thông tin buổi tiêm chủng")
}

func (s *Service) CreateSession(ctx context.Context, req model.VaccinationSessionRequest) apiclient.Envelope {
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     "/vaccination-sessions",
		Body:     req,
		Resource: resource,
	}, "Không thể tạo buổi tiêm chủng")
}

func (s *Service) UpdateSession(ctx context.Context, sessionID string, req model.VaccinationSessionRequest) apiclient.Envelope {
	if apiclient.Blank(sessionID) {
		return apiclient.MissingParam("sessionId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     apiclient.Path("/vaccination-sessions/%s", sessionID),
		Body:     req,
		Resource: resource,
	}, "Không thể cập nhật buổi tiêm chủng")
}

func (s *Service) DeleteSession(ctx context.Context, sessionID string) apiclient.Envelope {
	if apiclient.Blank(sessionID) {
		return apiclient.MissingParam("sessionId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodDelete,
		Path:     apiclient.Path("/vaccination-sessions/%s", sessionID),
		Resource: resource,
	}, "Không thể xóa buổi tiêm chủng")
}

// ListStudentSessions returns the schedule of one student, as seen by the parent or the student.
func (s *Service) ListStudentSessions(ctx context.Context, studentID string, q model.ListQuery) apiclient.Envelope {
	if apiclient.Blank(studentID) {
		return apiclient.MissingParam("studentId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/vaccination-sessions/students/%s", studentID),
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải lịch tiêm chủng của học sinh")
}

func (s *Service) GetParentConsent(ctx context.Context, sessionID, studentID string) apiclient.Envelope {
	if apiclient.Blank(sessionID) {
		return apiclient.MissingParam("sessionId")
	}
	if apiclient.Blank(studentID) {
		return apiclient.MissingParam("studentId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/vaccination-sessions/%s/parent-consent", sessionID),
		Query:    url.Values{"studentId": {studentID}},
		Resource: resource,
	}, "Không thể tải thông tin xác nhận của phụ huynh")
}

func (s *Service) SubmitParentConsent(ctx context.Context, sessionID string, req model.ConsentRequest) apiclient.Envelope {
	if apiclient.Blank(sessionID) {
		return apiclient.MissingParam("sessionId")
	}
	if apiclient.Blank(req.StudentID) {
		return apiclient.MissingParam("studentId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     apiclient.Path("/vaccination-sessions/%s/parent-consent", sessionID),
		Body:     req,
		Resource: resource,
	}, "Không thể gửi xác nhận tiêm chủng")
}

func (s *Service) ListSessionStudents(ctx context.Context, sessionID string, q model.ListQuery) apiclient.Envelope {
	if apiclient.Blank(sessionID) {
		return apiclient.MissingParam("sessionId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/vaccination-sessions/%s/students", sessionID),
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải danh sách học sinh của buổi tiêm")
}

func (s *Service) RecordResult(ctx context.Context, sessionID, studentID string, req model.VaccinationResultRequest) apiclient.Envelope {
	if apiclient.Blank(sessionID) {
		return apiclient.MissingParam("sessionId")
	}
	if apiclient.Blank(studentID) {
		return apiclient.MissingParam("studentId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPatch,
		Path:     apiclient.Path("/vaccination-sessions/%s/students/%s/result", sessionID, studentID),
		Body:     req,
		Resource: resource,
	}, "Không thể ghi nhận kết quả tiêm chủng")
}
