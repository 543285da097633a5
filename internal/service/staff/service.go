package staff

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

const resource = "staff"

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

func (s *Service) List(ctx context.Context, q model.ListQuery) apiclient.Envelope {
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     "/staff",
		Query:    q.Values(),
		Resource: resource,
	}, "Không thể tải danh sách nhân viên")
}

func (s *Service) Get(ctx context.Context, id string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("staffId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     apiclient.Path("/staff/%s", id),
		Resource: resource,
	}, "Không thể tải thông tin nhân viên")
}

func (s *Service) Create(ctx context.Context, req model.StaffRequest) apiclient.Envelope {
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     "/staff",
		Body:     req,
		Resource: resource,
	}, "Không thể tạo nhân viên")
}

func (s *Service) Update(ctx context.Context, id string, req model.StaffRequest) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("staffId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     apiclient.Path("/staff/%s", id),
		Body:     req,
		Resource: resource,
	}, "Không thể cập nhật nhân viên")
}

func (s *Service) Delete(ctx context.Context, id string) apiclient.Envelope {
	if apiclient.Blank(id) {
		return apiclient.MissingParam("staffId")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodDelete,
		Path:     apiclient.Path("/staff/%s", id),
		Resource: resource,
	}, "Không thể xóa nhân viên")
}

// GetProfile loads the signed-in staff member's profile. Unlike the rest of
// the module it returns the raw error instead of folding it into an envelope.
func (s *Service) GetProfile(ctx context.Context) (*model.Staff, error) {
	env, err := s.client.Do(ctx, apiclient.Request{
		Method:   http.MethodGet,
		Path:     "/staff/profile",
		Resource: resource,
	})
	if err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	var profile model.Staff
	if err := env.Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode staff profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile has the same error contract as GetProfile.
func (s *Service) UpdateProfile(ctx context.Context, req model.StaffRequest) (*model.Staff, error) {
	env, err := s.client.Do(ctx, apiclient.Request{
		Method:   http.MethodPut,
		Path:     "/staff/profile",
		Body:     req,
		Resource: resource,
	})
	if err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	var profile model.Staff
	if len(env.Data) > 0 {
		if err := env.Decode(&profile); err != nil {
			return nil, fmt.Errorf("decode staff profile: %w", err)
		}
	}
	return &profile, nil
}
