package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

const resource = "auth"

type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) *Service {
	return &Service{client: client}
}

// Login exchanges credentials for a bearer token. The envelope data decodes
// into model.LoginResult.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) apiclient.Envelope {
	if strings.TrimSpace(req.Username) == "" {
		return apiclient.MissingParam("username")
	}
	if req.Password == "" {
		return apiclient.MissingParam("password")
	}
	return s.client.Send(ctx, apiclient.Request{
		Method:   http.MethodPost,
		Path:     "/auth/login",
		Body:     req,
		Resource: resource,
	}, "Đăng nhập thất bại")
}
