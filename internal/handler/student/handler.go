// Package student serves the pages a signed-in student sees about themself.
package student

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/handler"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/session"
	"github.com/jwalitptl/schoolmed/pkg/httputil"
)

type ListByStudentFunc func(ctx context.Context, studentID string, q model.ListQuery) apiclient.Envelope

type Services struct {
	Vaccinations ListByStudentFunc
	Medications  ListByStudentFunc
	HealthEvents ListByStudentFunc
}

type Handler struct {
	svc Services
}

func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/vaccinations", h.ListVaccinations)
	r.GET("/medications", h.ListMedications)
	r.GET("/health-events", h.ListHealthEvents)
}

func (h *Handler) ListVaccinations(c *gin.Context) {
	render[model.VaccinationSession](c, h.svc.Vaccinations)
}

func (h *Handler) ListMedications(c *gin.Context) {
	render[model.MedicationUsage](c, h.svc.Medications)
}

func (h *Handler) ListHealthEvents(c *gin.Context) {
	render[model.HealthEvent](c, h.svc.HealthEvents)
}

// render lists rows of the student bound to the session. A session without a
// student id reaches the API as a missing parameter.
func render[T any](c *gin.Context, list ListByStudentFunc) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var studentID string
	if s := session.FromContext(c.Request.Context()); s != nil {
		studentID = s.StudentID
		if studentID == "" {
			studentID = s.UserID
		}
	}

	page, status := handler.LoadPage[T](c, q, func(ctx context.Context, q model.ListQuery) apiclient.Envelope {
		return list(ctx, studentID, q)
	})
	handler.RenderPage(c, page, status)
}
