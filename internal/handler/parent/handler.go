// Package parent serves the pages of the parent role.
package parent

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/handler"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/navigation"
	"github.com/jwalitptl/schoolmed/internal/workflow/medrequest"
	"github.com/jwalitptl/schoolmed/pkg/httputil"
	"github.com/jwalitptl/schoolmed/pkg/validator"
)

type StudentService interface {
	ListByParent(ctx context.Context) apiclient.Envelope
	Search(ctx context.Context, q model.ListQuery) apiclient.Envelope
}

type VaccinationService interface {
	ListStudentSessions(ctx context.Context, studentID string, q model.ListQuery) apiclient.Envelope
	GetParentConsent(ctx context.Context, sessionID, studentID string) apiclient.Envelope
	SubmitParentConsent(ctx context.Context, sessionID string, req model.ConsentRequest) apiclient.Envelope
}

type MedicationService interface {
	ListByStudent(ctx context.Context, studentID string, q model.ListQuery) apiclient.Envelope
	UsageHistory(ctx context.Context, id string, q model.ListQuery) apiclient.Envelope
	CreateRequest(ctx context.Context, req model.MedicationRequest) apiclient.Envelope
}

type HealthEventService interface {
	ListByStudent(ctx context.Context, studentID string, q model.ListQuery) apiclient.Envelope
}

type Services struct {
	Students     StudentService
	Vaccinations VaccinationService
	Medications  MedicationService
	HealthEvents HealthEventService
}

type Handler struct {
	svc        Services
	bind       handler.Binder
	medication *validator.Validator
	searchSize int
}

// NewHandler takes the wizard validator separately: it carries the
// medication rules on top of the shared messages.
func NewHandler(svc Services, bind handler.Binder, medication *validator.Validator, searchSize int) *Handler {
	return &Handler{
		svc:        svc,
		bind:       bind,
		medication: medication,
		searchSize: searchSize,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/students", h.ListStudents)
	r.GET("/students/:studentId/vaccinations", h.ListVaccinations)
	r.GET("/students/:studentId/medications", h.ListMedications)
	r.GET("/students/:studentId/health-events", h.ListHealthEvents)
	r.GET("/medications/:id/history", h.MedicationHistory)

	r.GET("/vaccinations/:sessionId/consent", h.GetConsent)
	r.POST("/vaccinations/:sessionId/consent", h.SubmitConsent)

	requests := r.Group("/medication-requests")
	{
		requests.GET("/students", h.SearchStudents)
		requests.POST("/steps", h.AddStep)
		requests.POST("/times", h.ToggleTime)
		requests.POST("", h.SubmitRequest)
	}
}

func (h *Handler) ListStudents(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Students.ListByParent(c.Request.Context()))
}

func (h *Handler) ListVaccinations(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	studentID := c.Param("studentId")
	page, status := handler.LoadPage[model.VaccinationSession](c, q, func(ctx context.Context, q model.ListQuery) apiclient.Envelope {
		return h.svc.Vaccinations.ListStudentSessions(ctx, studentID, q)
	})
	handler.RenderPage(c, page, status)
}

func (h *Handler) ListMedications(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	studentID := c.Param("studentId")
	page, status := handler.LoadPage[model.MedicationUsage](c, q, func(ctx context.Context, q model.ListQuery) apiclient.Envelope {
		return h.svc.Medications.ListByStudent(ctx, studentID, q)
	})
	handler.RenderPage(c, page, status)
}

func (h *Handler) ListHealthEvents(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	studentID := c.Param("studentId")
	page, status := handler.LoadPage[model.HealthEvent](c, q, func(ctx context.Context, q model.ListQuery) apiclient.Envelope {
		return h.svc.HealthEvents.ListByStudent(ctx, studentID, q)
	})
	handler.RenderPage(c, page, status)
}

func (h *Handler) MedicationHistory(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	id := c.Param("id")
	page, status := handler.LoadPage[model.AdministrationRecord](c, q, func(ctx context.Context, q model.ListQuery) apiclient.Envelope {
		return h.svc.Medications.UsageHistory(ctx, id, q)
	})
	handler.RenderPage(c, page, status)
}

func (h *Handler) GetConsent(c *gin.Context) {
	env := h.svc.Vaccinations.GetParentConsent(c.Request.Context(), c.Param("sessionId"), c.Query("studentId"))
	handler.RenderEnvelope(c, env)
}

func (h *Handler) SubmitConsent(c *gin.Context) {
	var req model.ConsentRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.Vaccinations.SubmitParentConsent(c.Request.Context(), c.Param("sessionId"), req))
}

// requestForm is the wizard state the page posts back.
type requestForm struct {
	StudentID   string             `json:"studentId"`
	Medications []model.Medication `json:"medications"`
	Current     int                `json:"current"`
	Period      model.Period       `json:"period,omitempty"`
}

// recorder keeps the last create response so the page can answer with its status.
type recorder struct {
	medrequest.Service
	env apiclient.Envelope
}

func (r *recorder) CreateRequest(ctx context.Context, req model.MedicationRequest) apiclient.Envelope {
	r.env = r.Service.CreateRequest(ctx, req)
	return r.env
}

func (h *Handler) wizard(c *gin.Context, svc medrequest.Service) *medrequest.Wizard {
	return medrequest.New(svc, h.svc.Students, h.medication, navigation.ForContext(c), medrequest.Options{
		SearchPageSize: h.searchSize,
		Context:        c.Request.Context(),
	})
}

func (h *Handler) restore(c *gin.Context, svc medrequest.Service) (*medrequest.Wizard, requestForm, bool) {
	var form requestForm
	if !h.bind.JSON(c, &form) {
		return nil, form, false
	}
	w := h.wizard(c, svc)
	w.Restore(form.StudentID, form.Medications, form.Current)
	return w, form, true
}

func (h *Handler) SearchStudents(c *gin.Context) {
	w := h.wizard(c, h.svc.Medications)
	defer w.Close()

	st := w.FindStudents(c.Request.Context(), c.Query("searchTerm"))
	status := http.StatusOK
	if st.Error != "" {
		status = http.StatusBadGateway
	}
	c.JSON(status, httputil.Response{Success: st.Error == "", Message: st.Error, Data: st})
}

func (h *Handler) AddStep(c *gin.Context) {
	w, _, ok := h.restore(c, h.svc.Medications)
	if !ok {
		return
	}
	defer w.Close()

	if err := w.AddStep(c.Request.Context()); err != nil {
		renderInvalid(c, w.View())
		return
	}
	httputil.RespondWithSuccess(c, w.View())
}

func (h *Handler) ToggleTime(c *gin.Context) {
	w, form, ok := h.restore(c, h.svc.Medications)
	if !ok {
		return
	}
	defer w.Close()

	if err := w.ToggleTimeOfDay(form.Period); err != nil {
		renderInvalid(c, w.View())
		return
	}
	httputil.RespondWithSuccess(c, w.View())
}

// SubmitRequest validates every medication and sends the request. On success
// the wizard navigates to the student's medication list.
func (h *Handler) SubmitRequest(c *gin.Context) {
	rec := &recorder{Service: h.svc.Medications}
	w, _, ok := h.restore(c, rec)
	if !ok {
		return
	}
	defer w.Close()

	view, err := w.Submit(c.Request.Context())
	switch {
	case err == nil:
		// the navigator answered the request
	case stderrors.Is(err, medrequest.ErrValidation):
		renderInvalid(c, view)
	case stderrors.Is(err, medrequest.ErrSubmissionFailure):
		c.JSON(handler.EnvelopeStatus(rec.env), httputil.Response{
			Success: false,
			Message: view.Message,
			Errors:  rec.env.Errors,
			Data:    view,
		})
	default:
		c.JSON(http.StatusConflict, httputil.Response{Success: false, Message: err.Error(), Data: view})
	}
}

func renderInvalid(c *gin.Context, view medrequest.View) {
	c.JSON(http.StatusUnprocessableEntity, httputil.Response{
		Success: false,
		Message: "Vui lòng kiểm tra lại thông tin thuốc",
		Data:    view,
		Fields:  view.Errors,
	})
}
