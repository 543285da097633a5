// Package nurse serves the school nurse and staff pages.
package nurse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/handler"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/pkg/errors"
	"github.com/jwalitptl/schoolmed/pkg/httputil"
)

type StudentService interface {
	Search(ctx context.Context, q model.ListQuery) apiclient.Envelope
	Get(ctx context.Context, id string) apiclient.Envelope
	Import(ctx context.Context, filename string, content io.Reader) apiclient.Envelope
}

type HealthEventService interface {
	List(ctx context.Context, q model.ListQuery) apiclient.Envelope
	Get(ctx context.Context, id string) apiclient.Envelope
	Create(ctx context.Context, req model.HealthEventRequest) apiclient.Envelope
	Update(ctx context.Context, id string, req model.HealthEventRequest) apiclient.Envelope
	Delete(ctx context.Context, id string) apiclient.Envelope
}

type VaccinationService interface {
	ListSessions(ctx context.Context, q model.ListQuery) apiclient.Envelope
	GetSession(ctx context.Context, sessionID string) apiclient.Envelope
	CreateSession(ctx context.Context, req model.VaccinationSessionRequest) apiclient.Envelope
	UpdateSession(ctx context.Context, sessionID string, req model.VaccinationSessionRequest) apiclient.Envelope
	DeleteSession(ctx context.Context, sessionID string) apiclient.Envelope
	ListSessionStudents(ctx context.Context, sessionID string, q model.ListQuery) apiclient.Envelope
	RecordResult(ctx context.Context, sessionID, studentID string, req model.VaccinationResultRequest) apiclient.Envelope
}

type StaffService interface {
	List(ctx context.Context, q model.ListQuery) apiclient.Envelope
	Get(ctx context.Context, id string) apiclient.Envelope
	Create(ctx context.Context, req model.StaffRequest) apiclient.Envelope
	Update(ctx context.Context, id string, req model.StaffRequest) apiclient.Envelope
	Delete(ctx context.Context, id string) apiclient.Envelope
	GetProfile(ctx context.Context) (*model.Staff, error)
	UpdateProfile(ctx context.Context, req model.StaffRequest) (*model.Staff, error)
}

type Services struct {
	Students     StudentService
	Medications  MedicationService
	HealthEvents HealthEventService
	Vaccinations VaccinationService
	Staff        StaffService
}

type Handler struct {
	svc   Services
	bind  handler.Binder
	admin AdministrationConfig
}

func NewHandler(svc Services, bind handler.Binder, admin AdministrationConfig) *Handler {
	if admin.Periods == nil {
		admin.Periods = model.DefaultPeriodRanges()
	}
	if admin.Location == nil {
		admin.Location = model.Location()
	}
	return &Handler{svc: svc, bind: bind, admin: admin}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	students := r.Group("/students")
	{
		students.GET("", h.SearchStudents)
		students.GET("/:id", h.GetStudent)
		students.POST("/import", h.ImportStudents)
	}

	h.registerMedicationRoutes(r)

	events := r.Group("/health-events")
	{
		events.GET("", h.ListHealthEvents)
		events.POST("", h.CreateHealthEvent)
		events.GET("/:id", h.GetHealthEvent)
		events.PUT("/:id", h.UpdateHealthEvent)
		events.DELETE("/:id", h.DeleteHealthEvent)
	}

	vaccinations := r.Group("/vaccinations")
	{
		vaccinations.GET("", h.ListSessions)
		vaccinations.POST("", h.CreateSession)
		vaccinations.GET("/:sessionId", h.GetSession)
		vaccinations.PUT("/:sessionId", h.UpdateSession)
		vaccinations.DELETE("/:sessionId", h.DeleteSession)
		vaccinations.GET("/:sessionId/students", h.ListSessionStudents)
		vaccinations.PATCH("/:sessionId/students/:studentId/result", h.RecordResult)
	}

	staff := r.Group("/staff")
	{
		staff.GET("", h.ListStaff)
		staff.POST("", h.CreateStaff)
		staff.GET("/:id", h.GetStaff)
		staff.PUT("/:id", h.UpdateStaff)
		staff.DELETE("/:id", h.DeleteStaff)
	}

	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.UpdateProfile)
}

func (h *Handler) SearchStudents(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	page, status := handler.LoadPage[model.Student](c, q, h.svc.Students.Search)
	handler.RenderPage(c, page, status)
}

func (h *Handler) GetStudent(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Students.Get(c.Request.Context(), c.Param("id")))
}

var importExtensions = []string{".xlsx", ".xls", ".csv"}

func (h *Handler) ImportStudents(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		httputil.RespondWithValidation(c, "Vui lòng chọn tệp danh sách học sinh", map[string]string{"file": "Trường này là bắt buộc"})
		return
	}
	if !allowedImport(fh.Filename) {
		httputil.RespondWithValidation(c, "Tệp không đúng định dạng", map[string]string{
			"file": fmt.Sprintf("Chỉ chấp nhận %s", strings.Join(importExtensions, ", ")),
		})
		return
	}

	f, err := fh.Open()
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("Không thể đọc tệp tải lên", err))
		return
	}
	defer f.Close()

	env := h.svc.Students.Import(c.Request.Context(), fh.Filename, f)
	if !env.Success {
		log.Warn().Str("file", fh.Filename).Str("message", env.Message).Msg("Student import rejected")
	}
	handler.RenderEnvelope(c, env)
}

func allowedImport(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range importExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (h *Handler) ListHealthEvents(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	page, status := handler.LoadPage[model.HealthEvent](c, q, h.svc.HealthEvents.List)
	handler.RenderPage(c, page, status)
}

func (h *Handler) GetHealthEvent(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.HealthEvents.Get(c.Request.Context(), c.Param("id")))
}

func (h *Handler) CreateHealthEvent(c *gin.Context) {
	var req model.HealthEventRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.HealthEvents.Create(c.Request.Context(), req))
}

func (h *Handler) UpdateHealthEvent(c *gin.Context) {
	var req model.HealthEventRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.HealthEvents.Update(c.Request.Context(), c.Param("id"), req))
}

func (h *Handler) DeleteHealthEvent(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.HealthEvents.Delete(c.Request.Context(), c.Param("id")))
}

func (h *Handler) ListSessions(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	page, status := handler.LoadPage[model.VaccinationSession](c, q, h.svc.Vaccinations.ListSessions)
	handler.RenderPage(c, page, status)
}

func (h *Handler) GetSession(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Vaccinations.GetSession(c.Request.Context(), c.Param("sessionId")))
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req model.VaccinationSessionRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.Vaccinations.CreateSession(c.Request.Context(), req))
}

func (h *Handler) UpdateSession(c *gin.Context) {
	var req model.VaccinationSessionRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.Vaccinations.UpdateSession(c.Request.Context(), c.Param("sessionId"), req))
}

func (h *Handler) DeleteSession(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Vaccinations.DeleteSession(c.Request.Context(), c.Param("sessionId")))
}

func (h *Handler) ListSessionStudents(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	sessionID := c.Param("sessionId")
	page, status := handler.LoadPage[model.SessionStudent](c, q, func(ctx context.Context, q model.ListQuery) apiclient.Envelope {
		return h.svc.Vaccinations.ListSessionStudents(ctx, sessionID, q)
	})
	handler.RenderPage(c, page, status)
}

func (h *Handler) RecordResult(c *gin.Context) {
	var req model.VaccinationResultRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	env := h.svc.Vaccinations.RecordResult(c.Request.Context(), c.Param("sessionId"), c.Param("studentId"), req)
	handler.RenderEnvelope(c, env)
}

func (h *Handler) ListStaff(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	page, status := handler.LoadPage[model.Staff](c, q, h.svc.Staff.List)
	handler.RenderPage(c, page, status)
}

func (h *Handler) GetStaff(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Staff.Get(c.Request.Context(), c.Param("id")))
}

func (h *Handler) CreateStaff(c *gin.Context) {
	var req model.StaffRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.Staff.Create(c.Request.Context(), req))
}

func (h *Handler) UpdateStaff(c *gin.Context) {
	var req model.StaffRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.Staff.Update(c.Request.Context(), c.Param("id"), req))
}

func (h *Handler) DeleteStaff(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Staff.Delete(c.Request.Context(), c.Param("id")))
}

// GetProfile and UpdateProfile go through the legacy staff calls, which
// return raw errors instead of envelopes.
func (h *Handler) GetProfile(c *gin.Context) {
	staff, err := h.svc.Staff.GetProfile(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, profileError(err))
		return
	}
	httputil.RespondWithSuccess(c, staff)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.StaffRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	staff, err := h.svc.Staff.UpdateProfile(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, profileError(err))
		return
	}
	httputil.RespondWithMessage(c, "Đã cập nhật hồ sơ", staff)
}

func profileError(err error) error {
	switch {
	case apiclient.IsStatus(err, http.StatusUnauthorized):
		return errors.Unauthorized(err)
	case apiclient.IsStatus(err, http.StatusForbidden):
		return errors.Forbidden(err)
	case apiclient.IsStatus(err, http.StatusNotFound):
		return errors.NotFound("hồ sơ", err)
	default:
		return errors.Upstream("Không thể tải hồ sơ nhân viên", err)
	}
}
