package nurse

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/handler"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/workflow/administration"
	"github.com/jwalitptl/schoolmed/pkg/errors"
	"github.com/jwalitptl/schoolmed/pkg/httputil"
)

type MedicationService interface {
	ListUsages(ctx context.Context, q model.ListQuery) apiclient.Envelope
	GetUsage(ctx context.Context, id string) apiclient.Envelope
	UsageHistory(ctx context.Context, id string, q model.ListQuery) apiclient.Envelope
	RecordAdministration(ctx context.Context, id string, req model.AdministrationRequest) apiclient.Envelope
	Discontinue(ctx context.Context, id, reason string) apiclient.Envelope
	ConfirmReceived(ctx context.Context, id string) apiclient.Envelope
	Approve(ctx context.Context, id string) apiclient.Envelope
	Reject(ctx context.Context, id, reason string) apiclient.Envelope
}

// AdministrationConfig configures the administration dialog.
type AdministrationConfig struct {
	Periods    model.PeriodRanges
	CloseDelay time.Duration
	Location   *time.Location
	Now        func() time.Time
}

func (h *Handler) registerMedicationRoutes(r gin.IRouter) {
	meds := r.Group("/medications")
	{
		meds.GET("", h.ListMedications)
		meds.GET("/:id", h.GetMedication)
		meds.GET("/:id/history", h.MedicationHistory)
		meds.GET("/:id/administer", h.OpenAdministration)
		meds.POST("/:id/administer", h.SubmitAdministration)
		meds.PUT("/:id/discontinue", h.Discontinue)
		meds.PUT("/:id/confirm-received", h.ConfirmReceived)
		meds.PATCH("/:id/approve", h.Approve)
		meds.PATCH("/:id/reject", h.Reject)
	}
}

// MedicationPage adds the status tabs to the medication list.
type MedicationPage struct {
	handler.Page[model.MedicationUsage]
	Statuses []StatusTab `json:"statuses"`
}

type StatusTab struct {
	Status model.MedicationStatus `json:"status"`
	Label  string                 `json:"label"`
	Active bool                   `json:"active"`
}

func (h *Handler) ListMedications(c *gin.Context) {
	q, err := handler.BindListQuery(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if q.Status != "" && !model.MedicationStatus(q.Status).Valid() {
		httputil.RespondWithError(c, errors.BadRequest("Trạng thái thuốc không hợp lệ", nil))
		return
	}

	page, status := handler.LoadPage[model.MedicationUsage](c, q, h.svc.Medications.ListUsages)

	tabs := make([]StatusTab, 0, len(model.MedicationStatuses))
	for _, s := range model.MedicationStatuses {
		tabs = append(tabs, StatusTab{Status: s, Label: s.Label(), Active: string(s) == q.Status})
	}
	c.JSON(status, httputil.Response{
		Success: status == http.StatusOK,
		Message: page.Error,
		Data:    MedicationPage{Page: page, Statuses: tabs},
	})
}

func (h *Handler) GetMedication(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Medications.GetUsage(c.Request.Context(), c.Param("id")))
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

// administrationView is what the administer endpoints answer with.
type administrationView struct {
	administration.View
	// CloseAfter tells the page how long to keep the dialog after a success.
	CloseAfter int64 `json:"closeAfterMs,omitempty"`
	Refresh    bool  `json:"refresh,omitempty"`
}

// openModal loads the medication and opens the dialog for it. On failure the
// response has been written.
func (h *Handler) openModal(c *gin.Context, svc administration.Service) (*administration.Modal, bool) {
	env := h.svc.Medications.GetUsage(c.Request.Context(), c.Param("id"))
	if !env.Success {
		handler.RenderEnvelope(c, env)
		return nil, false
	}
	var usage model.MedicationUsage
	if err := env.Decode(&usage); err != nil {
		httputil.RespondWithError(c, errors.Upstream(apiclient.MsgInvalidResponse, err))
		return nil, false
	}
	if usage.ID == "" {
		usage.ID = c.Param("id")
	}

	modal := administration.New(svc, administration.Config{
		Periods:  h.admin.Periods,
		Location: h.admin.Location,
		Now:      h.admin.Now,
	})
	modal.Open(c.Request.Context(), administration.Options{Medication: usage})
	return modal, true
}

func (h *Handler) OpenAdministration(c *gin.Context) {
	modal, ok := h.openModal(c, h.svc.Medications)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, administrationView{View: modal.View()})
}

type administrationForm struct {
	Period           model.Period               `json:"period" binding:"required"`
	Status           model.AdministrationStatus `json:"status" binding:"required"`
	DosageUsed       string                     `json:"dosageUsed"`
	Note             string                     `json:"note"`
	// AdministeredTime is read in the school's zone when it carries none.
	AdministeredTime string `json:"administeredTime"`
}

// recorder keeps the last administration response for its status code.
type recorder struct {
	administration.Service
	env apiclient.Envelope
}

func (r *recorder) RecordAdministration(ctx context.Context, id string, req model.AdministrationRequest) apiclient.Envelope {
	r.env = r.Service.RecordAdministration(ctx, id, req)
	return r.env
}

func (h *Handler) SubmitAdministration(c *gin.Context) {
	var form administrationForm
	if !h.bind.JSON(c, &form) {
		return
	}
	var at time.Time
	if strings.TrimSpace(form.AdministeredTime) != "" {
		parsed, err := model.ParseDateTime(form.AdministeredTime, h.admin.Location)
		if err != nil {
			httputil.RespondWithValidation(c, "Vui lòng kiểm tra lại thông tin", map[string]string{
				"administeredTime": "Thời gian cho uống thuốc không hợp lệ",
			})
			return
		}
		at = parsed.Time
	}

	rec := &recorder{Service: h.svc.Medications}
	modal, ok := h.openModal(c, rec)
	if !ok {
		return
	}

	if err := modal.SelectPeriod(form.Period); err != nil {
		msg := "Buổi uống thuốc không hợp lệ"
		if stderrors.Is(err, administration.ErrPeriodDisabled) {
			msg = "Buổi này đã được ghi nhận hôm nay"
		}
		c.JSON(http.StatusConflict, httputil.Response{Success: false, Message: msg, Data: administrationView{View: modal.View()}})
		return
	}
	if err := modal.SelectStatus(form.Status); err != nil {
		c.JSON(http.StatusUnprocessableEntity, httputil.Response{
			Success: false,
			Message: "Trạng thái không hợp lệ cho buổi này",
			Data:    administrationView{View: modal.View()},
		})
		return
	}
	if !fillForm(c, modal, administration.Form{
		DosageUsed:       form.DosageUsed,
		Note:             form.Note,
		AdministeredTime: at,
	}) {
		return
	}

	view, err := modal.Submit(c.Request.Context())
	switch {
	case err == nil:
		httputil.RespondWithMessage(c, view.Alert.Message, administrationView{
			View:       view,
			CloseAfter: h.admin.CloseDelay.Milliseconds(),
			Refresh:    true,
		})
	case stderrors.Is(err, administration.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, httputil.Response{
			Success: false,
			Message: "Vui lòng kiểm tra lại thông tin",
			Data:    administrationView{View: view},
			Fields:  view.Errors,
		})
	default:
		msg := err.Error()
		if view.Alert != nil {
			msg = view.Alert.Message
		}
		c.JSON(handler.EnvelopeStatus(rec.env), httputil.Response{
			Success: false,
			Message: msg,
			Errors:  rec.env.Errors,
			Data:    administrationView{View: view},
		})
	}
}

// fillForm writes the posted values into the dialog. A closed dialog is a
// 409 and the response has been written.
func fillForm(c *gin.Context, modal *administration.Modal, f administration.Form) bool {
	if err := modal.SetForm(f); err != nil {
		c.JSON(http.StatusConflict, httputil.Response{
			Success: false,
			Message: "Hộp thoại cho uống thuốc đã đóng",
			Data:    administrationView{View: modal.View()},
		})
		return false
	}
	return true
}

func (h *Handler) Discontinue(c *gin.Context) {
	var req model.ReasonRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.Medications.Discontinue(c.Request.Context(), c.Param("id"), req.Reason))
}

func (h *Handler) ConfirmReceived(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Medications.ConfirmReceived(c.Request.Context(), c.Param("id")))
}

func (h *Handler) Approve(c *gin.Context) {
	handler.RenderEnvelope(c, h.svc.Medications.Approve(c.Request.Context(), c.Param("id")))
}

func (h *Handler) Reject(c *gin.Context) {
	var req model.ReasonRequest
	if !h.bind.JSON(c, &req) {
		return
	}
	handler.RenderEnvelope(c, h.svc.Medications.Reject(c.Request.Context(), c.Param("id"), req.Reason))
}
