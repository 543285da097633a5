package handler

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/paging"
	"github.com/jwalitptl/schoolmed/pkg/errors"
	"github.com/jwalitptl/schoolmed/pkg/httputil"
	"github.com/jwalitptl/schoolmed/pkg/validator"
)

const msgInvalidForm = "Dữ liệu không hợp lệ"

// EnvelopeStatus is the portal status for an upstream envelope. A failure
// keeps the upstream error status; a 2xx answer with success false is a
// business rejection and becomes 422. 502 is left for envelopes that never
// got a response.
func EnvelopeStatus(env apiclient.Envelope) int {
	switch {
	case env.Success:
		return http.StatusOK
	case env.StatusCode >= 400:
		return env.StatusCode
	case env.StatusCode >= 200 && env.StatusCode < 300:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// RenderEnvelope writes the envelope unchanged.
func RenderEnvelope(c *gin.Context, env apiclient.Envelope) {
	c.JSON(EnvelopeStatus(env), env)
}

// Page is the view-model of every list page.
type Page[T any] struct {
	paging.State[T]
	Query  model.ListQuery   `json:"query"`
	Extras map[string]string `json:"extras,omitempty"`
}

// ListFunc is a service list call.
type ListFunc func(ctx context.Context, q model.ListQuery) apiclient.Envelope

// LoadPage runs one paged fetch for the request's query and returns the page
// with the status to answer with.
func LoadPage[T any](c *gin.Context, q model.ListQuery, list ListFunc) (Page[T], int) {
	status := http.StatusOK
	fetch := func(ctx context.Context, pq paging.Query[model.ListQuery]) (paging.Page[T], error) {
		lq := pq.Filter
		lq.PageIndex = pq.PageIndex
		lq.PageSize = pq.PageSize
		lq.SearchTerm = pq.Search
		env := list(ctx, lq)
		status = EnvelopeStatus(env)
		return paging.FromEnvelope[T](env)
	}

	q = q.Normalize()
	res := paging.New[T](fetch, q, paging.Options{
		PageIndex: q.PageIndex,
		PageSize:  q.PageSize,
		Search:    q.SearchTerm,
	})
	defer res.Close()

	st := res.Load(c.Request.Context())
	if st.Error != "" && status == http.StatusOK {
		status = http.StatusBadGateway
	}
	return Page[T]{State: st, Query: q}, status
}

// RenderPage writes a list page; failures keep the page shape so the error
// shows in place of the table.
func RenderPage[T any](c *gin.Context, page Page[T], status int) {
	c.JSON(status, httputil.Response{
		Success: status == http.StatusOK,
		Message: page.Error,
		Data:    page,
	})
}

// BindListQuery reads pageIndex, pageSize, searchTerm, orderBy, status,
// fromDate and toDate from the query string.
func BindListQuery(c *gin.Context) (model.ListQuery, error) {
	var q model.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return q, errors.BadRequest("Tham số truy vấn không hợp lệ", err)
	}
	return q.Normalize(), nil
}

// Binder binds JSON bodies and reports validation failures field by field.
type Binder struct {
	Validator *validator.Validator
}

// JSON binds the body into obj. On failure it writes the response and
// returns false.
func (b Binder) JSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		b.fail(c, err)
		return false
	}
	return true
}

func (b Binder) fail(c *gin.Context, err error) {
	var verrs playground.ValidationErrors
	if stderrors.As(err, &verrs) && b.Validator != nil {
		httputil.RespondWithValidation(c, msgInvalidForm, b.Validator.Translate(err))
		return
	}
	httputil.RespondWithError(c, errors.BadRequest(msgInvalidForm, err))
}
