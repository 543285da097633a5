// Package medrequest implements the multi-step form a parent uses to send
// medications to the school nurse. Each step is one medication.
package medrequest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/navigation"
	"github.com/jwalitptl/schoolmed/internal/paging"
	"github.com/jwalitptl/schoolmed/pkg/validator"
)

var (
	ErrIncomplete        = errors.New("current medication is incomplete")
	ErrStepOutOfRange    = errors.New("step out of range")
	ErrTooManyTimes      = errors.New("times of day exceed the daily frequency")
	ErrValidation        = errors.New("medication request is invalid")
	ErrSubmitting        = errors.New("a submission is already in progress")
	ErrSubmissionFailure = errors.New("medication request was not sent")
)

// Service is the part of the medication API the wizard calls.
type Service interface {
	CreateRequest(ctx context.Context, req model.MedicationRequest) apiclient.Envelope
}

// StudentSearcher backs the student type-ahead.
type StudentSearcher interface {
	Search(ctx context.Context, q model.ListQuery) apiclient.Envelope
}

type Options struct {
	SearchDebounce time.Duration
	SearchPageSize int
	// Context bounds background student searches; Close cancels them.
	Context context.Context
}

// View is a render snapshot.
type View struct {
	StudentID  string             `json:"studentId"`
	Steps      []model.Medication `json:"steps"`
	Current    int                `json:"current"`
	Errors     map[string]string  `json:"errors,omitempty"`
	CanAdd     bool               `json:"canAdd"`
	Submitting bool               `json:"submitting"`
	Message    string             `json:"message,omitempty"`
}

type Wizard struct {
	svc      Service
	validate *validator.Validator
	nav      navigation.Navigator
	students *paging.Resource[model.Student, struct{}]

	mu         sync.Mutex
	studentID  string
	steps      []model.Medication
	current    int
	errors     map[string]string
	submitting bool
	message    string
}

func New(svc Service, searcher StudentSearcher, v *validator.Validator, nav navigation.Navigator, opts Options) *Wizard {
	if opts.SearchDebounce < 0 {
		opts.SearchDebounce = 0
	}
	fetch := func(ctx context.Context, q paging.Query[struct{}]) (paging.Page[model.Student], error) {
		return paging.FromEnvelope[model.Student](searcher.Search(ctx, q.ListQuery()))
	}
	return &Wizard{
		svc:      svc,
		validate: v,
		nav:      nav,
		students: paging.New[model.Student](fetch, struct{}{}, paging.Options{
			PageSize: opts.SearchPageSize,
			Debounce: opts.SearchDebounce,
			Context:  opts.Context,
		}),
		steps: []model.Medication{{}},
	}
}

// Restore replaces the wizard content, e.g. from a posted form.
func (w *Wizard) Restore(studentID string, steps []model.Medication, current int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.studentID = strings.TrimSpace(studentID)
	w.steps = append([]model.Medication(nil), steps...)
	if len(w.steps) == 0 {
		w.steps = []model.Medication{{}}
	}
	w.current = clamp(current, len(w.steps))
	w.errors = nil
}

func (w *Wizard) SelectStudent(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.studentID = strings.TrimSpace(id)
	delete(w.errors, "studentId")
}

// SearchStudents feeds the type-ahead; the fetch runs once typing pauses.
func (w *Wizard) SearchStudents(term string) {
	w.students.SetSearch(term)
}

// FindStudents searches immediately; server-rendered pages debounce in the
// browser instead.
func (w *Wizard) FindStudents(ctx context.Context, term string) paging.State[model.Student] {
	return w.students.SearchNow(ctx, term)
}

func (w *Wizard) Students() paging.State[model.Student] {
	return w.students.State()
}

// OnStudents registers a callback for type-ahead results.
func (w *Wizard) OnStudents(fn func(paging.State[model.Student])) {
	w.students.OnChange(fn)
}

// Update edits the current step in place.
func (w *Wizard) Update(fn func(m *model.Medication)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.steps[w.current])
}

// ToggleTimeOfDay selects or clears a period on the current step. Selecting
// beyond the daily frequency is rejected with an inline error.
func (w *Wizard) ToggleTimeOfDay(p model.Period) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	step := &w.steps[w.current]
	for i, t := range step.TimesOfDay {
		if t == p {
			step.TimesOfDay = append(step.TimesOfDay[:i:i], step.TimesOfDay[i+1:]...)
			delete(w.errors, "timesOfDay")
			return nil
		}
	}

	if len(step.TimesOfDay) >= step.Frequency {
		w.setError("timesOfDay", timesLimitMessage(step.Frequency))
		return ErrTooManyTimes
	}
	step.TimesOfDay = append(step.TimesOfDay, p)
	delete(w.errors, "timesOfDay")
	return nil
}

func timesLimitMessage(freq int) string {
	if freq <= 0 {
		return "Vui lòng nhập số lần dùng mỗi ngày trước khi chọn thời điểm uống thuốc"
	}
	return maxTimesMessage(fmt.Sprint(freq))
}

// AddStep appends an empty medication once the current one is complete.
func (w *Wizard) AddStep(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if errs := w.validate.StructCtx(completenessOnly(ctx), w.steps[w.current]); errs != nil {
		w.errors = errs
		return ErrIncomplete
	}
	w.steps = append(w.steps, model.Medication{})
	w.current = len(w.steps) - 1
	w.errors = nil
	return nil
}

// RemoveStep drops a step; the last remaining step cannot be removed.
func (w *Wizard) RemoveStep(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.steps) {
		return ErrStepOutOfRange
	}
	if len(w.steps) == 1 {
		w.steps[0] = model.Medication{}
		w.errors = nil
		return nil
	}
	w.steps = append(w.steps[:i:i], w.steps[i+1:]...)
	w.current = clamp(w.current, len(w.steps))
	w.errors = nil
	return nil
}

func (w *Wizard) Next() error { return w.move(1) }

func (w *Wizard) Prev() error { return w.move(-1) }

func (w *Wizard) move(delta int) error {
	w.mu.Lock()
	i := w.current + delta
	w.mu.Unlock()
	return w.GoTo(i)
}

func (w *Wizard) GoTo(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i >= len(w.steps) {
		return ErrStepOutOfRange
	}
	w.current = i
	w.errors = nil
	return nil
}

// Submit re-validates every step. The first invalid step becomes current and
// its errors are kept; nothing is sent. On success the user is taken to the
// student's medication list.
func (w *Wizard) Submit(ctx context.Context) (View, error) {
	w.mu.Lock()
	if w.submitting {
		v := w.viewLocked()
		w.mu.Unlock()
		return v, ErrSubmitting
	}
	if w.studentID == "" {
		w.errors = map[string]string{"studentId": "Vui lòng chọn học sinh"}
		v := w.viewLocked()
		w.mu.Unlock()
		return v, ErrValidation
	}
	for i, step := range w.steps {
		if errs := w.validate.StructCtx(ctx, step); errs != nil {
			w.current = i
			w.errors = errs
			v := w.viewLocked()
			w.mu.Unlock()
			return v, ErrValidation
		}
	}

	req := model.MedicationRequest{
		StudentID:   w.studentID,
		Medications: append([]model.Medication(nil), w.steps...),
	}
	w.errors = nil
	w.message = ""
	w.submitting = true
	w.mu.Unlock()

	env := w.svc.CreateRequest(ctx, req)

	w.mu.Lock()
	w.submitting = false
	if !env.Success {
		w.message = env.Message
		if w.message == "" {
			w.message = "Không thể gửi yêu cầu thuốc"
		}
		v := w.viewLocked()
		w.mu.Unlock()
		return v, ErrSubmissionFailure
	}
	w.message = env.Message
	v := w.viewLocked()
	target := apiclient.Path("/parent/students/%s/medications", req.StudentID)
	w.mu.Unlock()

	w.nav.Navigate(target)
	return v, nil
}

func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

// Close stops the student search.
func (w *Wizard) Close() {
	w.students.Close()
}

func (w *Wizard) viewLocked() View {
	v := View{
		StudentID:  w.studentID,
		Steps:      append([]model.Medication(nil), w.steps...),
		Current:    w.current,
		Submitting: w.submitting,
		Message:    w.message,
	}
	v.CanAdd = w.validate.StructCtx(completenessOnly(context.Background()), w.steps[w.current]) == nil
	if len(w.errors) > 0 {
		v.Errors = make(map[string]string, len(w.errors))
		for k, e := range w.errors {
			v.Errors[k] = e
		}
	}
	return v
}

func (w *Wizard) setError(field, msg string) {
	if w.errors == nil {
		w.errors = make(map[string]string)
	}
	w.errors[field] = msg
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
