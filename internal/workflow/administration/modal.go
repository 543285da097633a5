// Package administration implements the dialog a nurse uses to record one
// administration of a student's medication.
package administration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
)

var (
	ErrNotOpen           = errors.New("administration dialog is not open")
	ErrSubmitting        = errors.New("a submission is already in progress")
	ErrPeriodDisabled    = errors.New("period already recorded today")
	ErrUnknownPeriod     = errors.New("period is not offered for this medication")
	ErrStatusNotAllowed  = errors.New("status not allowed for this period")
	ErrValidation        = errors.New("administration form is invalid")
	ErrSubmissionFailure = errors.New("administration was not recorded")
)

const (
	DefaultCloseDelay = 1500 * time.Millisecond

	msgSuccess = "Đã ghi nhận việc cho uống thuốc"
	msgFailure = "Không thể ghi nhận việc cho uống thuốc"
)

// Service is the part of the medication API the dialog calls.
type Service interface {
	UsageHistory(ctx context.Context, id string, q model.ListQuery) apiclient.Envelope
	RecordAdministration(ctx context.Context, id string, req model.AdministrationRequest) apiclient.Envelope
}

type AlertKind string

const (
	AlertSuccess AlertKind = "success"
	AlertError   AlertKind = "error"
)

type Alert struct {
	Kind    AlertKind `json:"kind"`
	Message string    `json:"message"`
}

type Config struct {
	Periods    model.PeriodRanges
	CloseDelay time.Duration
	Location   *time.Location
	Now        func() time.Time
}

// Tab is one outer tab of the dialog.
type Tab struct {
	Period   model.Period                 `json:"period"`
	Label    string                       `json:"label"`
	Disabled bool                         `json:"disabled"`
	Hours    string                       `json:"hours,omitempty"`
	Statuses []model.AdministrationStatus `json:"statuses"`
}

// Form is the field set kept per (period, status).
type Form struct {
	DosageUsed       string    `json:"dosageUsed"`
	Note             string    `json:"note"`
	AdministeredTime time.Time `json:"administeredTime"`
}

type formKey struct {
	period model.Period
	status model.AdministrationStatus
}

// Options are supplied by the page opening the dialog.
type Options struct {
	Medication  model.MedicationUsage
	DefaultTime time.Time
	// OnRefresh runs after a successful submission once the dialog closed.
	OnRefresh func()
	// OnAlert receives every alert shown by the dialog.
	OnAlert func(Alert)
}

// View is a render snapshot.
type View struct {
	Open         bool                         `json:"open"`
	MedicationID string                       `json:"medicationId"`
	Medication   string                       `json:"medication"`
	Tabs         []Tab                        `json:"tabs"`
	Period       model.Period                 `json:"period"`
	Status       model.AdministrationStatus   `json:"status"`
	Form         Form                         `json:"form"`
	Errors       map[string]string            `json:"errors,omitempty"`
	Submitting   bool                         `json:"submitting"`
	Alert        *Alert                       `json:"alert,omitempty"`
	History      []model.AdministrationRecord `json:"history,omitempty"`
	LoadError    string                       `json:"loadError,omitempty"`
	// Unknown lists timesOfDay values that got no tab.
	Unknown      []model.Period               `json:"unknownPeriods,omitempty"`
}

type Modal struct {
	svc Service
	cfg Config

	mu         sync.Mutex
	open       bool
	opts       Options
	tabs       []Tab
	period     model.Period
	status     model.AdministrationStatus
	forms      map[formKey]*Form
	lastStatus map[model.Period]model.AdministrationStatus
	errors     map[string]string
	submitting bool
	alert      *Alert
	history    []model.AdministrationRecord
	loadError  string
	unknown    []model.Period
	closeTimer *time.Timer
}

func New(svc Service, cfg Config) *Modal {
	if cfg.Periods == nil {
		cfg.Periods = model.DefaultPeriodRanges()
	}
	if cfg.Location == nil {
		cfg.Location = model.Location()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Modal{svc: svc, cfg: cfg}
}

// Open loads today's history for the medication, builds the tabs and
// selects the first enabled period.
func (m *Modal) Open(ctx context.Context, opts Options) View {
	if opts.DefaultTime.IsZero() {
		opts.DefaultTime = m.cfg.Now()
	}
	day := opts.DefaultTime.In(m.cfg.Location)

	var history []model.AdministrationRecord
	var loadErr string
	env := m.svc.UsageHistory(ctx, opts.Medication.ID, model.ListQuery{
		PageIndex: 1,
		PageSize:  100,
		FromDate:  day,
		ToDate:    day,
	})
	if env.Success {
		if err := env.Decode(&history); err != nil {
			loadErr = apiclient.MsgInvalidResponse
		}
	} else {
		loadErr = env.Message
	}
	history = sameDay(history, day, m.cfg.Location)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopCloseTimer()
	m.open = true
	m.opts = opts
	m.history = history
	m.loadError = loadErr
	m.tabs, m.unknown = m.buildTabs(opts.Medication.TimesOfDay, history)
	if len(m.unknown) > 0 {
		log.Warn().
			Str("medication_id", opts.Medication.ID).
			Interface("periods", m.unknown).
			Msg("medication has times of day without a tab")
	}
	m.forms = make(map[formKey]*Form)
	m.lastStatus = make(map[model.Period]model.AdministrationStatus)
	m.errors = nil
	m.alert = nil
	m.submitting = false

	m.period = model.PeriodEmergency
	for _, t := range m.tabs {
		if !t.Disabled {
			m.period = t.Period
			break
		}
	}
	m.status = model.AdministrationUsed
	return m.viewLocked()
}

func (m *Modal) buildTabs(times []model.Period, history []model.AdministrationRecord) ([]Tab, []model.Period) {
	recorded := make(map[model.Period]bool)
	for _, rec := range history {
		if rec.AdministeredPeriod.IsEmergency() || !rec.Status.Valid() {
			continue
		}
		recorded[rec.AdministeredPeriod] = true
	}

	seen := make(map[model.Period]bool)
	tabs := make([]Tab, 0, len(times)+1)
	var unknown []model.Period
	for _, p := range times {
		if p.IsEmergency() || seen[p] {
			continue
		}
		seen[p] = true
		if !p.Valid() {
			unknown = append(unknown, p)
			continue
		}
		tab := Tab{
			Period:   p,
			Label:    string(p),
			Disabled: recorded[p],
			Statuses: model.AdministrationStatuses,
		}
		if r, ok := m.cfg.Periods.Lookup(p); ok {
			tab.Hours = r.String()
		}
		tabs = append(tabs, tab)
	}
	return append(tabs, Tab{
		Period:   model.PeriodEmergency,
		Label:    "Khẩn cấp / Bù liều",
		Statuses: []model.AdministrationStatus{model.AdministrationUsed},
	}), unknown
}

func sameDay(records []model.AdministrationRecord, day time.Time, loc *time.Location) []model.AdministrationRecord {
	y, mo, d := day.Date()
	out := records[:0:0]
	for _, r := range records {
		ref := r.UsageDate.Time
		if ref.IsZero() {
			ref = r.AdministeredTime.Time
		}
		if !ref.IsZero() {
			ry, rm, rd := ref.In(loc).Date()
			if ry != y || rm != mo || rd != d {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// SelectPeriod switches the outer tab. Errors are cleared, typed values are kept.
func (m *Modal) SelectPeriod(p model.Period) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	tab, ok := m.tab(p)
	if !ok {
		return ErrUnknownPeriod
	}
	if tab.Disabled {
		return ErrPeriodDisabled
	}
	m.lastStatus[m.period] = m.status
	m.period = p
	if s, ok := m.lastStatus[p]; ok && allows(tab, s) {
		m.status = s
	} else if !allows(tab, m.status) {
		m.status = tab.Statuses[0]
	}
	m.errors = nil
	return nil
}

// SelectStatus switches the inner tab.
func (m *Modal) SelectStatus(s model.AdministrationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	tab, _ := m.tab(m.period)
	if !allows(tab, s) {
		return ErrStatusNotAllowed
	}
	m.status = s
	m.errors = nil
	return nil
}

// SetForm replaces the values of the current (period, status) form.
func (m *Modal) SetForm(f Form) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ErrNotOpen
	}
	*m.form() = f
	return nil
}

func (m *Modal) Form() Form {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return Form{}
	}
	return *m.form()
}

// Validate checks the current form without submitting.
func (m *Modal) Validate() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	return m.validateLocked()
}

func (m *Modal) validateLocked() map[string]string {
	f := m.form()
	errs := make(map[string]string)

	switch {
	case f.AdministeredTime.IsZero():
		errs["administeredTime"] = "Vui lòng chọn thời gian cho uống thuốc"
	default:
		local := f.AdministeredTime.In(m.cfg.Location)
		if r, ok := m.cfg.Periods.Lookup(m.period); ok && !r.Contains(local.Hour()) {
			errs["administeredTime"] = fmt.Sprintf("Thời gian cho %s phải trong khoảng %s", m.period.Label(), r)
		} else if f.AdministeredTime.After(m.cfg.Now()) {
			errs["administeredTime"] = "Thời gian cho uống thuốc không được sau thời điểm hiện tại"
		}
	}

	switch m.status {
	case model.AdministrationUsed:
		if strings.TrimSpace(f.DosageUsed) == "" {
			errs["dosageUsed"] = "Vui lòng nhập liều lượng đã dùng"
		}
	case model.AdministrationMissed, model.AdministrationSkipped:
		if strings.TrimSpace(f.Note) == "" {
			errs["note"] = "Vui lòng nhập lý do"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit validates and records the current form. On failure the dialog stays
// open with an error alert. On success it shows a success alert, then closes
// after the configured delay and runs OnRefresh.
func (m *Modal) Submit(ctx context.Context) (View, error) {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return View{}, ErrNotOpen
	}
	if m.submitting {
		v := m.viewLocked()
		m.mu.Unlock()
		return v, ErrSubmitting
	}
	if errs := m.validateLocked(); errs != nil {
		m.errors = errs
		v := m.viewLocked()
		m.mu.Unlock()
		return v, ErrValidation
	}

	f := *m.form()
	req := model.AdministrationRequest{
		Status:           m.status,
		DosageUsed:       strings.TrimSpace(f.DosageUsed),
		Note:             strings.TrimSpace(f.Note),
		IsMakeupDose:     m.period.IsEmergency(),
		AdministeredTime: model.NewDateTime(f.AdministeredTime.In(m.cfg.Location)),
	}
	id := m.opts.Medication.ID
	m.errors = nil
	m.submitting = true
	m.mu.Unlock()

	env := m.svc.RecordAdministration(ctx, id, req)

	m.mu.Lock()
	m.submitting = false
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = msgFailure
		}
		alert := Alert{Kind: AlertError, Message: msg}
		m.alert = &alert
		v := m.viewLocked()
		onAlert := m.opts.OnAlert
		m.mu.Unlock()
		if onAlert != nil {
			onAlert(alert)
		}
		return v, ErrSubmissionFailure
	}

	msg := env.Message
	if msg == "" {
		msg = msgSuccess
	}
	alert := Alert{Kind: AlertSuccess, Message: msg}
	m.alert = &alert
	v := m.viewLocked()
	onAlert := m.opts.OnAlert
	delay := m.cfg.CloseDelay
	m.mu.Unlock()

	if onAlert != nil {
		onAlert(alert)
	}
	m.scheduleClose(delay)
	return v, nil
}

func (m *Modal) scheduleClose(delay time.Duration) {
	if delay <= 0 {
		m.finish()
		return
	}
	m.mu.Lock()
	m.stopCloseTimer()
	m.closeTimer = time.AfterFunc(delay, m.finish)
	m.mu.Unlock()
}

func (m *Modal) finish() {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return
	}
	m.open = false
	m.closeTimer = nil
	refresh := m.opts.OnRefresh
	m.mu.Unlock()

	if refresh != nil {
		refresh()
	}
}

// Close dismisses the dialog without refreshing the page.
func (m *Modal) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCloseTimer()
	m.open = false
}

func (m *Modal) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *Modal) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Modal) viewLocked() View {
	v := View{
		Open:         m.open,
		MedicationID: m.opts.Medication.ID,
		Medication:   m.opts.Medication.MedicationName,
		Tabs:         append([]Tab(nil), m.tabs...),
		Period:       m.period,
		Status:       m.status,
		Submitting:   m.submitting,
		History:      m.history,
		LoadError:    m.loadError,
	}
	if len(m.unknown) > 0 {
		v.Unknown = append([]model.Period(nil), m.unknown...)
	}
	if m.open {
		v.Form = *m.form()
	}
	if len(m.errors) > 0 {
		v.Errors = make(map[string]string, len(m.errors))
		for k, e := range m.errors {
			v.Errors[k] = e
		}
	}
	if m.alert != nil {
		a := *m.alert
		v.Alert = &a
	}
	return v
}

// form returns the form of the current tabs, seeding it on first use.
func (m *Modal) form() *Form {
	k := formKey{period: m.period, status: m.status}
	f, ok := m.forms[k]
	if !ok {
		f = &Form{AdministeredTime: m.opts.DefaultTime}
		m.forms[k] = f
	}
	return f
}

func (m *Modal) tab(p model.Period) (Tab, bool) {
	for _, t := range m.tabs {
		if t.Period == p {
			return t, true
		}
	}
	return Tab{}, false
}

func (m *Modal) stopCloseTimer() {
	if m.closeTimer != nil {
		m.closeTimer.Stop()
		m.closeTimer = nil
	}
}

func allows(t Tab, s model.AdministrationStatus) bool {
	for _, v := range t.Statuses {
		if v == s {
			return true
		}
	}
	return false
}
