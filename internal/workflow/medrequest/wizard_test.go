package medrequest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/schoolmed/internal/apiclient"
	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/internal/navigation"
)

type fakeService struct {
	reply    apiclient.Envelope
	requests []model.MedicationRequest
}

func (f *fakeService) CreateRequest(ctx context.Context, req model.MedicationRequest) apiclient.Envelope {
	f.requests = append(f.requests, req)
	return f.reply
}

type fakeSearcher struct {
	queries []model.ListQuery
}

func (f *fakeSearcher) Search(ctx context.Context, q model.ListQuery) apiclient.Envelope {
	f.queries = append(f.queries, q)
	data, _ := json.Marshal([]model.Student{{ID: "s1", FullName: "Nguyễn Văn " + q.SearchTerm}})
	return apiclient.Envelope{Success: true, Data: data, TotalCount: 1}
}

func validMedication() model.Medication {
	return model.Medication{
		Name:         "Paracetamol",
		Dosage:       1,
		Frequency:    2,
		ExpiryDate:   model.NewDateTime(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)),
		QuantitySent: 10,
		Instructions: "Uống sau ăn",
		TimesOfDay:   []model.Period{model.PeriodMorning, model.PeriodAfternoon},
	}
}

func newWizard(t *testing.T, svc *fakeService) (*Wizard, *navigation.Recorder, *fakeSearcher) {
	t.Helper()
	v, err := NewValidator()
	require.NoError(t, err)
	nav := &navigation.Recorder{}
	searcher := &fakeSearcher{}
	w := New(svc, searcher, v, nav, Options{SearchPageSize: 5})
	t.Cleanup(w.Close)
	return w, nav, searcher
}

func TestStartsWithOneEmptyStep(t *testing.T) {
	w, _, _ := newWizard(t, &fakeService{})

	v := w.View()
	assert.Len(t, v.Steps, 1)
	assert.Equal(t, 0, v.Current)
	assert.False(t, v.CanAdd)
}

func TestAddStepRequiresCompleteMedication(t *testing.T) {
	w, _, _ := newWizard(t, &fakeService{})

	err := w.AddStep(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
	v := w.View()
	assert.Equal(t, "Vui lòng nhập tên thuốc", v.Errors["name"])
	assert.Equal(t, "Vui lòng chọn hạn sử dụng", v.Errors["expiryDate"])
	assert.Len(t, v.Steps, 1)

	w.Update(func(m *model.Medication) { *m = validMedication() })
	require.True(t, w.View().CanAdd)
	require.NoError(t, w.AddStep(context.Background()))

	v = w.View()
	assert.Len(t, v.Steps, 2)
	assert.Equal(t, 1, v.Current)
	assert.Empty(t, v.Errors)
}

func TestTimesOfDayCappedByFrequency(t *testing.T) {
	w, _, _ := newWizard(t, &fakeService{})

	assert.ErrorIs(t, w.ToggleTimeOfDay(model.PeriodMorning), ErrTooManyTimes)
	assert.Contains(t, w.View().Errors["timesOfDay"], "số lần dùng")

	w.Update(func(m *model.Medication) { m.Frequency = 1 })
	require.NoError(t, w.ToggleTimeOfDay(model.PeriodMorning))
	assert.ErrorIs(t, w.ToggleTimeOfDay(model.PeriodEvening), ErrTooManyTimes)
	assert.Equal(t, "Chỉ được chọn tối đa 1 thời điểm uống thuốc mỗi ngày", w.View().Errors["timesOfDay"])

	require.NoError(t, w.ToggleTimeOfDay(model.PeriodMorning))
	require.NoError(t, w.ToggleTimeOfDay(model.PeriodEvening))
	v := w.View()
	assert.Equal(t, []model.Period{model.PeriodEvening}, v.Steps[0].TimesOfDay)
	assert.Empty(t, v.Errors)
}

func TestSubmitRequiresStudent(t *testing.T) {
	svc := &fakeService{}
	w, _, _ := newWizard(t, svc)
	w.Update(func(m *model.Medication) { *m = validMedication() })

	v, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Vui lòng chọn học sinh", v.Errors["studentId"])
	assert.Empty(t, svc.requests)
}

func TestSubmitRejectsQuantityBelowDailyDose(t *testing.T) {
	svc := &fakeService{reply: apiclient.Envelope{Success: true}}
	w, nav, _ := newWizard(t, svc)

	bad := validMedication()
	bad.QuantitySent = 1
	bad.TimesOfDay = []model.Period{model.PeriodMorning}
	w.Restore("s1", []model.Medication{validMedication(), bad}, 0)

	v, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, v.Current)
	assert.Contains(t, v.Errors["quantitySent"], "liều × số lần = 2")
	assert.Empty(t, svc.requests)
	assert.Empty(t, nav.Paths())
}

func TestSubmitRejectsTooManyTimes(t *testing.T) {
	svc := &fakeService{}
	w, _, _ := newWizard(t, svc)

	m := validMedication()
	m.Frequency = 1
	m.QuantitySent = 5
	w.Restore("s1", []model.Medication{m}, 0)

	v, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Chỉ được chọn tối đa 1 thời điểm uống thuốc mỗi ngày", v.Errors["timesOfDay"])
	assert.Empty(t, svc.requests)
}

func TestSubmitSuccessNavigates(t *testing.T) {
	svc := &fakeService{reply: apiclient.Envelope{Success: true, Message: "Đã gửi yêu cầu"}}
	w, nav, _ := newWizard(t, svc)

	w.SelectStudent(" s1 ")
	w.Update(func(m *model.Medication) { *m = validMedication() })
	require.NoError(t, w.AddStep(context.Background()))
	w.Update(func(m *model.Medication) {
		*m = validMedication()
		m.Name = "Vitamin C"
	})

	v, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Đã gửi yêu cầu", v.Message)

	require.Len(t, svc.requests, 1)
	assert.Equal(t, "s1", svc.requests[0].StudentID)
	require.Len(t, svc.requests[0].Medications, 2)
	assert.Equal(t, "Vitamin C", svc.requests[0].Medications[1].Name)

	assert.Equal(t, []string{"/parent/students/s1/medications"}, nav.Paths())
}

func TestSubmitFailureShowsMessage(t *testing.T) {
	svc := &fakeService{reply: apiclient.Envelope{Message: "Học sinh không thuộc phụ huynh này"}}
	w, nav, _ := newWizard(t, svc)
	w.Restore("s1", []model.Medication{validMedication()}, 0)

	v, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionFailure)
	assert.Equal(t, "Học sinh không thuộc phụ huynh này", v.Message)
	assert.False(t, v.Submitting)
	assert.Empty(t, nav.Paths())

	svc.reply = apiclient.Envelope{}
	v, _ = w.Submit(context.Background())
	assert.Equal(t, "Không thể gửi yêu cầu thuốc", v.Message)
}

func TestRemoveStep(t *testing.T) {
	w, _, _ := newWizard(t, &fakeService{})
	a, b := validMedication(), validMedication()
	b.Name = "B"
	w.Restore("s1", []model.Medication{a, b}, 1)

	assert.ErrorIs(t, w.RemoveStep(5), ErrStepOutOfRange)
	require.NoError(t, w.RemoveStep(0))
	v := w.View()
	require.Len(t, v.Steps, 1)
	assert.Equal(t, "B", v.Steps[0].Name)
	assert.Equal(t, 0, v.Current)

	require.NoError(t, w.RemoveStep(0))
	v = w.View()
	require.Len(t, v.Steps, 1)
	assert.Equal(t, model.Medication{}, v.Steps[0])
}

func TestNavigationBetweenSteps(t *testing.T) {
	w, _, _ := newWizard(t, &fakeService{})
	w.Restore("s1", []model.Medication{validMedication(), validMedication()}, 0)

	assert.ErrorIs(t, w.Prev(), ErrStepOutOfRange)
	require.NoError(t, w.Next())
	assert.Equal(t, 1, w.View().Current)
	assert.ErrorIs(t, w.Next(), ErrStepOutOfRange)
	require.NoError(t, w.GoTo(0))
	assert.Equal(t, 0, w.View().Current)
}

func TestFindStudents(t *testing.T) {
	w, _, searcher := newWizard(t, &fakeService{})

	st := w.FindStudents(context.Background(), " An ")
	require.Len(t, st.Data, 1)
	assert.Equal(t, "Nguyễn Văn An", st.Data[0].FullName)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, "An", searcher.queries[0].SearchTerm)
	assert.Equal(t, 5, searcher.queries[0].PageSize)
	assert.Equal(t, 1, searcher.queries[0].PageIndex)
}
