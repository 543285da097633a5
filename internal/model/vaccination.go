package model

type VaccinationStatus string

const (
	VaccinationWaitingForParentConsent VaccinationStatus = "WaitingForParentConsent"
	VaccinationScheduled               VaccinationStatus = "Scheduled"
	VaccinationCompleted               VaccinationStatus = "Completed"
)

func (s VaccinationStatus) Label() string {
	switch s {
	case VaccinationWaitingForParentConsent:
		return "Chờ phụ huynh xác nhận"
	case VaccinationScheduled:
		return "Đã lên lịch"
	case VaccinationCompleted:
		return "Đã hoàn thành"
	default:
		return string(s)
	}
}

// ConsentStatus is a parent's decision for one student and session.
type ConsentStatus string

const (
	ConsentPending   ConsentStatus = "Pending"
	ConsentConfirmed ConsentStatus = "Confirmed"
	ConsentDeclined  ConsentStatus = "Declined"
)

type VaccinationSession struct {
	ID              string              `json:"id"`
	SessionName     string              `json:"sessionName"`
	VaccineTypeID   string              `json:"vaccineTypeId,omitempty"`
	VaccineTypeName string              `json:"vaccineTypeName"`
	StartTime       DateTime            `json:"startTime"`
	EndTime         DateTime            `json:"endTime"`
	Location        string              `json:"location"`
	Status          VaccinationStatus   `json:"status"`
	Notes           string              `json:"notes,omitempty"`
	Consent         *VaccinationConsent `json:"consent,omitempty"`
	Result          *VaccinationResult  `json:"result,omitempty"`
}

// Title prefers the session name and falls back to the vaccine.
func (s VaccinationSession) Title() string {
	if s.SessionName != "" {
		return s.SessionName
	}
	return s.VaccineTypeName
}

type VaccinationConsent struct {
	StudentID   string        `json:"studentId"`
	StudentName string        `json:"studentName,omitempty"`
	Status      ConsentStatus `json:"status"`
	Note        string        `json:"note,omitempty"`
	RespondedAt DateTime      `json:"respondedAt"`
}

type VaccinationResult struct {
	StudentID    string   `json:"studentId"`
	Status       string   `json:"status"`
	VaccinatedAt DateTime `json:"vaccinatedAt"`
	Reaction     string   `json:"reaction,omitempty"`
	Note         string   `json:"note,omitempty"`
}

// SessionStudent is a row of a session's student list: consent and result side by side.
type SessionStudent struct {
	StudentID   string              `json:"studentId"`
	StudentName string              `json:"studentName"`
	StudentCode string              `json:"studentCode,omitempty"`
	ClassName   string              `json:"className,omitempty"`
	Consent     *VaccinationConsent `json:"consent,omitempty"`
	Result      *VaccinationResult  `json:"result,omitempty"`
}

type ConsentRequest struct {
	StudentID string        `json:"studentId" binding:"required"`
	Status    ConsentStatus `json:"status" binding:"required,oneof=Confirmed Declined"`
	Note      string        `json:"note,omitempty"`
}

type VaccinationSessionRequest struct {
	SessionName   string   `json:"sessionName" binding:"required"`
	VaccineTypeID string   `json:"vaccineTypeId" binding:"required"`
	StartTime     DateTime `json:"startTime"`
	EndTime       DateTime `json:"endTime"`
	Location      string   `json:"location" binding:"required"`
	Notes         string   `json:"notes,omitempty"`
	ClassIDs      []string `json:"classIds,omitempty"`
}

type VaccinationResultRequest struct {
	Status       string   `json:"status" binding:"required"`
	VaccinatedAt DateTime `json:"vaccinatedAt"`
	Reaction     string   `json:"reaction,omitempty"`
	Note         string   `json:"note,omitempty"`
}
