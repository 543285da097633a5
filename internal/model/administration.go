package model

// AdministrationStatus is the outcome recorded for one scheduled dose.
type AdministrationStatus string

const (
	AdministrationUsed    AdministrationStatus = "Used"
	AdministrationSkipped AdministrationStatus = "Skipped"
	AdministrationMissed  AdministrationStatus = "Missed"
)

// AdministrationStatuses is the order of the outcome tabs.
var AdministrationStatuses = []AdministrationStatus{
	AdministrationUsed,
	AdministrationMissed,
	AdministrationSkipped,
}

func (s AdministrationStatus) Valid() bool {
	return s == AdministrationUsed || s == AdministrationSkipped || s == AdministrationMissed
}

func (s AdministrationStatus) Label() string {
	switch s {
	case AdministrationUsed:
		return "Đã uống"
	case AdministrationSkipped:
		return "Bỏ qua"
	case AdministrationMissed:
		return "Bỏ lỡ"
	default:
		return string(s)
	}
}

// AdministrationRecord is one entry of a medication's usage history.
type AdministrationRecord struct {
	ID                 string               `json:"id"`
	UsageDate          DateTime             `json:"usageDate"`
	AdministeredPeriod Period               `json:"administeredPeriod"`
	AdministeredTime   DateTime             `json:"administeredTime"`
	Status             AdministrationStatus `json:"status"`
	DosageUsed         string               `json:"dosageUsed,omitempty"`
	DosageUse          string               `json:"dosageUse,omitempty"`
	Note               string               `json:"note,omitempty"`
	Reason             string               `json:"reason,omitempty"`
	IsMakeupDose       bool                 `json:"isMakeupDose,omitempty"`
	AdministeredByName string               `json:"administeredByName,omitempty"`
}

// Dosage returns whichever dosage field the API filled.
func (r AdministrationRecord) Dosage() string {
	if r.DosageUsed != "" {
		return r.DosageUsed
	}
	return r.DosageUse
}

// Remark returns the note, falling back to the reason.
func (r AdministrationRecord) Remark() string {
	if r.Note != "" {
		return r.Note
	}
	return r.Reason
}

// AdministrationRequest is the body sent to record an administration.
type AdministrationRequest struct {
	Status           AdministrationStatus `json:"status"`
	DosageUsed       string               `json:"dosageUsed"`
	Note             string               `json:"note"`
	IsMakeupDose     bool                 `json:"isMakeupDose"`
	AdministeredTime DateTime             `json:"administeredTime"`
}
