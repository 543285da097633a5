package model

import "strconv"

// MedicationStatus is the backend-owned lifecycle state of a student medication.
type MedicationStatus string

const (
	MedicationPendingApproval MedicationStatus = "PendingApproval"
	MedicationApproved        MedicationStatus = "Approved"
	MedicationActive          MedicationStatus = "Active"
	MedicationCompleted       MedicationStatus = "Completed"
	MedicationRejected        MedicationStatus = "Rejected"
	MedicationDiscontinued    MedicationStatus = "Discontinued"
)

// MedicationStatuses is the order of the status tabs on medication list pages.
var MedicationStatuses = []MedicationStatus{
	MedicationPendingApproval,
	MedicationApproved,
	MedicationActive,
	MedicationCompleted,
	MedicationRejected,
	MedicationDiscontinued,
}

func (s MedicationStatus) Valid() bool {
	for _, v := range MedicationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label is the Vietnamese display text of the status.
func (s MedicationStatus) Label() string {
	switch s {
	case MedicationPendingApproval:
		return "Chờ duyệt"
	case MedicationApproved:
		return "Đã duyệt"
	case MedicationActive:
		return "Đang sử dụng"
	case MedicationCompleted:
		return "Hoàn thành"
	case MedicationRejected:
		return "Từ chối"
	case MedicationDiscontinued:
		return "Ngừng sử dụng"
	default:
		return string(s)
	}
}

// Medication is one entry of a medication request submitted by a parent.
type Medication struct {
	Name         string   `json:"name" validate:"required"`
	Dosage       float64  `json:"dosage" validate:"gt=0"`
	Frequency    int      `json:"frequency" validate:"gt=0"`
	ExpiryDate   DateTime `json:"expiryDate" validate:"required"`
	QuantitySent int      `json:"quantitySent" validate:"gt=0"`
	Instructions string   `json:"instructions" validate:"required"`
	SpecialNotes string   `json:"specialNotes,omitempty"`
	TimesOfDay   []Period `json:"timesOfDay" validate:"min=1,dive,period"`
}

// DailyDose is dosage times frequency, the least quantity a request must cover.
func (m Medication) DailyDose() float64 {
	return m.Dosage * float64(m.Frequency)
}

func (m Medication) HasTime(p Period) bool {
	for _, t := range m.TimesOfDay {
		if t == p {
			return true
		}
	}
	return false
}

// MedicationRequest is the body of a parent's multi-medication request.
type MedicationRequest struct {
	StudentID   string       `json:"studentId"`
	Medications []Medication `json:"medications"`
}

// MedicationUsage is a student medication as listed for tracking.
type MedicationUsage struct {
	ID                   string           `json:"id"`
	StudentID            string           `json:"studentId"`
	StudentName          string           `json:"studentName,omitempty"`
	StudentCode          string           `json:"studentCode,omitempty"`
	MedicationName       string           `json:"medicationName"`
	Status               MedicationStatus `json:"status"`
	Dosage               string           `json:"dosage"`
	Frequency            int              `json:"frequency"`
	TimesOfDay           []Period         `json:"timesOfDay"`
	Instructions         string           `json:"instructions,omitempty"`
	SpecialNotes         string           `json:"specialNotes,omitempty"`
	ExpiryDate           DateTime         `json:"expiryDate"`
	QuantitySent         int              `json:"quantitySent"`
	QuantityRemaining    int              `json:"quantityRemaining"`
	TotalAdministrations int              `json:"totalAdministrations"`
	TotalSchedules       int              `json:"totalSchedules"`
	IsExpiringSoon       bool             `json:"isExpiringSoon"`
	IsLowStock           bool             `json:"isLowStock"`
	RejectionReason      string           `json:"rejectionReason,omitempty"`
	DiscontinueReason    string           `json:"discontinueReason,omitempty"`
	CreatedAt            DateTime         `json:"createdAt"`
}

// Progress renders the schedule counters, e.g. "3/10".
func (u MedicationUsage) Progress() string {
	return strconv.Itoa(u.TotalAdministrations) + "/" + strconv.Itoa(u.TotalSchedules)
}

// NeedsAttention reports whether the medication should raise a nurse alert.
func (u MedicationUsage) NeedsAttention() bool {
	return u.Status == MedicationActive && (u.IsExpiringSoon || u.IsLowStock)
}

// ReasonRequest is the body of discontinue and reject calls.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}
