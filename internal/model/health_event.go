package model

type HealthEvent struct {
	ID                 string              `json:"id"`
	Code               string              `json:"code"`
	StudentID          string              `json:"studentId"`
	StudentName        string              `json:"studentName,omitempty"`
	EventType          string              `json:"eventType"`
	OccurredAt         DateTime            `json:"occurredAt"`
	Location           string              `json:"location"`
	Description        string              `json:"description"`
	IsEmergency        bool                `json:"isEmergency"`
	MedicalItemDetails []MedicalItemDetail `json:"medicalItemDetails,omitempty"`
	Outcome            string              `json:"outcome,omitempty"`
	ParentNotice       string              `json:"parentNotice,omitempty"`
	RecordedByName     string              `json:"recordedByName,omitempty"`
}

// MedicalItemDetail is a medication or supply used while handling an event.
type MedicalItemDetail struct {
	MedicalItemID   string  `json:"medicalItemId"`
	MedicalItemName string  `json:"medicalItemName,omitempty"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit,omitempty"`
}

type HealthEventRequest struct {
	StudentID          string              `json:"studentId" binding:"required"`
	EventType          string              `json:"eventType" binding:"required"`
	OccurredAt         DateTime            `json:"occurredAt"`
	Location           string              `json:"location" binding:"required"`
	Description        string              `json:"description" binding:"required"`
	IsEmergency        bool                `json:"isEmergency"`
	MedicalItemDetails []MedicalItemDetail `json:"medicalItemDetails,omitempty" binding:"dive"`
	Outcome            string              `json:"outcome,omitempty"`
	ParentNotice       string              `json:"parentNotice,omitempty"`
}
