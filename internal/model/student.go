package model

type Student struct {
	ID               string   `json:"id"`
	FullName         string   `json:"fullName"`
	StudentCode      string   `json:"studentCode"`
	CurrentClassName string   `json:"currentClassName,omitempty"`
	DateOfBirth      DateTime `json:"dateOfBirth"`
	Gender           string   `json:"gender,omitempty"`
	Weight           float64  `json:"weight,omitempty"`
	Height           float64  `json:"height,omitempty"`
	BloodType        string   `json:"bloodType,omitempty"`
}

// DisplayName is the label shown in the student type-ahead.
func (s Student) DisplayName() string {
	if s.StudentCode == "" {
		return s.FullName
	}
	return s.FullName + " (" + s.StudentCode + ")"
}
