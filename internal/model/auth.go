package model

// Role names as issued by the school health API.
type Role string

const (
	RoleParent  Role = "Parent"
	RoleStudent Role = "Student"
	RoleNurse   Role = "SchoolNurse"
	RoleManager Role = "Manager"
	RoleAdmin   Role = "Admin"
)

// IsStaff reports whether the role may use the nurse pages.
func (r Role) IsStaff() bool {
	return r == RoleNurse || r == RoleManager || r == RoleAdmin
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// LoginResult is the data payload of a successful login.
type LoginResult struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Role         Role   `json:"role,omitempty"`
	FullName     string `json:"fullName,omitempty"`
}
