package models

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account identified by its registration number.
type User struct {
	BaseModel
	RegistrationNumber string  `gorm:"uniqueIndex;not null" json:"registrationNumber"`
	PhoneNumber        string  `gorm:"size:10;not null" json:"phoneNumber"`
	Email              *string `gorm:"uniqueIndex" json:"email,omitempty"`
	PasswordHash       string  `gorm:"not null" json:"-"`
	Role               Role    `gorm:"type:varchar(16);not null;default:user" json:"role"`
}
