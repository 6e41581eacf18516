package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CertificateStatus mirrors whether the expiry date is still in the future.
type CertificateStatus string

const (
	CertificateActive   CertificateStatus = "active"
	CertificateInactive CertificateStatus = "inactive"
)

// Certificate is a credential issued to exactly one user.
type Certificate struct {
	BaseModel
	UserID            uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_certificate_user_type" json:"userId"`
	User              *User             `gorm:"constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	CertificateNumber string            `gorm:"uniqueIndex;not null" json:"certificateNumber"`
	CertificateType   string            `gorm:"not null;uniqueIndex:idx_certificate_user_type" json:"certificateType"`
	HolderName        string            `gorm:"not null" json:"holderName"`
	IssueDate         time.Time         `gorm:"not null" json:"issueDate"`
	ExpiryDate        time.Time         `gorm:"not null" json:"expiryDate"`
	LastRenewalDate   *time.Time        `json:"lastRenewalDate,omitempty"`
	Status            CertificateStatus `gorm:"type:varchar(16);not null;default:active" json:"status"`
	DocumentURL       *string           `json:"documentUrl,omitempty"`
}

// StatusAt derives the status the certificate should have at the given instant.
func (c *Certificate) StatusAt(now time.Time) CertificateStatus {
	return StatusForExpiry(c.ExpiryDate, now)
}

// StatusForExpiry is active iff expiry lies strictly after now.
func StatusForExpiry(expiry, now time.Time) CertificateStatus {
	if expiry.After(now) {
		return CertificateActive
	}
	return CertificateInactive
}

// CertificateNumberFor derives a certificate number from the owner's
// registration number and the certificate type, e.g. "REG-42/TRADE-LICENSE".
func CertificateNumberFor(registrationNumber, certificateType string) string {
	kind := strings.ToUpper(strings.Join(strings.Fields(certificateType), "-"))
	return fmt.Sprintf("%s/%s", registrationNumber, kind)
}
