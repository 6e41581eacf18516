package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are numbers on the wire, e.g. "amount": 500.
	decimal.MarshalJSONWithoutQuotes = true
}

// PaymentStatus is the outcome of the gateway payment backing a renewal.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// AdminStatus is the admin decision on a renewal. It moves from pending to
// approved or rejected exactly once.
type AdminStatus string

const (
	AdminPending  AdminStatus = "pending"
	AdminApproved AdminStatus = "approved"
	AdminRejected AdminStatus = "rejected"
)

// Valid reports whether s is one of the known admin statuses.
func (s AdminStatus) Valid() bool {
	switch s {
	case AdminPending, AdminApproved, AdminRejected:
		return true
	}
	return false
}

// PaymentMethodKhalti is the only supported payment method.
const PaymentMethodKhalti = "khalti"

// Renewal is a paid request to extend a certificate, decided once by an admin.
// A certificate has at most one pending renewal, enforced by a partial unique index.
type Renewal struct {
	BaseModel
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"userId"`
	User          *User           `json:"user,omitempty"`
	CertificateID uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_renewal_pending_certificate,where:admin_status = 'pending'" json:"certificateId"`
	Certificate   *Certificate    `json:"certificate,omitempty"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"type:varchar(16);not null;default:khalti" json:"paymentMethod"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(16);not null;default:success" json:"paymentStatus"`
	AdminStatus   AdminStatus     `gorm:"type:varchar(16);not null;default:pending;index" json:"adminStatus"`
	CancelReason  *string         `json:"cancelReason,omitempty"`
	RenewedUntil  *time.Time      `json:"renewedUntil,omitempty"`
	ReceiptURL    string          `json:"receiptUrl,omitempty"`
	DocumentURL   pq.StringArray  `gorm:"type:text[]" json:"documentUrl"`
}
