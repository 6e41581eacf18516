package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/certrenew/internal/metrics"
	"github.com/example/certrenew/internal/middleware"
	"github.com/example/certrenew/internal/models"
	"github.com/example/certrenew/internal/services"
)

const (
	notifyTimeout        = 15 * time.Second
	pendingRenewalExists = "A renewal request is already pending for this certificate"
)

// PaymentVerifier confirms a gateway payment token for an amount in minor units.
type PaymentVerifier interface {
	Verify(ctx context.Context, token string, amountMinorUnits int64) (*services.PaymentVerification, error)
}

// RenewalNotifier is told about every newly submitted renewal.
type RenewalNotifier interface {
	NotifyNewRenewal(ctx context.Context, n services.RenewalNotification) error
}

// RenewalHandler manages the user-facing renewal endpoints.
type RenewalHandler struct {
	db       *gorm.DB
	payments PaymentVerifier
	notifier RenewalNotifier
	metrics  *metrics.RenewalMetrics
	log      zerolog.Logger
	now      Clock
}

// NewRenewalHandler constructs RenewalHandler. notifier may be nil.
func NewRenewalHandler(db *gorm.DB, payments PaymentVerifier, notifier RenewalNotifier, m *metrics.RenewalMetrics, log zerolog.Logger, now Clock) *RenewalHandler {
	return &RenewalHandler{
		db:       db,
		payments: payments,
		notifier: notifier,
		metrics:  m,
		log:      log,
		now:      now.orDefault(),
	}
}

type createRenewalRequest struct {
	CertificateID string           `json:"certificateId" label:"Certificate ID" validate:"required"`
	Amount        *decimal.Decimal `json:"amount" label:"Amount" validate:"required"`
	KhaltiToken   string           `json:"khaltiToken" label:"Khalti payment token" validate:"required"`
	DocumentURL   stringList       `json:"documentUrl"`
}

// CreateRenewal verifies the payment and records a pending renewal request.
func (h *RenewalHandler) CreateRenewal(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}

	var req createRenewalRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	amount := *req.Amount
	if amount.IsZero() {
		return fiber.NewError(fiber.StatusBadRequest, "Amount is required")
	}
	if amount.LessThan(decimal.NewFromInt(1)) {
		return fiber.NewError(fiber.StatusBadRequest, "Amount must be at least 1")
	}

	certificateID, err := uuid.Parse(req.CertificateID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Certificate not found")
	}

	ctx := c.UserContext()
	db := h.db.WithContext(ctx)

	var certificate models.Certificate
	if err := db.First(&certificate, "id = ? AND user_id = ?", certificateID, identity.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Certificate not found")
		}
		return err
	}

	var pending int64
	if err := db.Model(&models.Renewal{}).
		Where("certificate_id = ? AND admin_status = ?", certificate.ID, models.AdminPending).
		Count(&pending).Error; err != nil {
		return err
	}
	if pending > 0 {
		return fiber.NewError(fiber.StatusBadRequest, pendingRenewalExists)
	}

	verification, err := h.payments.Verify(ctx, req.KhaltiToken, services.ToMinorUnits(amount))
	h.metrics.IncPaymentVerification(err == nil)
	if err != nil {
		var payErr *services.PaymentError
		if errors.As(err, &payErr) {
			h.log.Warn().Err(payErr.Unwrap()).Str("certificate_id", certificate.ID.String()).Msg("payment verification failed")
			return fiber.NewError(fiber.StatusBadRequest, payErr.Message)
		}
		return fiber.NewError(fiber.StatusBadRequest, "Payment verification failed")
	}

	// Shown to the caller only; approval recomputes it from the expiry at that time.
	prospective := services.RenewedUntil(certificate.ExpiryDate, h.now())

	documents := pq.StringArray(req.DocumentURL)
	if documents == nil {
		documents = pq.StringArray{}
	}

	renewal := models.Renewal{
		UserID:        identity.ID,
		CertificateID: certificate.ID,
		Amount:        amount,
		PaymentMethod: models.PaymentMethodKhalti,
		PaymentStatus: models.PaymentSuccess,
		AdminStatus:   models.AdminPending,
		ReceiptURL:    verification.TransactionID,
		DocumentURL:   documents,
	}
	if err := db.Create(&renewal).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent submission won; this payment needs a manual refund.
			h.log.Error().
				Str("certificate_id", certificate.ID.String()).
				Str("transaction_id", verification.TransactionID).
				Msg("paid renewal rejected: another renewal is already pending")
			return fiber.NewError(fiber.StatusBadRequest, pendingRenewalExists)
		}
		return err
	}
	h.metrics.IncSubmitted()
	h.notifyAdmins(identity.RegistrationNumber, &certificate, &renewal)

	return respond(c, fiber.StatusCreated, "Renewal request created successfully. Payment verified.", fiber.Map{
		"renewal": renewal,
		"paymentDetails": fiber.Map{
			"khaltiPaymentId": verification.TransactionID,
			"amount":          services.FromMinorUnits(verification.AmountMinorUnits),
		},
		"renewedUntil": prospective,
	})
}

func (h *RenewalHandler) notifyAdmins(registrationNumber string, certificate *models.Certificate, renewal *models.Renewal) {
	if h.notifier == nil {
		return
	}

	n := services.RenewalNotification{
		RenewalID:          renewal.ID.String(),
		RegistrationNumber: registrationNumber,
		CertificateNumber:  certificate.CertificateNumber,
		CertificateType:    certificate.CertificateType,
		Amount:             renewal.Amount,
		TransactionID:      renewal.ReceiptURL,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := h.notifier.NotifyNewRenewal(ctx, n); err != nil {
			h.log.Warn().Err(err).Str("renewal_id", n.RenewalID).Msg("admin notification failed")
		}
	}()
}

// ListRenewals returns the caller's renewals, newest first.
func (h *RenewalHandler) ListRenewals(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}

	var renewals []models.Renewal
	if err := h.db.WithContext(c.UserContext()).
		Preload("Certificate").
		Where("user_id = ?", identity.ID).
		Order("created_at desc").
		Find(&renewals).Error; err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Renewals fetched successfully", fiber.Map{
		"renewals": renewals,
	})
}

// GetRenewal returns one of the caller's renewals.
func (h *RenewalHandler) GetRenewal(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var renewal models.Renewal
	if err := h.db.WithContext(c.UserContext()).
		Preload("Certificate").
		First(&renewal, "id = ? AND user_id = ?", id, identity.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Renewal request not found")
		}
		return err
	}

	return respond(c, fiber.StatusOK, "Renewal fetched successfully", fiber.Map{
		"renewal": renewal,
	})
}
