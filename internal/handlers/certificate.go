package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/certrenew/internal/middleware"
	"github.com/example/certrenew/internal/models"
)

// CertificateHandler manages certificate endpoints.
type CertificateHandler struct {
	db  *gorm.DB
	now Clock
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(db *gorm.DB, now Clock) *CertificateHandler {
	return &CertificateHandler{db: db, now: now.orDefault()}
}

// ListCertificates returns the caller's certificates, marking lapsed ones inactive.
func (h *CertificateHandler) ListCertificates(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.UserContext()
	var certificates []models.Certificate
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", identity.ID).
		Order("created_at desc").
		Find(&certificates).Error; err != nil {
		return err
	}

	for i := range certificates {
		if err := h.expireIfLapsed(ctx, &certificates[i]); err != nil {
			return err
		}
	}

	return respond(c, fiber.StatusOK, "Certificates fetched successfully", fiber.Map{
		"certificates": certificates,
	})
}

// GetCertificate returns one of the caller's certificates.
func (h *CertificateHandler) GetCertificate(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	var certificate models.Certificate
	if err := h.db.WithContext(ctx).
		First(&certificate, "id = ? AND user_id = ?", id, identity.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Certificate not found")
		}
		return err
	}

	if err := h.expireIfLapsed(ctx, &certificate); err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Certificate fetched successfully", fiber.Map{
		"certificate": certificate,
	})
}

type createCertificateRequest struct {
	CertificateType string `json:"certificateType" label:"Certificate type" validate:"required"`
	HolderName      string `json:"holderName" label:"Holder name" validate:"required"`
	IssueDate       string `json:"issueDate" label:"Issue date" validate:"required"`
	ExpiryDate      string `json:"expiryDate" label:"Expiry date" validate:"required"`
	DocumentURL     string `json:"documentUrl"`
	UserID          string `json:"userId"`
}

// CreateCertificate issues a certificate to the caller, or to userId when the
// caller is an admin.
func (h *CertificateHandler) CreateCertificate(c *fiber.Ctx) error {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
	}

	var req createCertificateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	issueDate, err := parseDate("Issue date", req.IssueDate)
	if err != nil {
		return err
	}
	expiryDate, err := parseDate("Expiry date", req.ExpiryDate)
	if err != nil {
		return err
	}

	ownerID := identity.ID
	if req.UserID != "" && identity.IsAdmin() {
		parsed, err := uuid.Parse(req.UserID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid userId")
		}
		ownerID = parsed
	}

	db := h.db.WithContext(c.UserContext())

	var owner models.User
	if err := db.First(&owner, "id = ?", ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	certificateType := strings.TrimSpace(req.CertificateType)

	var count int64
	if err := db.Model(&models.Certificate{}).
		Where("user_id = ? AND certificate_type = ?", owner.ID, certificateType).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "User already has a certificate of this type")
	}

	certificate := models.Certificate{
		UserID:            owner.ID,
		CertificateNumber: models.CertificateNumberFor(owner.RegistrationNumber, certificateType),
		CertificateType:   certificateType,
		HolderName:        strings.TrimSpace(req.HolderName),
		IssueDate:         issueDate,
		ExpiryDate:        expiryDate,
		Status:            models.StatusForExpiry(expiryDate, h.now()),
		DocumentURL:       optionalString(req.DocumentURL),
	}
	if err := db.Create(&certificate).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "User already has a certificate of this type")
		}
		return err
	}

	return respond(c, fiber.StatusCreated, "Certificate created successfully", fiber.Map{
		"certificate": certificate,
	})
}

// expireIfLapsed persists the active -> inactive flip for certificates whose
// expiry date has passed. It never re-activates; only approval does that.
func (h *CertificateHandler) expireIfLapsed(ctx context.Context, certificate *models.Certificate) error {
	if certificate.Status != models.CertificateActive || certificate.StatusAt(h.now()) != models.CertificateInactive {
		return nil
	}

	if err := h.db.WithContext(ctx).Model(certificate).Update("status", models.CertificateInactive).Error; err != nil {
		return err
	}
	certificate.Status = models.CertificateInactive
	return nil
}
