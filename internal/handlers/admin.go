package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/certrenew/internal/config"
	"github.com/example/certrenew/internal/metrics"
	"github.com/example/certrenew/internal/models"
	"github.com/example/certrenew/internal/services"
	"github.com/example/certrenew/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	db      *gorm.DB
	cfg     *config.Config
	metrics *metrics.RenewalMetrics
	now     Clock
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, cfg *config.Config, m *metrics.RenewalMetrics, now Clock) *AdminHandler {
	return &AdminHandler{db: db, cfg: cfg, metrics: m, now: now.orDefault()}
}

type adminLoginRequest struct {
	Email    string `json:"email" label:"Email" validate:"required"`
	Password string `json:"password" label:"Password" validate:"required"`
}

// Login authenticates an administrator by email.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var req adminLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var admin models.User
	err := h.db.WithContext(c.UserContext()).
		Where("email = ? AND role = ?", strings.TrimSpace(req.Email), models.RoleAdmin).
		First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Admin not found")
		}
		return err
	}

	if !utils.CheckPassword(admin.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	token, err := issueToken(h.cfg, &admin)
	if err != nil {
		return err
	}
	setAuthCookie(c, h.cfg, token)

	return respond(c, fiber.StatusOK, "Admin login successful", fiber.Map{
		"user": fiber.Map{
			"id":    admin.ID,
			"email": admin.Email,
			"role":  admin.Role,
		},
		"token": token,
	})
}

type adminRegisterRequest struct {
	RegistrationNumber string `json:"registrationNumber" label:"Registration number" validate:"required"`
	PhoneNumber        string `json:"phoneNumber" label:"Phone number" validate:"required,len=10,numeric"`
	Email              string `json:"email" label:"Email" validate:"omitempty,email"`
	Password           string `json:"password" label:"Password" validate:"required,min=6"`
}

// RegisterUser creates a user account on behalf of an admin. No token is issued.
func (h *AdminHandler) RegisterUser(c *fiber.Ctx) error {
	var req adminRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	req.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	if req.RegistrationNumber == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Registration number is required")
	}

	db := h.db.WithContext(c.UserContext())

	var existing models.User
	if err := db.Where("registration_number = ?", req.RegistrationNumber).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "User with this registration number already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	email := optionalString(req.Email)
	if email != nil {
		if err := db.Where("email = ?", *email).First(&existing).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Email already in use")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		RegistrationNumber: req.RegistrationNumber,
		PhoneNumber:        req.PhoneNumber,
		Email:              email,
		PasswordHash:       passwordHash,
		Role:               models.RoleUser,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "User with this registration number or email already exists")
		}
		return err
	}

	return respond(c, fiber.StatusCreated, "User registered successfully", fiber.Map{
		"user": fiber.Map{
			"id":                 user.ID,
			"registrationNumber": user.RegistrationNumber,
			"phoneNumber":        user.PhoneNumber,
			"email":              user.Email,
			"role":               user.Role,
		},
	})
}

// ListRenewals returns all renewals, optionally filtered by admin status.
func (h *AdminHandler) ListRenewals(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Renewal{})

	if status := c.Query("status"); status != "" {
		if !models.AdminStatus(status).Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid status filter")
		}
		query = query.Where("admin_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var renewals []models.Renewal
	if err := query.Preload("User").Preload("Certificate").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&renewals).Error; err != nil {
		return err
	}

	return respond(c, fiber.StatusOK, "Renewals fetched successfully", fiber.Map{
		"renewals":   renewals,
		"pagination": pg.Meta(total),
	})
}

// ApproveRenewal approves a pending, paid renewal and extends its certificate.
// Both rows are written in one transaction.
func (h *AdminHandler) ApproveRenewal(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var renewal models.Renewal
	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&renewal, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Renewal request not found")
			}
			return err
		}

		if renewal.AdminStatus != models.AdminPending {
			return fiber.NewError(fiber.StatusBadRequest, "Renewal already processed")
		}
		if renewal.PaymentStatus != models.PaymentSuccess {
			return fiber.NewError(fiber.StatusBadRequest, "Payment not completed")
		}

		var certificate models.Certificate
		if err := tx.First(&certificate, "id = ?", renewal.CertificateID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Certificate not found")
			}
			return err
		}

		now := h.now()
		renewedUntil := services.RenewedUntil(certificate.ExpiryDate, now)

		if err := markDecided(tx, &renewal, map[string]any{
			"admin_status":  models.AdminApproved,
			"renewed_until": renewedUntil,
		}); err != nil {
			return err
		}

		if err := tx.Model(&certificate).Updates(map[string]any{
			"expiry_date":       renewedUntil,
			"last_renewal_date": now,
			"status":            models.CertificateActive,
		}).Error; err != nil {
			return err
		}

		renewal.AdminStatus = models.AdminApproved
		renewal.RenewedUntil = &renewedUntil
		certificate.ExpiryDate = renewedUntil
		certificate.LastRenewalDate = &now
		certificate.Status = models.CertificateActive
		renewal.Certificate = &certificate
		return nil
	})
	if err != nil {
		return err
	}
	h.metrics.IncDecision(string(models.AdminApproved))

	return respond(c, fiber.StatusOK, "Renewal approved successfully", fiber.Map{
		"renewal": renewal,
	})
}

type rejectRenewalRequest struct {
	CancelReason string `json:"cancelReason"`
}

// RejectRenewal rejects a pending renewal with a reason.
func (h *AdminHandler) RejectRenewal(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req rejectRenewalRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reason := strings.TrimSpace(req.CancelReason)
	if reason == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Cancellation reason is required")
	}

	db := h.db.WithContext(c.UserContext())

	var renewal models.Renewal
	if err := db.First(&renewal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Renewal request not found")
		}
		return err
	}

	if renewal.AdminStatus != models.AdminPending {
		return fiber.NewError(fiber.StatusBadRequest, "Renewal already processed")
	}

	if err := markDecided(db, &renewal, map[string]any{
		"admin_status":  models.AdminRejected,
		"cancel_reason": reason,
	}); err != nil {
		return err
	}
	renewal.AdminStatus = models.AdminRejected
	renewal.CancelReason = &reason
	h.metrics.IncDecision(string(models.AdminRejected))

	return respond(c, fiber.StatusOK, "Renewal rejected successfully", fiber.Map{
		"renewal": renewal,
	})
}

// markDecided applies a decision only while the renewal is still pending, so
// two concurrent decisions cannot both succeed.
func markDecided(db *gorm.DB, renewal *models.Renewal, updates map[string]any) error {
	res := db.Model(&models.Renewal{}).
		Where("id = ? AND admin_status = ?", renewal.ID, models.AdminPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Renewal already processed")
	}
	return nil
}

type statusCount struct {
	Status string
	Count  int64
}

// Statistics returns renewal counts by admin status and certificate counts by status.
func (h *AdminHandler) Statistics(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())

	var renewalCounts []statusCount
	if err := db.Model(&models.Renewal{}).
		Select("admin_status as status, count(*) as count").
		Group("admin_status").
		Scan(&renewalCounts).Error; err != nil {
		return err
	}

	var certificateCounts []statusCount
	if err := db.Model(&models.Certificate{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&certificateCounts).Error; err != nil {
		return err
	}

	renewals := tally(renewalCounts)
	certificates := tally(certificateCounts)

	return respond(c, fiber.StatusOK, "Statistics fetched successfully", fiber.Map{
		"data": fiber.Map{
			"renewals": fiber.Map{
				"total":    renewals.total,
				"pending":  renewals.by[string(models.AdminPending)],
				"approved": renewals.by[string(models.AdminApproved)],
				"rejected": renewals.by[string(models.AdminRejected)],
			},
			"certificates": fiber.Map{
				"total":   certificates.total,
				"active":  certificates.by[string(models.CertificateActive)],
				"expired": certificates.by[string(models.CertificateInactive)],
			},
		},
	})
}

type counts struct {
	total int64
	by    map[string]int64
}

func tally(rows []statusCount) counts {
	out := counts{by: make(map[string]int64, len(rows))}
	for _, row := range rows {
		out.by[row.Status] = row.Count
		out.total += row.Count
	}
	return out
}
