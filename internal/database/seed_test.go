package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/certrenew/internal/config"
	"github.com/example/certrenew/internal/models"
	"github.com/example/certrenew/internal/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	return conn
}

func TestEnsureAdminCreatesOnce(t *testing.T) {
	db := newTestDB(t)
	admin := config.AdminConfig{
		Email:              "admin@example.com",
		Password:           "s3cret!",
		RegistrationNumber: "ADMIN-0001",
		PhoneNumber:        "9800000000",
	}

	created, err := EnsureAdmin(db, admin)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = EnsureAdmin(db, admin)
	require.NoError(t, err)
	assert.False(t, created)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.True(t, utils.CheckPassword(users[0].PasswordHash, "s3cret!"))
}

func TestEnsureAdminDisabled(t *testing.T) {
	db := newTestDB(t)

	created, err := EnsureAdmin(db, config.AdminConfig{})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestMigrateEnforcesUniqueRegistrationNumber(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Create(&models.User{RegistrationNumber: "REG-1", PhoneNumber: "9800000000", PasswordHash: "x", Role: models.RoleUser}).Error)
	err := db.Create(&models.User{RegistrationNumber: "REG-1", PhoneNumber: "9800000001", PasswordHash: "x", Role: models.RoleUser}).Error
	assert.Error(t, err)

	// Users without email do not collide on the email index.
	require.NoError(t, db.Create(&models.User{RegistrationNumber: "REG-2", PhoneNumber: "9800000002", PasswordHash: "x", Role: models.RoleUser}).Error)
}

func TestMigrateAllowsOnePendingRenewalPerCertificate(t *testing.T) {
	db := newTestDB(t)

	user := models.User{RegistrationNumber: "REG-1", PhoneNumber: "9800000000", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	cert := models.Certificate{
		UserID:            user.ID,
		CertificateNumber: "REG-1/TRADE",
		CertificateType:   "Trade",
		HolderName:        "Holder",
		IssueDate:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:            models.CertificateActive,
	}
	require.NoError(t, db.Create(&cert).Error)

	renewal := func(status models.AdminStatus) *models.Renewal {
		return &models.Renewal{
			UserID:        user.ID,
			CertificateID: cert.ID,
			Amount:        decimal.NewFromInt(500),
			PaymentMethod: models.PaymentMethodKhalti,
			PaymentStatus: models.PaymentSuccess,
			AdminStatus:   status,
		}
	}

	require.NoError(t, db.Create(renewal(models.AdminRejected)).Error)
	require.NoError(t, db.Create(renewal(models.AdminApproved)).Error)
	require.NoError(t, db.Create(renewal(models.AdminPending)).Error)

	err := db.Create(renewal(models.AdminPending)).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
