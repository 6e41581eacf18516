package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/certrenew/internal/config"
	"github.com/example/certrenew/internal/database"
	"github.com/example/certrenew/internal/handlers"
	"github.com/example/certrenew/internal/metrics"
	"github.com/example/certrenew/internal/models"
	"github.com/example/certrenew/internal/routes"
	"github.com/example/certrenew/internal/services"
	"github.com/example/certrenew/internal/utils"
)

type fakePayments struct {
	calls    int
	lastAt   int64
	err      error
	onVerify func()
}

func (f *fakePayments) Verify(_ context.Context, token string, amountMinorUnits int64) (*services.PaymentVerification, error) {
	f.calls++
	f.lastAt = amountMinorUnits
	if f.onVerify != nil {
		f.onVerify()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &services.PaymentVerification{TransactionID: "txn-" + token, AmountMinorUnits: amountMinorUnits}, nil
}

type testServer struct {
	app      *fiber.App
	db       *gorm.DB
	cfg      *config.Config
	payments *fakePayments
	registry *prometheus.Registry
	now      time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	s := &testServer{
		db:       db,
		cfg:      &config.Config{JWTSecret: "handler-secret", TokenExpires: time.Hour},
		payments: &fakePayments{},
		registry: prometheus.NewRegistry(),
		now:      time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}

	log := zerolog.Nop()
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})
	routes.Register(app, routes.Dependencies{
		DB:       db,
		Config:   s.cfg,
		Payments: s.payments,
		Metrics:  metrics.NewRenewalMetrics(s.registry),
		Gatherer: s.registry,
		Logger:   log,
		Clock:    func() time.Time { return s.now },
	})
	s.app = app
	return s
}

type apiResponse struct {
	status  int
	body    map[string]any
	cookies []*http.Cookie
}

func (s *testServer) call(t *testing.T, method, path, token string, payload any) apiResponse {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "BEARER "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := apiResponse{status: resp.StatusCode, cookies: resp.Cookies()}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (s *testServer) createUser(t *testing.T, regNo string, role models.Role, password string) models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		RegistrationNumber: regNo,
		PhoneNumber:        "9800000000",
		PasswordHash:       hash,
		Role:               role,
	}
	if role == models.RoleAdmin {
		email := regNo + "@example.com"
		user.Email = &email
	}
	require.NoError(t, s.db.Create(&user).Error)
	return user
}

func (s *testServer) tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(s.cfg.JWTSecret, utils.TokenPayload{
		UserID:             user.ID,
		RegistrationNumber: user.RegistrationNumber,
		PhoneNumber:        user.PhoneNumber,
		Role:               string(user.Role),
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) createCertificate(t *testing.T, owner models.User, certType string, expiry time.Time) models.Certificate {
	t.Helper()
	cert := models.Certificate{
		UserID:            owner.ID,
		CertificateNumber: models.CertificateNumberFor(owner.RegistrationNumber, certType),
		CertificateType:   certType,
		HolderName:        "Holder " + owner.RegistrationNumber,
		IssueDate:         expiry.AddDate(-1, 0, 0),
		ExpiryDate:        expiry,
		Status:            models.CertificateActive,
	}
	require.NoError(t, s.db.Create(&cert).Error)
	return cert
}

func (s *testServer) createRenewal(t *testing.T, owner models.User, cert models.Certificate, status models.AdminStatus) models.Renewal {
	t.Helper()
	renewal := models.Renewal{
		UserID:        owner.ID,
		CertificateID: cert.ID,
		Amount:        decimal.NewFromInt(500),
		PaymentMethod: models.PaymentMethodKhalti,
		PaymentStatus: models.PaymentSuccess,
		AdminStatus:   status,
		ReceiptURL:    "txn-seed",
	}
	require.NoError(t, s.db.Create(&renewal).Error)
	return renewal
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func field(t *testing.T, body map[string]any, path ...string) any {
	t.Helper()
	var cur any = body
	for _, key := range path {
		m, ok := cur.(map[string]any)
		require.True(t, ok, "expected object at %q", key)
		cur = m[key]
	}
	return cur
}
