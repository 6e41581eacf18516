package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewalAmountIsJSONNumber(t *testing.T) {
	raw, err := json.Marshal(Renewal{Amount: decimal.RequireFromString("750.50")})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, 750.5, body["amount"])
}

func TestAdminStatusValid(t *testing.T) {
	assert.True(t, AdminPending.Valid())
	assert.True(t, AdminApproved.Valid())
	assert.True(t, AdminRejected.Valid())
	assert.False(t, AdminStatus("done").Valid())
}

func TestStatusForExpiry(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, CertificateActive, StatusForExpiry(now.Add(time.Second), now))
	assert.Equal(t, CertificateInactive, StatusForExpiry(now, now))
	assert.Equal(t, CertificateInactive, StatusForExpiry(now.AddDate(0, 0, -1), now))
}

func TestCertificateNumberFor(t *testing.T) {
	assert.Equal(t, "REG-9/TRADE-LICENSE", CertificateNumberFor("REG-9", "Trade  license"))
}
