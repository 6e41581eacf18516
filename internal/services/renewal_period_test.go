package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRenewedUntil(t *testing.T) {
	cases := []struct {
		name   string
		expiry time.Time
		now    time.Time
		want   time.Time
	}{
		{"lapsed extends from today", date(2024, 6, 1), date(2025, 6, 15), date(2026, 6, 15)},
		{"active extends from expiry", date(2026, 1, 1), date(2025, 6, 15), date(2027, 1, 1)},
		{"expiring today extends from today", date(2025, 6, 15), date(2025, 6, 15), date(2026, 6, 15)},
		{"leap day rolls forward", date(2028, 2, 29), date(2025, 1, 1), date(2029, 3, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(RenewedUntil(tc.expiry, tc.now)), "got %s", RenewedUntil(tc.expiry, tc.now))
		})
	}
}
