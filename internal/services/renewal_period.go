package services

import "time"

// RenewalTermYears is how far a single approved renewal extends a certificate.
const RenewalTermYears = 1

// RenewedUntil extends from the later of the current expiry and now.
// An already lapsed certificate therefore restarts from today instead of
// inheriting the gap.
func RenewedUntil(currentExpiry, now time.Time) time.Time {
	base := now
	if currentExpiry.After(now) {
		base = currentExpiry
	}
	return base.AddDate(RenewalTermYears, 0, 0)
}
