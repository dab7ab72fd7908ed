package models

import "time"

// VerificationChallenge represents one outstanding OTP challenge. The server
// side stores only the hashed code; this record carries the bookkeeping the
// flow needs.
type VerificationChallenge struct {
	Email         string    `json:"email"`
	Purpose       string    `json:"purpose"`
	CodeHash      string    `json:"code_hash"`
	CodeSalt      string    `json:"code_salt"`
	PepperVersion int       `json:"pepper_version"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the challenge's code TTL has elapsed.
func (c *VerificationChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
