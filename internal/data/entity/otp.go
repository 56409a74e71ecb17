package entity

import "time"

type OTPPurpose string

const (
	PurposeRegistration   OTPPurpose = "registration"
	PurposeForgotPassword OTPPurpose = "forgot-password"
)

// PendingOTP is the value stored in the secret store while a one-time
// code is outstanding for an (email, purpose) pair.
type PendingOTP struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
}
