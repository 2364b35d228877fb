package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/quizhub/quiz-api/internal/domain"
	"github.com/quizhub/quiz-api/internal/pkg/metrics"
)

// Mailer is satisfied by the smtp, kafka and log transports.
type Mailer interface {
	Send(ctx context.Context, msg domain.MailMessage) error
}

type Service interface {
	SendVerificationCode(ctx context.Context, email, code string, purpose domain.VerificationPurpose, ttl time.Duration) error
}

type service struct {
	mailer    Mailer
	transport string
	appName   string
}

func NewService(mailer Mailer, transport string) Service {
	return &service{mailer: mailer, transport: transport, appName: "QuizHub"}
}

func (s *service) SendVerificationCode(ctx context.Context, email, code string, purpose domain.VerificationPurpose, ttl time.Duration) error {
	msg, err := s.render(email, code, purpose, ttl)
	if err != nil {
		return err
	}
	err = s.mailer.Send(ctx, msg)
	metrics.MailSent.WithLabelValues(s.transport, metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("send %s code: %w", purpose, err)
	}
	return nil
}

func (s *service) render(email, code string, purpose domain.VerificationPurpose, ttl time.Duration) (domain.MailMessage, error) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	var subject, intro string
	switch purpose {
	case domain.PurposeRegistration:
		subject = s.appName + " email verification code"
		intro = "Use the code below to verify your email address and finish creating your account."
	case domain.PurposePasswordReset:
		subject = s.appName + " password reset code"
		intro = "Use the code below to reset your password. If you did not ask for this, ignore this email."
	default:
		return domain.MailMessage{}, fmt.Errorf("unknown verification purpose %q: %w", purpose, domain.ErrBadRequest)
	}
	body := fmt.Sprintf("%s\n\n    %s\n\nThe code expires in %d minutes.\n", intro, code, minutes)
	return domain.MailMessage{To: email, Subject: subject, Body: body}, nil
}
