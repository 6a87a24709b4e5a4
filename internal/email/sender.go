package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para envio de correos de verificacion de cuenta.
type Sender interface {
	SendVerificationLink(ctx context.Context, toEmail, nickname, link string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationLink(_ context.Context, _, _, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
