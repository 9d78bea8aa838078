package email

import (
	"context"
	"errors"
)

// ProfileLinks son los enlaces que recibe el propietario al crear su cuenta.
type ProfileLinks struct {
	Username string
	EditURL  string
	ViewURL  string
}

// Sender define la interfaz para envio de correos al propietario.
type Sender interface {
	SendProfileLinks(ctx context.Context, toEmail string, links ProfileLinks) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendProfileLinks(_ context.Context, _ string, _ ProfileLinks) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
