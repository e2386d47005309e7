package worker

// email_worker.go
// Sends appointment confirmations and valuation offers through the SMTP relay.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/textproto"

	"entrepeques/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail    string `json:"to_email"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Attachment string `json:"attachment,omitempty"`
}

// Sender delivers one message. *infra.Mailer implements it.
type Sender interface {
	Send(to, subject, body, attachment string) error
}

type EmailWorker struct {
	sender Sender
	cb     *infra.CircuitBreaker
}

// NewEmailWorker sends through sender, guarded by cb.
func NewEmailWorker(sender Sender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb}
}

// NewMailBreaker builds the breaker for the SMTP relay. A 5xx reply rejects one
// message, not the relay, so it does not count towards opening the circuit.
func NewMailBreaker() *infra.CircuitBreaker {
	cfg := infra.DefaultCBConfig("smtp")
	cfg.Trips = func(err error) bool { return !rejectedByRelay(err) }
	return infra.NewCircuitBreaker(cfg)
}

func rejectedByRelay(err error) bool {
	var tp *textproto.Error
	return errors.As(err, &tp) && tp.Code >= 500
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: email payload: %v", ErrPermanent, err)
	}
	if payload.ToEmail == "" {
		log.Warn().Str("subject", payload.Subject).Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := w.cb.Execute(func() error {
		return w.sender.Send(payload.ToEmail, payload.Subject, payload.Body, payload.Attachment)
	})
	switch {
	case err == nil:
	case rejectedByRelay(err):
		// retrying a refused mailbox gets the same answer
		return fmt.Errorf("%w: send to %s: %v", ErrPermanent, payload.ToEmail, err)
	default:
		return fmt.Errorf("send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Str("subject", payload.Subject).Msg("email_worker: email sent")
	return nil
}
