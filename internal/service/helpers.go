package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"entrepeques/internal/apierror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier queues outgoing email. *worker.Dispatcher implements it.
type Notifier interface {
	EnqueueEmail(ctx context.Context, payload interface{}) error
}

// notFound turns gorm's missing-row error into a NotFound domain error and
// leaves every other error untouched.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.Newf(apierror.KindNotFound, format, args...)
	}
	return err
}

func parseID(s, campo string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, apierror.Newf(apierror.KindInvalidInput, "%s no es un identificador válido", campo)
	}
	return id, nil
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// soloDigitos keeps the digits of a phone number.
func soloDigitos(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
