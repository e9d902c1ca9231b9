// Package notify delivers out-of-band messages to users, currently only the
// temporary-credential mail sent on password reset.
package notify

import (
	"context"
	"errors"
)

// ErrDelivery wraps transport failures while sending a notification.
var ErrDelivery = errors.New("notification delivery failed")

// Notifier delivers a message to a user's registered address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
