package authcore

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier records notifications without delivering them. It is the
// default Notifier; token values are never written to the log.
type LogNotifier struct {
	Logger logrus.FieldLogger
}

// Notify logs note.
func (n LogNotifier) Notify(_ context.Context, note Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	entry := logger.WithFields(logrus.Fields{
		"event":      "notification",
		"kind":       string(note.Kind),
		"expired_at": note.ExpiredAt,
	})
	if note.Account != nil {
		entry = entry.WithField("account_id", note.Account.ID)
	}
	entry.Warn("no notifier configured; token not delivered")
	return nil
}
