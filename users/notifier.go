package users

import (
	"context"

	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/logger"
)

// Notifier delivers account links. Delivery itself lives outside this
// module.
type Notifier interface {
	SendInvitation(ctx context.Context, email string, role core.Role, token string) error
	SendPasswordReset(ctx context.Context, email string, token string) error
}

// LogNotifier records deliveries in the log instead of sending them.
// Tokens are live credentials, so they only appear at debug level.
type LogNotifier struct {
	Logger logger.Logger
}

func (n LogNotifier) SendInvitation(_ context.Context, email string, role core.Role, token string) error {
	l := n.Logger.WithFields(map[string]any{"email": email, "role": string(role)})
	l.Info("invitation issued")
	l.Debug("invitation token=%s", token)
	return nil
}

func (n LogNotifier) SendPasswordReset(_ context.Context, email string, token string) error {
	l := n.Logger.WithFields(map[string]any{"email": email})
	l.Info("password reset issued")
	l.Debug("password reset token=%s", token)
	return nil
}
