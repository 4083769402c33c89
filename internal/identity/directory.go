package identity

import (
	"context"
	"log/slog"

	"vocalis/internal/logging"
	"vocalis/internal/services"
)

// Directory resolves verification tokens to registered users.
type Directory struct {
	store  *Store
	logger *slog.Logger
}

// NewDirectory builds a token directory over the user store.
func NewDirectory(store *Store, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Directory{
		store:  store,
		logger: logger.With(logging.String(logging.FieldComponent, "identity")),
	}
}

// Authenticate resolves a decrypted verification token to its user. An
// unknown token is an authentication failure, not a lookup error.
func (d *Directory) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, services.Wrap(services.ErrAuthentication, "identity", "authenticate", "Failed to authenticate user", nil)
	}
	user, err := d.store.UserByToken(ctx, token)
	if err != nil {
		return nil, services.Wrap(services.ErrResource, "identity", "authenticate", "Could not look up user", err)
	}
	if user == nil {
		d.logger.WarnContext(ctx, "verification token matched no user")
		return nil, services.Wrap(services.ErrAuthentication, "identity", "authenticate", "Failed to authenticate user", nil)
	}
	return user, nil
}
