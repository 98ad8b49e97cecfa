package engine

import (
	"context"

	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/permission"
	"github.com/hadoop835/iggy/pkg/user"
)

// pkg/user.Registry's mutating methods already apply their own user-count
// delta to the shared metrics.Sink (see NewRegistry's MetricsSink wiring),
// so every wrapper below applies only the returned metadatalog.Entry and
// never touches e.metrics itself for a user count.

// Login verifies credentials and, for a non-zero clientID, binds the
// session to the resulting user.
func (e *Engine) Login(ctx context.Context, username string, password *string, clientID, sessionUserID uint32) (*user.User, error) {
	ctx, span := e.startCommand(ctx, "login")
	defer span.End()

	u, err := e.users.LoginUserWithCredentials(ctx, username, password, clientID, sessionUserID)
	e.logCommand(ctx, "login", err)
	return u, err
}

// Logout clears clientID's session binding.
func (e *Engine) Logout(ctx context.Context, callerUserID, clientID uint32) error {
	ctx, span := e.startCommand(ctx, "logout")
	defer span.End()

	err := e.users.Logout(ctx, callerUserID, clientID)
	e.logCommand(ctx, "logout", err)
	return err
}

// CreateUser registers a new user and persists the resulting entry.
func (e *Engine) CreateUser(ctx context.Context, callerUserID uint32, username, password string, status user.Status, perms *permission.Permissions) (*user.User, error) {
	ctx, span := e.startCommand(ctx, "create_user")
	defer span.End()

	u, entry, err := e.users.CreateUser(callerUserID, username, password, status, perms)
	if err == nil {
		err = e.applyMetadata(ctx, entry)
	}
	e.logCommand(ctx, "create_user", err)
	return u, err
}

// DeleteUser removes a user and persists the resulting entry.
func (e *Engine) DeleteUser(ctx context.Context, callerUserID uint32, id identifier.Identifier) (*user.User, error) {
	ctx, span := e.startCommand(ctx, "delete_user")
	defer span.End()

	u, entry, err := e.users.DeleteUser(ctx, callerUserID, id)
	if err == nil {
		err = e.applyMetadata(ctx, entry)
	}
	e.logCommand(ctx, "delete_user", err)
	return u, err
}

// UpdateUser changes username and/or status and persists the result.
func (e *Engine) UpdateUser(ctx context.Context, callerUserID uint32, id identifier.Identifier, newUsername *string, newStatus *user.Status) (*user.User, error) {
	ctx, span := e.startCommand(ctx, "update_user")
	defer span.End()

	u, entry, err := e.users.UpdateUser(callerUserID, id, newUsername, newStatus)
	if err == nil {
		err = e.applyMetadata(ctx, entry)
	}
	e.logCommand(ctx, "update_user", err)
	return u, err
}

// UpdatePermissions replaces a user's Permissions and persists the result.
func (e *Engine) UpdatePermissions(ctx context.Context, callerUserID uint32, id identifier.Identifier, perms *permission.Permissions) error {
	ctx, span := e.startCommand(ctx, "update_permissions")
	defer span.End()

	entry, err := e.users.UpdatePermissions(callerUserID, id, perms)
	if err == nil {
		err = e.applyMetadata(ctx, entry)
	}
	e.logCommand(ctx, "update_permissions", err)
	return err
}

// ChangePassword verifies the current password and sets a new one.
func (e *Engine) ChangePassword(ctx context.Context, callerUserID uint32, id identifier.Identifier, currentPassword, newPassword string) error {
	ctx, span := e.startCommand(ctx, "change_password")
	defer span.End()

	entry, err := e.users.ChangePassword(callerUserID, id, currentPassword, newPassword)
	if err == nil {
		err = e.applyMetadata(ctx, entry)
	}
	e.logCommand(ctx, "change_password", err)
	return err
}

// GetUser resolves a single user.
func (e *Engine) GetUser(callerUserID uint32, id identifier.Identifier) (*user.User, error) {
	return e.users.GetUser(callerUserID, id)
}

// GetUsers lists every registered user.
func (e *Engine) GetUsers(callerUserID uint32) ([]*user.User, error) {
	return e.users.GetUsers(callerUserID)
}

// Me resolves the caller's own user record.
func (e *Engine) Me(callerUserID uint32) (*user.User, error) {
	return e.users.GetUser(callerUserID, identifier.Numeric(callerUserID))
}
