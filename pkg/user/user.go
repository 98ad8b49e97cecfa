// Package user implements the user registry: the set of users known to the
// engine, root bootstrap, and credential verification. Permission state
// itself lives in pkg/permission; the registry only holds the Permissions
// value it was given and forwards it to the Permissioner.
package user

import (
	"strings"

	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/permission"
)

// Status is a user's activation state.
type Status int

const (
	// StatusActive means the user can authenticate.
	StatusActive Status = iota + 1
	// StatusInactive means login attempts fail with UserInactive.
	StatusInactive
)

func (s Status) String() string {
	if s == StatusActive {
		return "Active"
	}
	return "Inactive"
}

// MinUsernameLength and MaxUsernameLength bound a username after
// normalization. Password length bounds are pkg/security's
// MinPasswordLength/MaxPasswordLength.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// MaxUsers is the ceiling on live users, matching a u32 id space.
const MaxUsers = 1<<32 - 1

// RootUserID is reserved for the root user at bootstrap.
const RootUserID = 1

// User is one registered principal.
type User struct {
	ID           uint32
	Username     string
	PasswordHash string
	Status       Status
	Permissions  *permission.Permissions
	IsRoot       bool
}

// IsActive reports whether the user may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// normalizeUsername lowercases username and strips all whitespace, so
// lookups and uniqueness checks are insensitive to case and spacing.
func normalizeUsername(username string) string {
	username = strings.ToLower(username)
	return strings.Join(strings.Fields(username), "")
}

// validateUsername checks the normalized username's length bounds.
func validateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return apperror.Newf(apperror.KindInvalidIdentifier, "username length must be in [%d,%d]", MinUsernameLength, MaxUsernameLength)
	}
	return nil
}
