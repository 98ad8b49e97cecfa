package user

import (
	"fmt"
	"os"

	"github.com/hadoop835/iggy/pkg/permission"
	"github.com/hadoop835/iggy/pkg/security"
)

// DefaultRootUsername and DefaultRootPassword are used when neither
// ROOT_USERNAME nor ROOT_PASSWORD is set.
const (
	DefaultRootUsername = "iggy"
	DefaultRootPassword = "iggy"
)

// RootCredentials resolves the root user's username/password from the
// ROOT_USERNAME/ROOT_PASSWORD environment variables, falling back to the
// built-in defaults when neither is set. Providing only one of the two
// variables, or a value outside the length bounds, panics: these are
// boot-time configuration errors, not runtime conditions the engine can
// recover from or report through apperror.
func RootCredentials() (username, password string) {
	envUsername, hasUsername := os.LookupEnv("ROOT_USERNAME")
	envPassword, hasPassword := os.LookupEnv("ROOT_PASSWORD")

	if hasUsername != hasPassword {
		panic("when providing custom root user credentials, both ROOT_USERNAME and ROOT_PASSWORD must be set")
	}

	username, password = DefaultRootUsername, DefaultRootPassword
	if hasUsername && hasPassword {
		username, password = envUsername, envPassword
	}

	if username == "" || password == "" {
		panic("root user credentials are not set")
	}
	if len(username) < MinUsernameLength {
		panic(fmt.Sprintf("root username is too short, must be at least %d characters", MinUsernameLength))
	}
	if len(username) > MaxUsernameLength {
		panic(fmt.Sprintf("root username is too long, must be at most %d characters", MaxUsernameLength))
	}
	if len(password) < security.MinPasswordLength {
		panic(fmt.Sprintf("root password is too short, must be at least %d characters", security.MinPasswordLength))
	}
	if len(password) > security.MaxPasswordLength {
		panic(fmt.Sprintf("root password is too long, must be at most %d characters", security.MaxPasswordLength))
	}

	return username, password
}

// newRootUser builds the root User with every Global permission bit set,
// so the Permissioner never needs to special-case root internally: root's
// bypass is structural, carried entirely in the Permissions it bootstraps
// with.
func newRootUser(username, passwordHash string) *User {
	return &User{
		ID:           RootUserID,
		Username:     normalizeUsername(username),
		PasswordHash: passwordHash,
		Status:       StatusActive,
		IsRoot:       true,
		Permissions: &permission.Permissions{
			Global: permission.Global{
				ManageUsers:    true,
				ReadUsers:      true,
				ManageStreams:  true,
				ReadStreams:    true,
				PollMessages:   true,
				AppendMessages: true,
			},
		},
	}
}
