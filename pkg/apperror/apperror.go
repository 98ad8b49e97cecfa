// Package apperror defines the stable error-kind vocabulary shared by every
// streaming engine component. It is a leaf package with no internal
// dependencies, designed to be imported by the identifier, permission, user,
// session, partition, directory, shard and engine packages without causing
// import cycles.
package apperror

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a streaming engine error. Kinds are stable
// numeric codes: callers across process boundaries may rely on the specific
// integer value, so existing constants are never renumbered.
type Kind int

const (
	// KindNotAuthenticated indicates the caller has no bound user on its session.
	KindNotAuthenticated Kind = iota + 1

	// KindInvalidCredentials indicates a login attempt with an unknown username
	// or a wrong password. Deliberately returned for "unknown username" too, to
	// avoid user enumeration.
	KindInvalidCredentials

	// KindUserInactive indicates the user exists but its status is Inactive.
	KindUserInactive

	// KindPermissionDenied indicates the caller is authenticated but lacks the
	// capability required for the operation.
	KindPermissionDenied

	// KindResourceNotFound indicates a stream, topic, partition or user lookup
	// by id or name found nothing.
	KindResourceNotFound

	// KindUserAlreadyExists indicates a username collision on create/rename.
	KindUserAlreadyExists

	// KindStreamAlreadyExists indicates a stream id/name collision on create.
	KindStreamAlreadyExists

	// KindTopicAlreadyExists indicates a topic id/name collision within a stream.
	KindTopicAlreadyExists

	// KindCannotDeleteUser indicates an attempt to delete the root user.
	KindCannotDeleteUser

	// KindCannotChangePermissions indicates an attempt to alter root's permissions.
	KindCannotChangePermissions

	// KindUsersLimitReached indicates the registry already holds MaxUsers users.
	KindUsersLimitReached

	// KindInvalidIdentifier indicates an Identifier was used in a way that
	// doesn't match its kind (e.g. as_u32() on a string identifier).
	KindInvalidIdentifier

	// KindInvalidMessagesCount indicates a poll request asked for zero messages.
	KindInvalidMessagesCount

	// KindNoPartitions indicates an operation on a topic with no partitions.
	KindNoPartitions

	// KindCannotEncryptData indicates the configured Encryptor failed on append.
	KindCannotEncryptData

	// KindCannotDecryptData indicates the configured Encryptor failed on poll.
	// Stored data is left untouched; only the response to this caller fails.
	KindCannotDecryptData

	// KindInternalError indicates a metadata-apply failure or an invariant
	// breach that was caught and converted rather than left to panic.
	KindInternalError
)

var kindNames = map[Kind]string{
	KindNotAuthenticated:        "NotAuthenticated",
	KindInvalidCredentials:      "InvalidCredentials",
	KindUserInactive:            "UserInactive",
	KindPermissionDenied:        "PermissionDenied",
	KindResourceNotFound:        "ResourceNotFound",
	KindUserAlreadyExists:       "UserAlreadyExists",
	KindStreamAlreadyExists:     "StreamAlreadyExists",
	KindTopicAlreadyExists:      "TopicAlreadyExists",
	KindCannotDeleteUser:        "CannotDeleteUser",
	KindCannotChangePermissions: "CannotChangePermissions",
	KindUsersLimitReached:       "UsersLimitReached",
	KindInvalidIdentifier:       "InvalidIdentifier",
	KindInvalidMessagesCount:    "InvalidMessagesCount",
	KindNoPartitions:            "NoPartitions",
	KindCannotEncryptData:       "CannotEncryptData",
	KindCannotDecryptData:       "CannotDecryptData",
	KindInternalError:           "InternalError",
}

// String returns the human-readable name for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// Error is the concrete error type returned by every public engine operation.
// Exactly one Kind is ever set; Resource/Message add context for logging.
type Error struct {
	Kind     Kind
	Message  string
	Resource string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Resource)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether target names the same Kind, so callers can use
// errors.Is(err, apperror.New(apperror.KindResourceNotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithResource annotates an error with the resource it concerns (a username,
// a stream name, a namespace string, ...).
func WithResource(kind Kind, message, resource string) *Error {
	return &Error{Kind: kind, Message: message, Resource: resource}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, otherwise
// returns KindInternalError — collaborator errors that weren't explicitly
// mapped are never allowed to leak past the engine boundary unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalError
}
