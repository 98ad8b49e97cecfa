package user

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/hadoop835/iggy/internal/logger"
	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/metadatalog"
	"github.com/hadoop835/iggy/pkg/permission"
	"github.com/hadoop835/iggy/pkg/security"
)

// ClientManager is the slice of the session layer the registry needs: the
// binding between a connected client and the user id it authenticated as.
// The concrete implementation lives in the session package; the registry
// only depends on this interface so the two packages don't import each
// other.
type ClientManager interface {
	SetUserID(ctx context.Context, clientID, userID uint32) error
	ClearUserID(ctx context.Context, clientID uint32) error
	DeleteClientsForUser(ctx context.Context, userID uint32) error
}

// MetricsSink receives user-count deltas. A nil MetricsSink is valid: every
// call site checks before invoking it.
type MetricsSink interface {
	IncrementUsers(n uint32)
	DecrementUsers(n uint32)
}

// Registry holds every known user in memory. It never writes to the
// metadata log itself: mutating methods return the metadatalog.Entry
// describing the change, and the Engine façade applies it, matching the
// canonical control-flow order where the log write happens after the
// in-memory mutation and the metrics update.
type Registry struct {
	mu         sync.RWMutex
	byID       map[uint32]*User
	byUsername map[string]*User
	nextID     atomic.Uint32

	hasher      security.PasswordHasher
	permissions *permission.Permissioner
	clients     ClientManager
	metrics     MetricsSink
}

// NewRegistry builds an empty Registry. Call ApplyLoggedEntry for each
// replayed entry and then BootstrapRootIfEmpty before serving any request.
func NewRegistry(hasher security.PasswordHasher, permissions *permission.Permissioner, clients ClientManager, metrics MetricsSink) *Registry {
	r := &Registry{
		byID:        make(map[uint32]*User),
		byUsername:  make(map[string]*User),
		hasher:      hasher,
		permissions: permissions,
		clients:     clients,
		metrics:     metrics,
	}
	r.nextID.Store(RootUserID)
	return r
}

func ensureAuthenticated(userID uint32) error {
	if userID == 0 {
		return apperror.New(apperror.KindNotAuthenticated, "no authenticated user bound to this session")
	}
	return nil
}

// insert adds u to both indexes and advances nextID past u.ID, used both by
// replay and by bootstrap.
func (r *Registry) insert(u *User) {
	r.byID[u.ID] = u
	r.byUsername[u.Username] = u
	if u.ID >= r.nextID.Load() {
		r.nextID.Store(u.ID + 1)
	}
}

// ApplyLoggedEntry mutates in-memory state from an already-committed
// metadata log entry. It performs no permission checks and no duplicate
// validation: those were already satisfied when the entry was originally
// applied, and replay must never fail on a legitimately persisted history.
func (r *Registry) ApplyLoggedEntry(entry metadatalog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch entry.Kind {
	case metadatalog.KindCreateUser:
		var p createUserPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay CreateUser: %v", err)
		}
		r.insert(&User{
			ID:           p.ID,
			Username:     p.Username,
			PasswordHash: p.Password,
			Status:       p.Status,
			Permissions:  p.Permissions,
			IsRoot:       p.ID == RootUserID,
		})
		r.permissions.InitPermissionsForUser(p.ID, p.Permissions)

	case metadatalog.KindUpdateUser:
		var p updateUserPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay UpdateUser: %v", err)
		}
		u, ok := r.byID[p.ID]
		if !ok {
			return apperror.Newf(apperror.KindInternalError, "replay UpdateUser: user %d not found", p.ID)
		}
		if p.Username != nil {
			delete(r.byUsername, u.Username)
			u.Username = *p.Username
			r.byUsername[u.Username] = u
		}
		if p.Status != nil {
			u.Status = *p.Status
		}

	case metadatalog.KindDeleteUser:
		var p deleteUserPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay DeleteUser: %v", err)
		}
		if u, ok := r.byID[p.ID]; ok {
			delete(r.byUsername, u.Username)
			delete(r.byID, p.ID)
		}
		r.permissions.DeletePermissionsForUser(p.ID)

	case metadatalog.KindUpdatePermissions:
		var p updatePermissionsPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay UpdatePermissions: %v", err)
		}
		if u, ok := r.byID[p.ID]; ok {
			u.Permissions = p.Permissions
		}
		r.permissions.UpdatePermissionsForUser(p.ID, p.Permissions)

	case metadatalog.KindChangePassword:
		var p changePasswordPayload
		if err := json.Unmarshal(entry.Payload, &p); err != nil {
			return apperror.Newf(apperror.KindInternalError, "replay ChangePassword: %v", err)
		}
		if u, ok := r.byID[p.ID]; ok {
			u.PasswordHash = p.Password
		}

	default:
		// Stream/topic/partition entry kinds belong to the directory
		// collaborator, not the user registry; replay dispatch at the
		// Engine level routes those elsewhere and never reaches here.
	}
	return nil
}

// BootstrapRootIfEmpty creates the root user when the registry holds no
// users after replay, inserting it directly and returning the CreateUser
// entry for the Engine to persist. It returns (nil, false, nil) when the
// registry already has users.
func (r *Registry) BootstrapRootIfEmpty() (metadatalog.Entry, bool, error) {
	r.mu.Lock()
	empty := len(r.byID) == 0
	r.mu.Unlock()
	if !empty {
		return metadatalog.Entry{}, false, nil
	}

	logger.Info("no users found, creating the root user")
	username, password := RootCredentials()
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return metadatalog.Entry{}, false, err
	}

	root := newRootUser(username, hash)

	r.mu.Lock()
	r.insert(root)
	r.mu.Unlock()
	r.permissions.InitPermissionsForUser(root.ID, root.Permissions)

	entry, err := encodeEntry(metadatalog.KindCreateUser, root.ID, createUserPayload{
		ID:          root.ID,
		Username:    root.Username,
		Password:    root.PasswordHash,
		Status:      root.Status,
		Permissions: root.Permissions,
	})
	if err != nil {
		return metadatalog.Entry{}, false, err
	}
	logger.Info("created the root user", logger.Username(root.Username), logger.UserID(root.ID))
	return entry, true, nil
}

// lookup resolves id to a User without locking; callers hold r.mu.
func (r *Registry) lookup(id identifier.Identifier) (*User, error) {
	if id.Kind() == identifier.KindNumeric {
		n, err := id.AsU32()
		if err != nil {
			return nil, err
		}
		u, ok := r.byID[n]
		if !ok {
			return nil, apperror.Newf(apperror.KindResourceNotFound, "user %d", n)
		}
		return u, nil
	}
	name, err := id.AsString()
	if err != nil {
		return nil, err
	}
	u, ok := r.byUsername[name]
	if !ok {
		return nil, apperror.Newf(apperror.KindResourceNotFound, "user %s", name)
	}
	return u, nil
}

// GetUser resolves id, requiring the Permissioner's read_users grant unless
// the caller is looking up itself.
func (r *Registry) GetUser(callerUserID uint32, id identifier.Identifier) (*User, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if u.ID != callerUserID {
		if err := r.permissions.GetUser(callerUserID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// GetUsers lists every registered user.
func (r *Registry) GetUsers(callerUserID uint32) ([]*User, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, err
	}
	if err := r.permissions.GetUsers(callerUserID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]*User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, u)
	}
	return users, nil
}

// CreateUser registers a new user and returns the CreateUser entry for the
// Engine to apply to the metadata log.
func (r *Registry) CreateUser(callerUserID uint32, username, password string, status Status, perms *permission.Permissions) (*User, metadatalog.Entry, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, metadatalog.Entry{}, err
	}
	if err := r.permissions.CreateUser(callerUserID); err != nil {
		return nil, metadatalog.Entry{}, err
	}

	normalized := normalizeUsername(username)
	if err := validateUsername(normalized); err != nil {
		return nil, metadatalog.Entry{}, err
	}

	hash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, metadatalog.Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[normalized]; exists {
		return nil, metadatalog.Entry{}, apperror.Newf(apperror.KindUserAlreadyExists, "user %s already exists", normalized)
	}
	if len(r.byID) >= MaxUsers {
		return nil, metadatalog.Entry{}, apperror.New(apperror.KindUsersLimitReached, "available users limit reached")
	}

	id := r.nextID.Add(1) - 1
	u := &User{ID: id, Username: normalized, PasswordHash: hash, Status: status, Permissions: perms}
	r.insert(u)
	r.permissions.InitPermissionsForUser(id, perms)
	if r.metrics != nil {
		r.metrics.IncrementUsers(1)
	}

	entry, err := encodeEntry(metadatalog.KindCreateUser, callerUserID, createUserPayload{
		ID: id, Username: normalized, Password: hash, Status: status, Permissions: perms,
	})
	return u, entry, err
}

// DeleteUser removes a non-root user and evicts its client bindings.
// Eviction failure is fail-open: the user stays deleted and the error
// propagates, with no compensating rollback of the registry removal.
func (r *Registry) DeleteUser(ctx context.Context, callerUserID uint32, id identifier.Identifier) (*User, metadatalog.Entry, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, metadatalog.Entry{}, err
	}
	if err := r.permissions.DeleteUser(callerUserID); err != nil {
		return nil, metadatalog.Entry{}, err
	}

	r.mu.Lock()
	u, err := r.lookup(id)
	if err != nil {
		r.mu.Unlock()
		return nil, metadatalog.Entry{}, err
	}
	if u.IsRoot {
		r.mu.Unlock()
		return nil, metadatalog.Entry{}, apperror.Newf(apperror.KindCannotDeleteUser, "cannot delete the root user")
	}

	delete(r.byID, u.ID)
	delete(r.byUsername, u.Username)
	r.mu.Unlock()

	r.permissions.DeletePermissionsForUser(u.ID)

	entry, encErr := encodeEntry(metadatalog.KindDeleteUser, callerUserID, deleteUserPayload{ID: u.ID})

	if clientErr := r.clients.DeleteClientsForUser(ctx, u.ID); clientErr != nil {
		return u, entry, clientErr
	}
	if r.metrics != nil {
		r.metrics.DecrementUsers(1)
	}
	return u, entry, encErr
}

// UpdateUser changes username and/or status.
func (r *Registry) UpdateUser(callerUserID uint32, id identifier.Identifier, newUsername *string, newStatus *Status) (*User, metadatalog.Entry, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return nil, metadatalog.Entry{}, err
	}
	if err := r.permissions.UpdateUser(callerUserID); err != nil {
		return nil, metadatalog.Entry{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.lookup(id)
	if err != nil {
		return nil, metadatalog.Entry{}, err
	}

	var normalized *string
	if newUsername != nil {
		n := normalizeUsername(*newUsername)
		if existing, exists := r.byUsername[n]; exists && existing.ID != u.ID {
			return nil, metadatalog.Entry{}, apperror.Newf(apperror.KindUserAlreadyExists, "user %s already exists", n)
		}
		normalized = &n
	}

	if normalized != nil {
		delete(r.byUsername, u.Username)
		u.Username = *normalized
		r.byUsername[u.Username] = u
	}
	if newStatus != nil {
		u.Status = *newStatus
	}

	entry, err := encodeEntry(metadatalog.KindUpdateUser, callerUserID, updateUserPayload{ID: u.ID, Username: normalized, Status: newStatus})
	return u, entry, err
}

// UpdatePermissions replaces a non-root user's Permissions.
func (r *Registry) UpdatePermissions(callerUserID uint32, id identifier.Identifier, perms *permission.Permissions) (metadatalog.Entry, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return metadatalog.Entry{}, err
	}
	if err := r.permissions.UpdatePermissions(callerUserID); err != nil {
		return metadatalog.Entry{}, err
	}

	r.mu.Lock()
	u, err := r.lookup(id)
	if err != nil {
		r.mu.Unlock()
		return metadatalog.Entry{}, err
	}
	if u.IsRoot {
		r.mu.Unlock()
		return metadatalog.Entry{}, apperror.Newf(apperror.KindCannotChangePermissions, "cannot change the root user permissions")
	}
	u.Permissions = perms
	uID := u.ID
	r.mu.Unlock()

	r.permissions.UpdatePermissionsForUser(uID, perms)
	return encodeEntry(metadatalog.KindUpdatePermissions, callerUserID, updatePermissionsPayload{ID: uID, Permissions: perms})
}

// ChangePassword verifies currentPassword and sets newPassword. A caller
// changing their own password bypasses the change_password capability
// check entirely; changing someone else's requires it.
func (r *Registry) ChangePassword(callerUserID uint32, id identifier.Identifier, currentPassword, newPassword string) (metadatalog.Entry, error) {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return metadatalog.Entry{}, err
	}

	r.mu.RLock()
	u, err := r.lookup(id)
	r.mu.RUnlock()
	if err != nil {
		return metadatalog.Entry{}, err
	}

	if u.ID != callerUserID {
		if err := r.permissions.ChangePassword(callerUserID); err != nil {
			return metadatalog.Entry{}, err
		}
	}

	if !r.hasher.Verify(currentPassword, u.PasswordHash) {
		return metadatalog.Entry{}, apperror.New(apperror.KindInvalidCredentials, "invalid current password")
	}

	hash, err := r.hasher.Hash(newPassword)
	if err != nil {
		return metadatalog.Entry{}, err
	}

	r.mu.Lock()
	u.PasswordHash = hash
	r.mu.Unlock()

	return encodeEntry(metadatalog.KindChangePassword, callerUserID, changePasswordPayload{ID: u.ID, Password: hash})
}

// LoginUserWithCredentials verifies username/password and, when clientID is
// non-zero, binds the client to the resulting user id — logging out any
// session that was already authenticated first, so the newest login always
// wins. An unknown username and a wrong password are both reported as
// InvalidCredentials to avoid leaking which usernames exist.
func (r *Registry) LoginUserWithCredentials(ctx context.Context, username string, password *string, clientID, sessionUserID uint32) (*User, error) {
	r.mu.RLock()
	u, ok := r.byUsername[username]
	r.mu.RUnlock()
	if !ok {
		return nil, apperror.New(apperror.KindInvalidCredentials, "invalid credentials")
	}

	if !u.IsActive() {
		return nil, apperror.Newf(apperror.KindUserInactive, "user %s is inactive", u.Username)
	}

	if password != nil && !r.hasher.Verify(*password, u.PasswordHash) {
		return nil, apperror.New(apperror.KindInvalidCredentials, "invalid credentials")
	}

	if clientID == 0 {
		return u, nil
	}

	if sessionUserID != 0 {
		logger.Warn("user was already authenticated, removing the previous session", logger.UserID(sessionUserID))
		if err := r.Logout(ctx, sessionUserID, clientID); err != nil {
			return nil, err
		}
	}

	if err := r.clients.SetUserID(ctx, clientID, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout clears the session's client binding, if any.
func (r *Registry) Logout(ctx context.Context, callerUserID, clientID uint32) error {
	if err := ensureAuthenticated(callerUserID); err != nil {
		return err
	}
	if clientID > 0 {
		return r.clients.ClearUserID(ctx, clientID)
	}
	return nil
}
