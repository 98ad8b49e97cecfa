package permission

import (
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/hadoop835/iggy/internal/logger"
	"github.com/hadoop835/iggy/pkg/apperror"
)

// Permissioner is the authoritative authorization oracle. It holds the
// per-user Permissions map and exposes one predicate per protected
// operation; no other component is allowed to interpret a Permissions
// value directly.
type Permissioner struct {
	mu      sync.RWMutex
	byUser  map[uint32]*Permissions
	effects *ristretto.Cache[uint32, *Permissions]
}

// New builds a Permissioner with an empty user set. The effective-
// permission cache is a pure performance overlay: a miss recomputes from
// byUser, so a construction failure there degrades to uncached lookups
// rather than failing the whole engine.
func New() *Permissioner {
	cache, err := ristretto.NewCache(&ristretto.Config[uint32, *Permissions]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		logger.Warn("permission effective-vector cache disabled", logger.Err(err))
		cache = nil
	}
	return &Permissioner{
		byUser:  make(map[uint32]*Permissions),
		effects: cache,
	}
}

// InitPermissionsForUser registers (or replaces) the Permissions for
// userID. A nil perms means the user holds no grants, so every check
// denies.
func (p *Permissioner) InitPermissionsForUser(userID uint32, perms *Permissions) {
	p.mu.Lock()
	p.byUser[userID] = perms
	p.mu.Unlock()
	p.invalidate(userID)
}

// UpdatePermissionsForUser replaces userID's Permissions and invalidates
// its cached effective vector.
func (p *Permissioner) UpdatePermissionsForUser(userID uint32, perms *Permissions) {
	p.InitPermissionsForUser(userID, perms)
}

// DeletePermissionsForUser forgets userID entirely.
func (p *Permissioner) DeletePermissionsForUser(userID uint32) {
	p.mu.Lock()
	delete(p.byUser, userID)
	p.mu.Unlock()
	p.invalidate(userID)
}

func (p *Permissioner) invalidate(userID uint32) {
	if p.effects != nil {
		p.effects.Del(userID)
	}
}

// permissionsFor returns the Permissions for userID, consulting the
// effective-vector cache first.
func (p *Permissioner) permissionsFor(userID uint32) *Permissions {
	if p.effects != nil {
		if v, ok := p.effects.Get(userID); ok {
			return v
		}
	}

	p.mu.RLock()
	perms := p.byUser[userID]
	p.mu.RUnlock()
	if perms == nil {
		perms = &Permissions{}
	}

	if p.effects != nil {
		p.effects.Set(userID, perms, 1)
	}
	return perms
}

func denied(op string) error {
	return apperror.Newf(apperror.KindPermissionDenied, "user lacks permission for %s", op)
}

// CreateUser authorizes create_user.
func (p *Permissioner) CreateUser(userID uint32) error {
	if p.permissionsFor(userID).Global.ManageUsers {
		return nil
	}
	return denied("create_user")
}

// DeleteUser authorizes delete_user.
func (p *Permissioner) DeleteUser(userID uint32) error {
	if p.permissionsFor(userID).Global.ManageUsers {
		return nil
	}
	return denied("delete_user")
}

// UpdateUser authorizes update_user.
func (p *Permissioner) UpdateUser(userID uint32) error {
	if p.permissionsFor(userID).Global.ManageUsers {
		return nil
	}
	return denied("update_user")
}

// UpdatePermissions authorizes update_permissions.
func (p *Permissioner) UpdatePermissions(userID uint32) error {
	if p.permissionsFor(userID).Global.ManageUsers {
		return nil
	}
	return denied("update_permissions")
}

// ChangePassword authorizes change_password of a user other than the
// caller; a user changing their own password bypasses this check entirely
// at the call site and never reaches the Permissioner.
func (p *Permissioner) ChangePassword(userID uint32) error {
	if p.permissionsFor(userID).Global.ManageUsers {
		return nil
	}
	return denied("change_password")
}

// GetUser authorizes get_user.
func (p *Permissioner) GetUser(userID uint32) error {
	perms := p.permissionsFor(userID)
	if perms.Global.ReadUsers || perms.Global.ManageUsers {
		return nil
	}
	return denied("get_user")
}

// GetUsers authorizes get_users.
func (p *Permissioner) GetUsers(userID uint32) error {
	return p.GetUser(userID)
}

// CreateStream authorizes create_stream.
func (p *Permissioner) CreateStream(userID uint32) error {
	if p.permissionsFor(userID).Global.ManageStreams {
		return nil
	}
	return denied("create_stream")
}

// DeleteStream authorizes delete_stream/update_stream for streamID.
func (p *Permissioner) DeleteStream(userID, streamID uint32) error {
	if p.permissionsFor(userID).canManageStream(streamID) {
		return nil
	}
	return denied("delete_stream")
}

// UpdateStream authorizes update_stream for streamID.
func (p *Permissioner) UpdateStream(userID, streamID uint32) error {
	if p.permissionsFor(userID).canManageStream(streamID) {
		return nil
	}
	return denied("update_stream")
}

// GetStream authorizes get_stream/get_streams for streamID.
func (p *Permissioner) GetStream(userID, streamID uint32) error {
	if p.permissionsFor(userID).canReadStream(streamID) {
		return nil
	}
	return denied("get_stream")
}

// CreateTopic authorizes create_topic within streamID.
func (p *Permissioner) CreateTopic(userID, streamID uint32) error {
	if p.permissionsFor(userID).canManageStream(streamID) {
		return nil
	}
	return denied("create_topic")
}

// UpdateTopic authorizes update_topic.
func (p *Permissioner) UpdateTopic(userID, streamID, topicID uint32) error {
	if p.permissionsFor(userID).canManageTopic(streamID, topicID) {
		return nil
	}
	return denied("update_topic")
}

// DeleteTopic authorizes delete_topic.
func (p *Permissioner) DeleteTopic(userID, streamID, topicID uint32) error {
	if p.permissionsFor(userID).canManageTopic(streamID, topicID) {
		return nil
	}
	return denied("delete_topic")
}

// PurgeTopic authorizes purge_topic.
func (p *Permissioner) PurgeTopic(userID, streamID, topicID uint32) error {
	if p.permissionsFor(userID).canManageTopic(streamID, topicID) {
		return nil
	}
	return denied("purge_topic")
}

// GetTopic authorizes get_topic/get_topics.
func (p *Permissioner) GetTopic(userID, streamID, topicID uint32) error {
	if p.permissionsFor(userID).canReadTopic(streamID, topicID) {
		return nil
	}
	return denied("get_topic")
}

// PollMessages authorizes poll_messages against (streamID, topicID).
func (p *Permissioner) PollMessages(userID, streamID, topicID uint32) error {
	if p.permissionsFor(userID).canPollMessages(streamID, topicID) {
		return nil
	}
	return denied("poll_messages")
}

// AppendMessages authorizes append_messages against (streamID, topicID).
func (p *Permissioner) AppendMessages(userID, streamID, topicID uint32) error {
	if p.permissionsFor(userID).canAppendMessages(streamID, topicID) {
		return nil
	}
	return denied("append_messages")
}
