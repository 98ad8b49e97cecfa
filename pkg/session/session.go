// Package session tracks which user id a connected client has authenticated
// as. The mapping is deliberately tiny: it exists so the engine can resolve
// "the user behind this request" without every collaborator threading a
// *user.User through every call, and so a disconnect or a fresh login can
// evict stale bindings.
package session

import (
	"context"
	"sync"

	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/user"
)

var _ user.ClientManager = (*ClientManager)(nil)

// ClientManager binds connected client ids to the user id each one
// authenticated as, and tracks which consumer groups exist per topic so a
// deleted topic can be scrubbed from every client's group memberships. It
// satisfies user.ClientManager.
type ClientManager struct {
	mu       sync.RWMutex
	byClient map[uint32]uint32
	groups   map[topicKey]struct{}
}

type topicKey struct {
	streamID uint32
	topicID  uint32
}

// NewClientManager builds an empty ClientManager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		byClient: make(map[uint32]uint32),
		groups:   make(map[topicKey]struct{}),
	}
}

// SetUserID binds clientID to userID, overwriting any previous binding. The
// caller (pkg/user.Registry.LoginUserWithCredentials) is responsible for
// clearing a prior session before calling this, so last-login-wins.
func (m *ClientManager) SetUserID(_ context.Context, clientID, userID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byClient[clientID] = userID
	return nil
}

// ClearUserID removes clientID's binding, if any. Clearing an unbound or
// already-disconnected client id is not an error: logout and disconnect can
// race, and both must be safe to call redundantly.
func (m *ClientManager) ClearUserID(_ context.Context, clientID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byClient, clientID)
	return nil
}

// DeleteClientsForUser drops every binding pointing at userID, used when a
// user is deleted out from under its active sessions.
func (m *ClientManager) DeleteClientsForUser(_ context.Context, userID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for clientID, boundUserID := range m.byClient {
		if boundUserID == userID {
			delete(m.byClient, clientID)
		}
	}
	return nil
}

// UserID resolves clientID's bound user id. It returns NotAuthenticated if
// the client has never logged in or has since been logged out.
func (m *ClientManager) UserID(clientID uint32) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.byClient[clientID]
	if !ok {
		return 0, apperror.New(apperror.KindNotAuthenticated, "no authenticated user bound to this client")
	}
	return userID, nil
}

// ClientCount reports how many clients are currently bound to a user,
// mainly for diagnostics and tests.
func (m *ClientManager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byClient)
}

// DeleteConsumerGroupsForTopic drops every consumer group tracked against
// (streamID, topicID). Called when a topic is deleted so no client is left
// believing it still belongs to a group whose topic no longer exists.
// Deleting a topic with no tracked groups is not an error.
func (m *ClientManager) DeleteConsumerGroupsForTopic(_ context.Context, streamID, topicID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, topicKey{streamID: streamID, topicID: topicID})
	return nil
}
