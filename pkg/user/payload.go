package user

import (
	"encoding/json"

	"github.com/hadoop835/iggy/pkg/metadatalog"
	"github.com/hadoop835/iggy/pkg/permission"
)

// Metadata log payloads are JSON-encoded: a self-describing encoding over a
// bespoke byte layout, matching how structured rows are persisted elsewhere
// in this codebase (through GORM struct tags rather than hand-rolled binary
// framing).

type createUserPayload struct {
	ID          uint32                  `json:"id"`
	Username    string                  `json:"username"`
	Password    string                  `json:"password_hash"`
	Status      Status                  `json:"status"`
	Permissions *permission.Permissions `json:"permissions,omitempty"`
}

type updateUserPayload struct {
	ID       uint32  `json:"id"`
	Username *string `json:"username,omitempty"`
	Status   *Status `json:"status,omitempty"`
}

type deleteUserPayload struct {
	ID uint32 `json:"id"`
}

type updatePermissionsPayload struct {
	ID          uint32                  `json:"id"`
	Permissions *permission.Permissions `json:"permissions,omitempty"`
}

type changePasswordPayload struct {
	ID       uint32 `json:"id"`
	Password string `json:"password_hash"`
}

func encodeEntry(kind metadatalog.MetadataEntryKind, userID uint32, payload any) (metadatalog.Entry, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return metadatalog.Entry{}, err
	}
	return metadatalog.Entry{Kind: kind, UserID: userID, Payload: b}, nil
}
