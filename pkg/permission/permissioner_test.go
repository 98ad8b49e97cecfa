package permission

import (
	"testing"

	"github.com/hadoop835/iggy/pkg/apperror"
)

func TestPermissioner_GlobalManageUsersAllowsUserOps(t *testing.T) {
	p := New()
	p.InitPermissionsForUser(1, &Permissions{Global: Global{ManageUsers: true}})

	if err := p.CreateUser(1); err != nil {
		t.Fatalf("CreateUser() = %v, want nil", err)
	}
	if err := p.DeleteUser(1); err != nil {
		t.Fatalf("DeleteUser() = %v, want nil", err)
	}
}

func TestPermissioner_DeniesWithoutGrant(t *testing.T) {
	p := New()
	p.InitPermissionsForUser(2, &Permissions{})

	err := p.CreateUser(2)
	if err == nil {
		t.Fatal("CreateUser() = nil, want PermissionDenied")
	}
	if apperror.KindOf(err) != apperror.KindPermissionDenied {
		t.Fatalf("CreateUser() kind = %v, want PermissionDenied", apperror.KindOf(err))
	}
}

func TestPermissioner_UnknownUserIsDenied(t *testing.T) {
	p := New()
	if err := p.AppendMessages(999, 1, 1); apperror.KindOf(err) != apperror.KindPermissionDenied {
		t.Fatalf("AppendMessages() for unknown user kind = %v, want PermissionDenied", apperror.KindOf(err))
	}
}

func TestPermissioner_StreamOverlayGrantsAppend(t *testing.T) {
	p := New()
	p.InitPermissionsForUser(3, &Permissions{
		Streams: map[uint32]Stream{
			10: {AppendMessages: true},
		},
	})

	if err := p.AppendMessages(3, 10, 5); err != nil {
		t.Fatalf("AppendMessages() in granted stream = %v, want nil", err)
	}
	if err := p.AppendMessages(3, 11, 5); apperror.KindOf(err) != apperror.KindPermissionDenied {
		t.Fatalf("AppendMessages() in ungranted stream kind = %v, want PermissionDenied", apperror.KindOf(err))
	}
}

func TestPermissioner_TopicOverlayIsNarrowerThanStream(t *testing.T) {
	p := New()
	p.InitPermissionsForUser(4, &Permissions{
		Streams: map[uint32]Stream{
			10: {
				Topics: map[uint32]Topic{
					1: {PollMessages: true},
				},
			},
		},
	})

	if err := p.PollMessages(4, 10, 1); err != nil {
		t.Fatalf("PollMessages() on granted topic = %v, want nil", err)
	}
	if err := p.PollMessages(4, 10, 2); apperror.KindOf(err) != apperror.KindPermissionDenied {
		t.Fatalf("PollMessages() on ungranted topic kind = %v, want PermissionDenied", apperror.KindOf(err))
	}
}

func TestPermissioner_DeleteAndUpdateInvalidateCache(t *testing.T) {
	p := New()
	p.InitPermissionsForUser(5, &Permissions{Global: Global{ManageUsers: true}})

	if err := p.CreateUser(5); err != nil {
		t.Fatalf("CreateUser() before update = %v, want nil", err)
	}

	p.UpdatePermissionsForUser(5, &Permissions{})
	if err := p.CreateUser(5); apperror.KindOf(err) != apperror.KindPermissionDenied {
		t.Fatalf("CreateUser() after revoking kind = %v, want PermissionDenied", apperror.KindOf(err))
	}

	p.DeletePermissionsForUser(5)
	if err := p.CreateUser(5); apperror.KindOf(err) != apperror.KindPermissionDenied {
		t.Fatalf("CreateUser() after delete kind = %v, want PermissionDenied", apperror.KindOf(err))
	}
}
