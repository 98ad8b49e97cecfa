package directory

import (
	"testing"

	"github.com/hadoop835/iggy/pkg/apperror"
	"github.com/hadoop835/iggy/pkg/identifier"
	"github.com/hadoop835/iggy/pkg/permission"
)

const adminUserID = 1

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	perms := permission.New()
	perms.InitPermissionsForUser(adminUserID, &permission.Permissions{
		Global: permission.Global{ManageStreams: true, ReadStreams: true},
	})
	return New(perms)
}

func TestDirectory_CreateStream_AutoAssignsID(t *testing.T) {
	d := newTestDirectory(t)

	s, err := d.CreateStream(adminUserID, nil, "Orders")
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	if s.ID != 0 {
		t.Fatalf("CreateStream() ID = %d, want 0", s.ID)
	}
	if s.Name != "orders" {
		t.Fatalf("CreateStream() Name = %q, want lowercased", s.Name)
	}
}

func TestDirectory_CreateStream_DuplicateNameRejected(t *testing.T) {
	d := newTestDirectory(t)
	if _, err := d.CreateStream(adminUserID, nil, "orders"); err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	if _, err := d.CreateStream(adminUserID, nil, "Orders"); apperror.KindOf(err) != apperror.KindStreamAlreadyExists {
		t.Fatalf("CreateStream(duplicate) kind = %v, want StreamAlreadyExists", apperror.KindOf(err))
	}
}

func TestDirectory_CreateStream_RequiresManageStreamsPermission(t *testing.T) {
	d := newTestDirectory(t)
	perms := d.permissions
	perms.InitPermissionsForUser(2, &permission.Permissions{})

	if _, err := d.CreateStream(2, nil, "orders"); apperror.KindOf(err) != apperror.KindPermissionDenied {
		t.Fatalf("CreateStream() unprivileged kind = %v, want PermissionDenied", apperror.KindOf(err))
	}
}

func TestDirectory_CreateTopic_AllocatesContiguousPartitionIDs(t *testing.T) {
	d := newTestDirectory(t)
	s, err := d.CreateStream(adminUserID, nil, "orders")
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}

	topic, newIDs, err := d.CreateTopic(adminUserID, identifier.Numeric(s.ID), nil, "events", 3, nil, CompressionNone, nil, 0)
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	if len(topic.PartitionIDs) != 3 || topic.PartitionIDs[0] != 1 || topic.PartitionIDs[2] != 3 {
		t.Fatalf("CreateTopic() PartitionIDs = %v, want [1 2 3]", topic.PartitionIDs)
	}
	if len(newIDs) != 3 {
		t.Fatalf("CreateTopic() newIDs = %v, want 3 entries", newIDs)
	}
	if topic.ReplicationFactor != 1 {
		t.Fatalf("CreateTopic() ReplicationFactor = %d, want default 1", topic.ReplicationFactor)
	}
}

func TestDirectory_CreateTopic_DuplicateNameWithinStreamRejected(t *testing.T) {
	d := newTestDirectory(t)
	s, err := d.CreateStream(adminUserID, nil, "orders")
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	if _, _, err := d.CreateTopic(adminUserID, identifier.Numeric(s.ID), nil, "events", 1, nil, CompressionNone, nil, 0); err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}
	if _, _, err := d.CreateTopic(adminUserID, identifier.Numeric(s.ID), nil, "Events", 1, nil, CompressionNone, nil, 0); apperror.KindOf(err) != apperror.KindTopicAlreadyExists {
		t.Fatalf("CreateTopic(duplicate) kind = %v, want TopicAlreadyExists", apperror.KindOf(err))
	}
}

func TestDirectory_CreatePartitions_ContinuesFromMax(t *testing.T) {
	d := newTestDirectory(t)
	s, err := d.CreateStream(adminUserID, nil, "orders")
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	topic, _, err := d.CreateTopic(adminUserID, identifier.Numeric(s.ID), nil, "events", 2, nil, CompressionNone, nil, 0)
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	updated, newIDs, err := d.CreatePartitions(adminUserID, identifier.Numeric(s.ID), identifier.Numeric(topic.ID), 2)
	if err != nil {
		t.Fatalf("CreatePartitions() error = %v", err)
	}
	if len(newIDs) != 2 || newIDs[0] != 3 || newIDs[1] != 4 {
		t.Fatalf("CreatePartitions() newIDs = %v, want [3 4]", newIDs)
	}
	if len(updated.PartitionIDs) != 4 {
		t.Fatalf("CreatePartitions() PartitionIDs = %v, want 4 entries", updated.PartitionIDs)
	}
}

func TestDirectory_DeletePartitions_RejectsRemovingEveryPartition(t *testing.T) {
	d := newTestDirectory(t)
	s, err := d.CreateStream(adminUserID, nil, "orders")
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	topic, _, err := d.CreateTopic(adminUserID, identifier.Numeric(s.ID), nil, "events", 2, nil, CompressionNone, nil, 0)
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	if _, _, err := d.DeletePartitions(adminUserID, identifier.Numeric(s.ID), identifier.Numeric(topic.ID), 2); apperror.KindOf(err) != apperror.KindNoPartitions {
		t.Fatalf("DeletePartitions(all) kind = %v, want NoPartitions", apperror.KindOf(err))
	}
}

func TestDirectory_DeletePartitions_RemovesHighestNumbered(t *testing.T) {
	d := newTestDirectory(t)
	s, err := d.CreateStream(adminUserID, nil, "orders")
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	topic, _, err := d.CreateTopic(adminUserID, identifier.Numeric(s.ID), nil, "events", 3, nil, CompressionNone, nil, 0)
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	updated, removed, err := d.DeletePartitions(adminUserID, identifier.Numeric(s.ID), identifier.Numeric(topic.ID), 1)
	if err != nil {
		t.Fatalf("DeletePartitions() error = %v", err)
	}
	if len(removed) != 1 || removed[0] != 3 {
		t.Fatalf("DeletePartitions() removed = %v, want [3]", removed)
	}
	if len(updated.PartitionIDs) != 2 {
		t.Fatalf("DeletePartitions() PartitionIDs = %v, want 2 entries", updated.PartitionIDs)
	}
}

func TestDirectory_DeleteStream_CascadesTopics(t *testing.T) {
	d := newTestDirectory(t)
	s, err := d.CreateStream(adminUserID, nil, "orders")
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	if _, _, err := d.CreateTopic(adminUserID, identifier.Numeric(s.ID), nil, "events", 1, nil, CompressionNone, nil, 0); err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	if _, err := d.DeleteStream(adminUserID, identifier.Numeric(s.ID)); err != nil {
		t.Fatalf("DeleteStream() error = %v", err)
	}
	if _, err := d.GetStream(adminUserID, identifier.Numeric(s.ID)); apperror.KindOf(err) != apperror.KindResourceNotFound {
		t.Fatalf("GetStream(deleted) kind = %v, want ResourceNotFound", apperror.KindOf(err))
	}
}

func TestDirectory_UpdateTopic_RenormalizesAttributes(t *testing.T) {
	d := newTestDirectory(t)
	s, err := d.CreateStream(adminUserID, nil, "orders")
	if err != nil {
		t.Fatalf("CreateStream() error = %v", err)
	}
	topic, _, err := d.CreateTopic(adminUserID, identifier.Numeric(s.ID), nil, "events", 1, nil, CompressionNone, nil, 0)
	if err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	updated, err := d.UpdateTopic(adminUserID, identifier.Numeric(s.ID), identifier.Numeric(topic.ID), "Renamed", nil, CompressionZstd, nil, 3)
	if err != nil {
		t.Fatalf("UpdateTopic() error = %v", err)
	}
	if updated.Name != "renamed" || updated.CompressionAlgorithm != CompressionZstd || updated.ReplicationFactor != 3 {
		t.Fatalf("UpdateTopic() = %+v", updated)
	}
}
