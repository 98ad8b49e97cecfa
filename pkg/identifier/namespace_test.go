package identifier

import "testing"

func TestResourceNamespace_HashIsStable(t *testing.T) {
	ns := NewResourceNamespace(1, 1, 1)
	h1 := ns.Hash()
	h2 := NewResourceNamespace(1, 1, 1).Hash()
	if h1 != h2 {
		t.Fatalf("hash not stable across equal namespaces: %d != %d", h1, h2)
	}
}

func TestResourceNamespace_HashChangesWithInputs(t *testing.T) {
	base := NewResourceNamespace(1, 1, 1).Hash()

	variants := []ResourceNamespace{
		NewResourceNamespace(2, 1, 1),
		NewResourceNamespace(1, 2, 1),
		NewResourceNamespace(1, 1, 2),
	}
	for _, v := range variants {
		if v.Hash() == base {
			t.Fatalf("expected distinct hash for %+v", v)
		}
	}
}

func TestResourceNamespace_ShardOfIsPureFunctionOfInputs(t *testing.T) {
	ns := NewResourceNamespace(7, 3, 2)
	liveShards := uint64(4)

	shardOf := func(ns ResourceNamespace, shards uint64) uint64 {
		return ns.Hash() % shards
	}

	s1 := shardOf(ns, liveShards)
	s2 := shardOf(ns, liveShards)
	if s1 != s2 {
		t.Fatalf("shard_of is not stable: %d != %d", s1, s2)
	}
}
