package shard

import (
	"testing"

	"github.com/hadoop835/iggy/pkg/identifier"
)

func TestRouter_RegisterThenLookup(t *testing.T) {
	r := NewRouter(4)
	ns := identifier.NewResourceNamespace(1, 1, 1)

	info := r.Register(ns)
	got, ok := r.Lookup(ns)
	if !ok {
		t.Fatal("Lookup() after Register() = not found")
	}
	if got != info {
		t.Fatalf("Lookup() = %+v, want %+v", got, info)
	}
	if info.ID >= 4 {
		t.Fatalf("Register() shard id = %d, want < 4", info.ID)
	}
}

func TestRouter_ShardOfIsPureAndStable(t *testing.T) {
	r := NewRouter(8)
	ns := identifier.NewResourceNamespace(2, 3, 4)

	a := r.ShardOf(ns)
	b := r.ShardOf(ns)
	if a != b {
		t.Fatalf("ShardOf() not stable: %+v != %+v", a, b)
	}
}

func TestRouter_UnregisterRemovesRow(t *testing.T) {
	r := NewRouter(4)
	ns := identifier.NewResourceNamespace(1, 1, 1)
	r.Register(ns)

	r.Unregister(ns)
	if _, ok := r.Lookup(ns); ok {
		t.Fatal("Lookup() after Unregister() = found, want not found")
	}
}

func TestRouter_LookupMissUnregisteredNamespace(t *testing.T) {
	r := NewRouter(4)
	if _, ok := r.Lookup(identifier.NewResourceNamespace(9, 9, 9)); ok {
		t.Fatal("Lookup() on never-registered namespace = found")
	}
}

func TestRouter_DistinctPartitionsCanLandOnDifferentShards(t *testing.T) {
	r := NewRouter(3)
	seen := make(map[uint16]bool)
	for partitionID := uint32(1); partitionID <= 9; partitionID++ {
		info := r.Register(identifier.NewResourceNamespace(1, 1, partitionID))
		seen[info.ID] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected partitions to spread across more than one shard, got %v", seen)
	}
}
