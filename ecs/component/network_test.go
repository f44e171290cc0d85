package component

import (
	"testing"

	"github.com/google/uuid"
)

func TestNetworkSyncDirtyFlag(t *testing.T) {
	n := NewNetworkSync()
	if n.ID == uuid.Nil {
		t.Fatalf("expected a network id")
	}
	if n.PositionDirty() {
		t.Fatalf("new sync must start clean")
	}
	n.SetPositionDirty()
	if !n.PositionDirty() {
		t.Fatalf("expected dirty after SetPositionDirty")
	}
	if !n.ConsumePositionDirty() {
		t.Fatalf("expected consume to report dirty")
	}
	if n.ConsumePositionDirty() {
		t.Fatalf("expected flag to be cleared")
	}
}

func TestComponentKindsAreDistinct(t *testing.T) {
	ids := map[ComponentID]string{}
	for name, id := range map[string]ComponentID{
		"transform": TransformComponent.Kind().ID(),
		"model":     ModelComponent.Kind().ID(),
		"player":    PlayerTagComponent.Kind().ID(),
		"network":   NetworkSyncComponent.Kind().ID(),
	} {
		if prev, ok := ids[id]; ok {
			t.Fatalf("%s and %s share id %d", name, prev, id)
		}
		if id == 0 {
			t.Fatalf("%s has an invalid id", name)
		}
		ids[id] = name
	}
}
