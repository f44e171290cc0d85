package component

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// NetworkSync tracks what remote observers need to resynchronize.
type NetworkSync struct {
	ID            uuid.UUID
	positionDirty atomic.Bool
}

func NewNetworkSync() *NetworkSync {
	return &NetworkSync{ID: uuid.New()}
}

// SetPositionDirty flags the position for the next network flush.
func (n *NetworkSync) SetPositionDirty() {
	n.positionDirty.Store(true)
}

func (n *NetworkSync) PositionDirty() bool {
	return n.positionDirty.Load()
}

// ConsumePositionDirty clears the flag and reports whether it was set.
func (n *NetworkSync) ConsumePositionDirty() bool {
	return n.positionDirty.Swap(false)
}

var NetworkSyncComponent = NewComponent[NetworkSync]()
