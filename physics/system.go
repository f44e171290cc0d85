package physics

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
)

// MigrateEvent is the payload of ecs.EventMigrated.
type MigrateEvent struct {
	Entity ecs.Entity
	From   RegionKey
	To     RegionKey
}

// System steps the simulation once per update and copies the result back
// into the world on the calling goroutine.
type System struct {
	sim    *Simulation
	dt     float64
	errors atomic.Int64
}

func NewSystem(sim *Simulation) *System {
	return &System{sim: sim, dt: sim.Config().StepSize()}
}

// Errors reports how many failures the system has logged.
func (s *System) Errors() int64 { return s.errors.Load() }

func (s *System) Update(w *ecs.World) {
	if s == nil || s.sim == nil || w == nil {
		return
	}
	if err := s.sim.Step(context.Background(), s.dt); err != nil {
		s.fail("step", err)
	}

	ecs.ForEach(w, PhysicsComponent.Kind(), func(e ecs.Entity, p *Physics) {
		if p.Object == nil {
			return
		}
		if err := p.CopySnapshot(); err != nil {
			// Entities outside every region are parked, not broken.
			if !errors.Is(err, ErrNoRegion) {
				s.fail("copy snapshot", err)
			}
			return
		}
		snap := p.Snapshot()
		if tr, ok := ecs.Get(w, e, component.TransformComponent.Kind()); ok {
			tr.Position = snap.Position
			tr.Rotation = snap.Rotation
		}

		from := s.sim.RegionOf(e)
		if from == nil || from.Key() == s.sim.KeyFor(snap.Position) {
			return
		}
		to, err := s.sim.Place(e, snap.Position)
		if err != nil {
			s.fail("migrate", err)
			return
		}
		w.Events().Push(ecs.Event{
			Type: ecs.EventMigrated,
			Data: MigrateEvent{Entity: e, From: from.Key(), To: to.Key()},
		})
	})
}

func (s *System) fail(op string, err error) {
	s.errors.Add(1)
	log.Printf("PhysicsSystem: %s: %v", op, err)
}
