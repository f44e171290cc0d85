package physics

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
)

func float64Ptr(f float64) *float64 {
	return &f
}

func newTestSimulation(t *testing.T, mutate func(*Config)) *Simulation {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	sim, err := NewSimulation(cfg)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	return sim
}

func spawnAt(t *testing.T, w *ecs.World, pos mgl64.Vec3) ecs.Entity {
	t.Helper()
	e := w.CreateEntity()
	tr := component.NewTransform(pos)
	if err := ecs.Add(w, e, component.TransformComponent.Kind(), &tr); err != nil {
		t.Fatalf("add transform: %v", err)
	}
	return e
}

// spawnBody creates an entity at pos, places it, and attaches a dynamic body.
func spawnBody(t *testing.T, sim *Simulation, w *ecs.World, pos mgl64.Vec3) (ecs.Entity, *DynamicBody) {
	t.Helper()
	e := spawnAt(t, w, pos)
	if _, err := sim.Place(e, pos); err != nil {
		t.Fatalf("Place: %v", err)
	}
	b := NewDynamicBody(sim)
	if err := Attach(w, e, b); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return e, b
}

func stepN(t *testing.T, sim *Simulation, n int) {
	t.Helper()
	dt := sim.Config().StepSize()
	for i := 0; i < n; i++ {
		if err := sim.Step(context.Background(), dt); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
