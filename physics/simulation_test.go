package physics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
)

func TestKeyFor(t *testing.T) {
	cases := []struct {
		name string
		pos  mgl64.Vec3
		want RegionKey
	}{
		{"origin", mgl64.Vec3{}, RegionKey{}},
		{"inside_first", mgl64.Vec3{255.9, 1, 1}, RegionKey{}},
		{"next_cell", mgl64.Vec3{256, 512, 0}, RegionKey{1, 2, 0}},
		{"negative", mgl64.Vec3{-0.5, -256, -257}, RegionKey{-1, -1, -2}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := KeyFor(c.pos, 256); got != c.want {
				t.Fatalf("expected %v, got %v", c.want, got)
			}
		})
	}
}

func TestPlaceMigratesBody(t *testing.T) {
	sim := newTestSimulation(t, nil)
	w := ecs.NewWorld()
	e, b := spawnBody(t, sim, w, mgl64.Vec3{10, 10, 0})
	if err := b.SetCollisionShape(Sphere{Radius: 1}); err != nil {
		t.Fatalf("SetCollisionShape: %v", err)
	}
	obj := b.CollisionObject()
	from := sim.RegionOf(e)

	to, err := sim.Place(e, mgl64.Vec3{300, 10, 0})
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if to == from || sim.RegionOf(e) != to {
		t.Fatalf("expected entity to move to a new region")
	}

	contains := func(r *Region) (body, shape bool) {
		_ = r.Do(func(space *cp.Space) error {
			body = space.ContainsBody(obj.Body())
			shape = space.ContainsShape(obj.Shapes()[0])
			return nil
		})
		return body, shape
	}
	if body, shape := contains(from); body || shape {
		t.Fatalf("old region still holds the body")
	}
	if body, shape := contains(to); !body || !shape {
		t.Fatalf("new region does not hold the body")
	}
	if len(sim.Regions()) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(sim.Regions()))
	}

	again, err := sim.Place(e, mgl64.Vec3{301, 11, 0})
	if err != nil || again != to {
		t.Fatalf("placing inside the same region should be a no-op, got %v (%v)", again, err)
	}
}

func TestWithRegionRemovedEntity(t *testing.T) {
	sim := newTestSimulation(t, nil)
	e := ecs.Entity(42)

	err := sim.WithRegion(e, "probe", func(*Region) error { return nil })
	if !errors.Is(err, ErrIllegalState) {
		t.Fatalf("expected ErrIllegalState for unknown entity, got %v", err)
	}

	if _, err := sim.Place(e, mgl64.Vec3{1, 2, 3}); err != nil {
		t.Fatalf("Place: %v", err)
	}
	called := false
	if err := sim.WithRegion(e, "probe", func(r *Region) error {
		called = r.Key() == RegionKey{}
		return nil
	}); err != nil || !called {
		t.Fatalf("expected fn to run in region (0,0,0), err %v", err)
	}

	sim.Remove(e)
	err = sim.WithRegion(e, "probe", func(*Region) error { return nil })
	var stateErr *StateError
	if !errors.As(err, &stateErr) || stateErr.Op != "probe" || stateErr.Entity != e {
		t.Fatalf("expected StateError naming op and entity, got %v", err)
	}
	if sim.RegionOf(e) != nil {
		t.Fatalf("expected no region after Remove")
	}
}

func TestWithRegionPropagatesError(t *testing.T) {
	sim := newTestSimulation(t, nil)
	e := ecs.Entity(7)
	if _, err := sim.Place(e, mgl64.Vec3{}); err != nil {
		t.Fatalf("Place: %v", err)
	}
	want := errors.New("boom")
	if err := sim.WithRegion(e, "op", func(*Region) error { return want }); !errors.Is(err, want) {
		t.Fatalf("expected fn error, got %v", err)
	}
	// The lock must have been released.
	if err := sim.WithRegion(e, "op", func(*Region) error { return nil }); err != nil {
		t.Fatalf("second WithRegion: %v", err)
	}
}

func TestConcurrentAccessDuringMigration(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) { c.Gravity = mgl64.Vec3{} })
	w := ecs.NewWorld()
	_, b := spawnBody(t, sim, w, mgl64.Vec3{10, 10, 0})
	if err := b.SetCollisionShape(Sphere{Radius: 0.5}); err != nil {
		t.Fatalf("SetCollisionShape: %v", err)
	}

	positions := []mgl64.Vec3{{10, 10, 0}, {300, 10, 0}, {-10, 600, 0}}
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if _, err := sim.Place(b.owner, positions[i%len(positions)]); err != nil {
				t.Errorf("Place: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := b.SetFriction(float64(i%10) / 10); err != nil {
				t.Errorf("SetFriction: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if err := sim.Step(context.Background(), 1.0/60); err != nil {
				t.Errorf("Step: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	region := sim.RegionOf(b.owner)
	inSpace := false
	_ = region.Do(func(space *cp.Space) error {
		inSpace = space.ContainsBody(b.CollisionObject().Body())
		return nil
	})
	if !inSpace {
		t.Fatalf("body should live in the region its entity is placed in")
	}
}

func TestStepAdvancesEveryRegion(t *testing.T) {
	sim := newTestSimulation(t, nil)
	for i, pos := range []mgl64.Vec3{{0, 0, 0}, {512, 0, 0}, {0, 0, 1024}} {
		if _, err := sim.Place(ecs.Entity(i+1), pos); err != nil {
			t.Fatalf("Place: %v", err)
		}
	}
	stepN(t, sim, 3)
	for _, r := range sim.Regions() {
		if r.Ticks() != 3 {
			t.Fatalf("region %v stepped %d times, want 3", r.Key(), r.Ticks())
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Step(ctx, 1.0/60); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := sim.Step(context.Background(), 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for zero dt, got %v", err)
	}
}

func TestAttachAfterPlacementJoinsSpace(t *testing.T) {
	sim := newTestSimulation(t, nil)
	w := ecs.NewWorld()
	e := spawnAt(t, w, mgl64.Vec3{5, 5, 0})
	b := NewDynamicBody(sim)
	if err := Attach(w, e, b); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if b.CollisionObject().Space() != nil {
		t.Fatalf("unplaced entity must not be in a space")
	}
	if _, err := b.Mass(); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("expected illegal state before placement, got %v", err)
	}

	if _, err := sim.Place(e, mgl64.Vec3{5, 5, 0}); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if b.CollisionObject().Space() == nil {
		t.Fatalf("placing should insert the tracked body")
	}
	if m, err := b.Mass(); err != nil || m != 1 {
		t.Fatalf("expected default mass 1, got %v (%v)", m, err)
	}
}

func TestSystemSyncsTransformAndMigrates(t *testing.T) {
	sim := newTestSimulation(t, func(c *Config) { c.Gravity = mgl64.Vec3{} })
	w := ecs.NewWorld()
	e, b := spawnBody(t, sim, w, mgl64.Vec3{250, 10, 4})
	if err := b.SetLinearVelocity(mgl64.Vec3{60, 0, 0}); err != nil {
		t.Fatalf("SetLinearVelocity: %v", err)
	}
	w.AddSystem(NewSystem(sim))
	w.Events().Drain()

	for i := 0; i < 10; i++ {
		w.Update()
	}

	tr, _ := ecs.Get(w, e, component.TransformComponent.Kind())
	if !approx(tr.Position.X(), 260, 1e-6) || tr.Position.Z() != 4 {
		t.Fatalf("expected transform synced to x=260 z=4, got %v", tr.Position)
	}
	if got := sim.RegionOf(e).Key(); got != (RegionKey{1, 0, 0}) {
		t.Fatalf("expected migration to (1,0,0), got %v", got)
	}
	var migrated bool
	for _, ev := range w.Events().Drain() {
		if ev.Type == ecs.EventMigrated {
			data := ev.Data.(MigrateEvent)
			migrated = data.Entity == e && data.From == RegionKey{} && data.To == RegionKey{1, 0, 0}
		}
	}
	if !migrated {
		t.Fatalf("expected a migrate event")
	}
}

func TestParseConfig(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name: "defaults",
			yaml: "",
			check: func(t *testing.T, c Config) {
				if c.TickRate != 60 || c.RegionSize != 256 || c.FloorY != nil {
					t.Fatalf("unexpected defaults %+v", c)
				}
			},
		},
		{
			name: "overrides",
			yaml: "gravity: [0, -20, 0]\ntick_rate: 30\nfloor_y: -2\ncontroller:\n  max_fall_speed: 10\n",
			check: func(t *testing.T, c Config) {
				if c.Gravity != (mgl64.Vec3{0, -20, 0}) || c.TickRate != 30 {
					t.Fatalf("overrides not applied: %+v", c)
				}
				if c.FloorY == nil || *c.FloorY != -2 {
					t.Fatalf("expected floor at -2")
				}
				if c.Controller.MaxFallSpeed != 10 || c.Controller.MaxIterations != 4 {
					t.Fatalf("unexpected controller config %+v", c.Controller)
				}
				if c.TickDuration().Milliseconds() != 33 {
					t.Fatalf("unexpected tick duration %v", c.TickDuration())
				}
			},
		},
		{name: "bad_region_size", yaml: "region_size: 0", wantErr: true},
		{name: "bad_damping", yaml: "damping: 2", wantErr: true},
		{name: "malformed", yaml: "tick_rate: [", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(c.yaml))
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfig: %v", err)
			}
			c.check(t, cfg)
		})
	}
}
