package physics

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/milk9111/rigidworld/common"
	"github.com/milk9111/rigidworld/ecs"
)

type membership struct {
	region *Region
	obj    *CollisionObject
	ctrl   *CharacterController
}

// Simulation owns the region grid and which region each entity lives in.
//
// Lock order: region locks before mu, and two region locks in key order.
type Simulation struct {
	cfg Config

	mu      sync.RWMutex
	regions map[RegionKey]*Region
	members map[ecs.Entity]*membership
}

func NewSimulation(cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulation{
		cfg:     cfg,
		regions: make(map[RegionKey]*Region),
		members: make(map[ecs.Entity]*membership),
	}, nil
}

func (s *Simulation) Config() Config { return s.cfg }

func (s *Simulation) KeyFor(pos mgl64.Vec3) RegionKey {
	return KeyFor(pos, s.cfg.RegionSize)
}

// Region returns the region for key, creating it on first use.
func (s *Simulation) Region(key RegionKey) *Region {
	s.mu.RLock()
	r, ok := s.regions[key]
	s.mu.RUnlock()
	if ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.regions[key]; ok {
		return r
	}
	r = newRegion(key, s.cfg)
	s.regions[key] = r
	log.Printf("Simulation: created region %s", key)
	return r
}

// Regions returns every region ordered by key.
func (s *Simulation) Regions() []*Region {
	s.mu.RLock()
	out := make([]*Region, 0, len(s.regions))
	for _, r := range s.regions {
		out = append(out, r)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Region) int { return compareKeys(a.key, b.key) })
	return out
}

// RegionOf returns the region e currently belongs to, or nil.
func (s *Simulation) RegionOf(e ecs.Entity) *Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regionOf(e)
}

func (s *Simulation) regionOf(e ecs.Entity) *Region {
	if m := s.members[e]; m != nil {
		return m.region
	}
	return nil
}

// Place moves e into the region containing pos. A tracked collision object
// migrates between spaces with both regions locked.
func (s *Simulation) Place(e ecs.Entity, pos mgl64.Vec3) (*Region, error) {
	if !common.IsFiniteVec(pos) {
		return nil, fmt.Errorf("%w: place %s at %v", ErrInvalidArgument, e, pos)
	}
	target := s.Region(s.KeyFor(pos))

	m, unlock := s.lockEntity(e, target)
	defer unlock()
	if m.region == target {
		return target, nil
	}
	if m.region != nil && m.obj != nil {
		m.region.remove(m.obj, m.ctrl)
	}
	m.region = target
	if m.obj != nil {
		target.insert(m.obj, m.ctrl)
	}
	return target, nil
}

// Remove takes e out of its region. Its collision object stays tracked and
// rejoins a space on the next Place.
func (s *Simulation) Remove(e ecs.Entity) {
	m, unlock := s.lockEntity(e, nil)
	defer unlock()
	if m.region != nil && m.obj != nil {
		m.region.remove(m.obj, m.ctrl)
	}
	m.region = nil
}

// WithRegion runs fn holding the lock of the region e belongs to. Lookup and
// acquisition are atomic with respect to Place: if e migrates while the lock
// is being taken the lookup is retried.
func (s *Simulation) WithRegion(e ecs.Entity, op string, fn func(r *Region) error) error {
	for {
		s.mu.RLock()
		r := s.regionOf(e)
		s.mu.RUnlock()
		if r == nil {
			return &StateError{Op: op, Entity: e, Err: ErrNoRegion}
		}

		r.mu.Lock()
		s.mu.RLock()
		still := s.regionOf(e) == r
		s.mu.RUnlock()
		if !still {
			r.mu.Unlock()
			continue
		}
		defer r.mu.Unlock()
		return fn(r)
	}
}

// Step advances every region by dt, one goroutine per region.
func (s *Simulation) Step(ctx context.Context, dt float64) error {
	if dt <= 0 || !common.IsFinite(dt) {
		return fmt.Errorf("%w: step dt %v", ErrInvalidArgument, dt)
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range s.Regions() {
		r := r
		g.Go(func() error {
			if err := r.step(ctx, dt); err != nil {
				return fmt.Errorf("physics: step region %s: %w", r.key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Simulation) track(e ecs.Entity, obj *CollisionObject, ctrl *CharacterController) error {
	m, unlock := s.lockEntity(e, nil)
	defer unlock()
	if m.obj != nil {
		return &StateError{Op: "track", Entity: e, Err: ErrAlreadyAttached}
	}
	m.obj, m.ctrl = obj, ctrl
	if m.region != nil {
		m.region.insert(obj, ctrl)
	}
	return nil
}

func (s *Simulation) untrack(e ecs.Entity, obj *CollisionObject) {
	m, unlock := s.lockEntity(e, nil)
	defer unlock()
	if m.obj != obj {
		return
	}
	if m.region != nil {
		m.region.remove(m.obj, m.ctrl)
	}
	m.obj, m.ctrl = nil, nil
}

// lockEntity locks the region e is in, plus target when non-nil, and then mu
// for writing. It retries until the current region is stable. The returned
// func releases everything and drops empty memberships.
func (s *Simulation) lockEntity(e ecs.Entity, target *Region) (*membership, func()) {
	for {
		s.mu.RLock()
		cur := s.regionOf(e)
		s.mu.RUnlock()

		locked := lockOrder(cur, target)
		for _, r := range locked {
			r.mu.Lock()
		}
		s.mu.Lock()
		if s.regionOf(e) != cur {
			s.mu.Unlock()
			unlockAll(locked)
			continue
		}

		m := s.members[e]
		if m == nil {
			m = &membership{}
			s.members[e] = m
		}
		return m, func() {
			if m.region == nil && m.obj == nil {
				delete(s.members, e)
			}
			s.mu.Unlock()
			unlockAll(locked)
		}
	}
}

func lockOrder(a, b *Region) []*Region {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return []*Region{b}
	case b == nil || a == b:
		return []*Region{a}
	case b.key.less(a.key):
		return []*Region{b, a}
	}
	return []*Region{a, b}
}

func unlockAll(rs []*Region) {
	for i := len(rs) - 1; i >= 0; i-- {
		rs[i].mu.Unlock()
	}
}
