package ecs

import "sync"

type Scheduler struct {
	mu      sync.Mutex
	systems []System
}

func NewScheduler(systems ...System) *Scheduler {
	copied := append([]System(nil), systems...)
	return &Scheduler{systems: copied}
}

func (s *Scheduler) Add(system System) {
	if system == nil {
		return
	}
	s.mu.Lock()
	s.systems = append(s.systems, system)
	s.mu.Unlock()
}

func (s *Scheduler) Update(w *World) {
	for _, system := range s.Systems() {
		system.Update(w)
	}
}

func (s *Scheduler) Systems() []System {
	s.mu.Lock()
	defer s.mu.Unlock()
	systems := make([]System, 0, len(s.systems))
	return append(systems, s.systems...)
}
