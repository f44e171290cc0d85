package ecs

// entityStore tracks entity generations and free ids.
type entityStore struct {
	gens  []generation
	free  []entityID
	alive int
}

func (s *entityStore) create() Entity {
	var id entityID
	if len(s.free) > 0 {
		id = s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
	} else {
		s.gens = append(s.gens, 0)
		id = entityID(len(s.gens))
	}
	s.alive++
	return makeEntity(id, s.gens[id-1])
}

func (s *entityStore) destroy(e Entity) bool {
	if !s.isAlive(e) {
		return false
	}
	s.gens[e.id()-1]++
	s.free = append(s.free, e.id())
	s.alive--
	return true
}

func (s *entityStore) isAlive(e Entity) bool {
	id := e.id()
	if id == 0 || int(id) > len(s.gens) {
		return false
	}
	return s.gens[id-1] == e.generation()
}

// current returns the live handle for id.
func (s *entityStore) current(id int) Entity {
	return makeEntity(entityID(id), s.gens[id-1])
}
