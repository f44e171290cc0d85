package ecs

// intersect returns the entity ids present in every set. It walks the
// smallest set and probes the rest, so the result follows that set's order.
func intersect(sets ...*SparseSet) []int {
	if len(sets) == 0 {
		return nil
	}
	smallest := 0
	for i, s := range sets {
		if s == nil || len(s.denseEntities) == 0 {
			return nil
		}
		if len(s.denseEntities) < len(sets[smallest].denseEntities) {
			smallest = i
		}
	}

	out := make([]int, 0, len(sets[smallest].denseEntities))
next:
	for _, id := range sets[smallest].denseEntities {
		for i, s := range sets {
			if i != smallest && !s.Has(id) {
				continue next
			}
		}
		out = append(out, id)
	}
	return out
}
