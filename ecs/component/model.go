package component

// Model references the visual asset drawn for an entity.
type Model struct {
	ID string
}

var ModelComponent = NewComponent[Model]()
