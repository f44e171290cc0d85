package component

// PlayerTag marks the local player entity.
type PlayerTag struct{}

var PlayerTagComponent = NewComponent[PlayerTag]()
