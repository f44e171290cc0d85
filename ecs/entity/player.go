package entity

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
	"github.com/milk9111/rigidworld/physics"
)

// NewPlayerAt spawns the local player from prefab at pos. The prefab must
// produce a player tagged entity driven by a player controller.
func NewPlayerAt(env *Environment, prefab *EntityPrefab, pos mgl64.Vec3) (ecs.Entity, *physics.PlayerController, error) {
	e, err := prefab.CreateEntityAt(env, pos)
	if err != nil {
		return 0, nil, fmt.Errorf("player: %w", err)
	}
	obj, _ := physics.ObjectOf(env.World, e)
	ctrl, ok := obj.(*physics.PlayerController)
	if !ok || !ecs.Has(env.World, e, component.PlayerTagComponent.Kind()) {
		Destroy(env, e)
		return 0, nil, fmt.Errorf("player: prefab %q does not build a player controller", prefab.Name())
	}
	return e, ctrl, nil
}
