package entity

import (
	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
	"github.com/milk9111/rigidworld/physics"
)

type buildContext struct {
	env    *Environment
	prefab string
}

type componentBuildFn func(w *ecs.World, e ecs.Entity, ctx *buildContext) error

var componentRegistry = map[string]componentBuildFn{
	"player_tag":     addPlayerTag,
	"network_sync":   addNetworkSync,
	"model":          addModel,
	"physics":        addPhysics,
	"player_physics": addPlayerPhysics,
}

// ComponentNames lists every name a prefab may put in its component list.
func ComponentNames() []string {
	out := make([]string, 0, len(componentRegistry))
	for name := range componentRegistry {
		out = append(out, name)
	}
	return out
}

func addPlayerTag(w *ecs.World, e ecs.Entity, _ *buildContext) error {
	return ecs.Add(w, e, component.PlayerTagComponent.Kind(), &component.PlayerTag{})
}

func addNetworkSync(w *ecs.World, e ecs.Entity, _ *buildContext) error {
	_, err := ecs.GetOrAdd(w, e, component.NetworkSyncComponent.Kind(), component.NewNetworkSync)
	return err
}

func newModel() *component.Model { return &component.Model{} }

func addModel(w *ecs.World, e ecs.Entity, _ *buildContext) error {
	_, err := ecs.GetOrAdd(w, e, component.ModelComponent.Kind(), newModel)
	return err
}

func dynamicBody(sim *physics.Simulation) func() *physics.Physics {
	return func() *physics.Physics {
		return &physics.Physics{Object: physics.NewDynamicBody(sim)}
	}
}

func addPhysics(w *ecs.World, e ecs.Entity, ctx *buildContext) error {
	_, err := ecs.GetOrAdd(w, e, physics.PhysicsComponent.Kind(), dynamicBody(ctx.env.Sim))
	return err
}

func addPlayerPhysics(w *ecs.World, e ecs.Entity, ctx *buildContext) error {
	return physics.Attach(w, e, physics.NewPlayerController(ctx.env.Sim))
}
