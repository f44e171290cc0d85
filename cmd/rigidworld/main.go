package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/rigidworld/ecs"
	"github.com/milk9111/rigidworld/ecs/component"
	"github.com/milk9111/rigidworld/ecs/entity"
	"github.com/milk9111/rigidworld/physics"
	"github.com/milk9111/rigidworld/prefabs"
)

type options struct {
	configPath string
	prefabDir  string
	watch      bool
	ticks      int
	spawn      string
	legacy     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "simulation config yaml (built in defaults when empty)")
	flag.StringVar(&opts.prefabDir, "prefabs", "prefabs", "directory whose prefab files override the embedded ones")
	flag.BoolVar(&opts.watch, "watch", false, "reload prefabs when files in -prefabs change")
	flag.IntVar(&opts.ticks, "ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	flag.StringVar(&opts.spawn, "spawn", "crate,ball,pillar", "comma separated prefabs to drop next to the player")
	flag.BoolVar(&opts.legacy, "legacy-restitution", false, "apply prefab Restitution through the mass setter")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts options) error {
	cfg := physics.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := physics.LoadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cfg.FloorY == nil {
		floor := 0.0
		cfg.FloorY = &floor
	}

	sim, err := physics.NewSimulation(cfg)
	if err != nil {
		return err
	}
	world := ecs.NewWorld()
	world.AddSystem(physics.NewSystem(sim))
	env := entity.NewEnvironment(world, sim)
	env.Options.LegacyRestitutionAsMass = opts.legacy

	prefabs.Dir = opts.prefabDir
	lib := prefabs.NewLibrary(entity.Validator(env.Shapes))
	if err := lib.LoadAll(); err != nil {
		log.Printf("rigidworld: some prefabs failed to load: %v", err)
	}
	log.Printf("rigidworld: prefabs %v", lib.Names())

	player, ctrl, err := spawnLevel(env, lib, opts.spawn)
	if err != nil {
		return err
	}

	var reloads <-chan string
	if opts.watch {
		watcher, err := prefabs.NewWatcher(opts.prefabDir)
		if err != nil {
			log.Printf("rigidworld: prefab watcher disabled: %v", err)
		} else {
			defer watcher.Close()
			reloads = watcher.Events
		}
	}

	ticker := time.NewTicker(cfg.TickDuration())
	defer ticker.Stop()

	for tick := 0; opts.ticks == 0 || tick < opts.ticks; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case name, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			if _, err := lib.Reload(name); err != nil {
				log.Printf("rigidworld: reload %s: %v", name, err)
			}
		case <-ticker.C:
			drive(ctrl, tick, cfg.TickRate)
			world.Update()
			tick++
			if tick%cfg.TickRate == 0 {
				report(world, sim, player, ctrl, tick)
			}
		}
	}
	return nil
}

func spawnLevel(env *entity.Environment, lib *prefabs.Library, spawn string) (ecs.Entity, *physics.PlayerController, error) {
	playerPrefab, err := entity.FromLibrary(lib, "player")
	if err != nil {
		return 0, nil, err
	}
	player, ctrl, err := entity.NewPlayerAt(env, playerPrefab, mgl64.Vec3{2, 3, 0})
	if err != nil {
		return 0, nil, err
	}

	home := env.Sim.Region(env.Sim.KeyFor(mgl64.Vec3{2, 3, 0}))
	if err := home.AddStaticBox(mgl64.Vec3{12, 0.25, 0}, mgl64.Vec3{1, 0.25, 1}); err != nil {
		return 0, nil, err
	}

	for i, name := range strings.Split(spawn, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		prefab, err := entity.FromLibrary(lib, name)
		if err != nil {
			return 0, nil, err
		}
		pos := mgl64.Vec3{float64(5 + 2*i), 6, 0}
		if _, err := prefab.CreateEntityAt(env, pos); err != nil {
			return 0, nil, fmt.Errorf("spawn %s: %w", name, err)
		}
	}
	return player, ctrl, nil
}

// drive walks the player back and forth and hops every other second.
func drive(ctrl *physics.PlayerController, tick, rate int) {
	speed := 2.0
	if (tick/(rate*4))%2 == 1 {
		speed = -speed
	}
	v, err := ctrl.LinearVelocity()
	if err != nil {
		log.Printf("rigidworld: player velocity: %v", err)
		return
	}
	if err := ctrl.SetLinearVelocity(mgl64.Vec3{speed, v.Y(), 0}); err != nil {
		log.Printf("rigidworld: drive player: %v", err)
	}
	if tick%(rate*2) == 0 {
		if _, err := ctrl.Jump(4); err != nil {
			log.Printf("rigidworld: jump: %v", err)
		}
	}
}

func report(w *ecs.World, sim *physics.Simulation, player ecs.Entity, ctrl *physics.PlayerController, tick int) {
	dirty := 0
	ecs.ForEach(w, component.NetworkSyncComponent.Kind(), func(_ ecs.Entity, ns *component.NetworkSync) {
		if ns.ConsumePositionDirty() {
			dirty++
		}
	})
	events := w.Events().Drain()
	ground, _ := ctrl.OnGround()
	snap := ctrl.Snapshot()
	log.Printf("rigidworld: tick %d player %v at %.2f ground=%t regions=%d events=%d dirty=%d",
		tick, player, snap.Position, ground, len(sim.Regions()), len(events), dirty)
}
