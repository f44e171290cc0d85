package physics

import (
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Config holds simulation-wide settings shared by every region.
type Config struct {
	Gravity    mgl64.Vec3       `yaml:"gravity"`
	Iterations int              `yaml:"iterations"`
	RegionSize float64          `yaml:"region_size"`
	TickRate   int              `yaml:"tick_rate"`
	Damping    float64          `yaml:"damping"`
	FloorY     *float64         `yaml:"floor_y"`
	Controller ControllerConfig `yaml:"controller"`
}

// ControllerConfig tunes the kinematic character controller.
type ControllerConfig struct {
	MaxFallSpeed     float64 `yaml:"max_fall_speed"`
	MaxIterations    int     `yaml:"max_iterations"`
	MinGroundNormalY float64 `yaml:"min_ground_normal_y"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:    mgl64.Vec3{0, -9.81, 0},
		Iterations: 20,
		RegionSize: 256,
		TickRate:   60,
		Damping:    1,
		Controller: ControllerConfig{
			MaxFallSpeed:     55,
			MaxIterations:    4,
			MinGroundNormalY: 0.7,
		},
	}
}

// ParseConfig decodes YAML over DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("physics: unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("physics: load config %s: %w", path, err)
	}
	return ParseConfig(data)
}

func (c Config) Validate() error {
	switch {
	case c.RegionSize <= 0:
		return fmt.Errorf("%w: region_size must be positive, got %v", ErrInvalidArgument, c.RegionSize)
	case c.TickRate <= 0:
		return fmt.Errorf("%w: tick_rate must be positive, got %d", ErrInvalidArgument, c.TickRate)
	case c.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidArgument, c.Iterations)
	case c.Damping < 0 || c.Damping > 1:
		return fmt.Errorf("%w: damping must be in [0,1], got %v", ErrInvalidArgument, c.Damping)
	case c.Controller.MaxIterations <= 0:
		return fmt.Errorf("%w: controller.max_iterations must be positive", ErrInvalidArgument)
	case c.Controller.MaxFallSpeed <= 0:
		return fmt.Errorf("%w: controller.max_fall_speed must be positive", ErrInvalidArgument)
	}
	return nil
}

// TickDuration is the wall-clock length of one simulation tick.
func (c Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// StepSize is the simulated seconds advanced per tick.
func (c Config) StepSize() float64 {
	return 1 / float64(c.TickRate)
}
