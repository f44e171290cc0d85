package physics

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
)

func TestDefaultShapesResolve(t *testing.T) {
	cases := []struct {
		name   string
		kind   string
		bounds []float64
		want   Shape
	}{
		{"sphere", "sphere", []float64{2}, Sphere{Radius: 2}},
		{"box_two", "box", []float64{1, 2}, Box{HalfExtents: mgl64.Vec3{1, 2, 1}}},
		{"box_three", "Box", []float64{1, 2, 3}, Box{HalfExtents: mgl64.Vec3{1, 2, 3}}},
		{"capsule", "capsule", []float64{0.5, 2}, Capsule{Radius: 0.5, Height: 2}},
		{"cylinder", " cylinder ", []float64{1, 4}, Cylinder{Radius: 1, Height: 4}},
	}

	shapes := DefaultShapes()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := shapes.Build(c.kind, c.bounds...)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got != c.want {
				t.Fatalf("expected %#v, got %#v", c.want, got)
			}
		})
	}
}

func TestShapeRegistryErrors(t *testing.T) {
	cases := []struct {
		name   string
		kind   string
		bounds []float64
		want   error
	}{
		{"unknown_kind", "torus", []float64{1}, ErrUnknownShape},
		{"wrong_arity", "sphere", []float64{1, 2}, ErrNoConstructor},
		{"no_bounds", "capsule", nil, ErrNoConstructor},
		{"negative_radius", "sphere", []float64{-1}, ErrInvalidArgument},
		{"zero_height", "capsule", []float64{1, 0}, ErrInvalidArgument},
	}

	shapes := DefaultShapes()
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := shapes.Build(c.kind, c.bounds...)
			if !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestShapeRegistryDuplicate(t *testing.T) {
	r := NewShapeRegistry()
	if err := Register2(r, "capsule", NewCapsule); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register2(r, "CAPSULE", NewCapsule); !errors.Is(err, ErrDuplicateShape) {
		t.Fatalf("expected ErrDuplicateShape, got %v", err)
	}
	if err := Register1(r, "capsule", func(h float64) (Capsule, error) { return NewCapsule(h/4, h) }); err != nil {
		t.Fatalf("different arity should register: %v", err)
	}
	if got := r.Arities("capsule"); !slices.Equal(got, []int{1, 2}) {
		t.Fatalf("expected arities [1 2], got %v", got)
	}
	if err := Register1(r, "", NewSphere); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty kind, got %v", err)
	}
}

func TestCapsuleDimensionsOrder(t *testing.T) {
	ctor, err := DefaultShapes().Resolve("capsule", 2)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	s, err := ctor([]float64{0.25, 1.5})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if got := s.Dimensions(); !slices.Equal(got, []float64{0.25, 1.5}) {
		t.Fatalf("expected dimensions [0.25 1.5], got %v", got)
	}
	if _, err := ctor([]float64{1}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected arity guard, got %v", err)
	}
}

func TestCompoundMoment(t *testing.T) {
	a, _ := NewSphere(1)
	b, _ := NewSphere(1)
	c, err := NewCompound(
		ChildShape{Offset: mgl64.Vec3{-1, 0, 0}, Shape: a},
		ChildShape{Offset: mgl64.Vec3{1, 0, 0}, Shape: b},
	)
	if err != nil {
		t.Fatalf("NewCompound: %v", err)
	}
	// Each child gets half the mass: 2 * (1*0.5 + 1*1) = 3.
	if got := c.moment(2, cp.Vector{}); !approx(got, 3, 1e-9) {
		t.Fatalf("expected moment 3, got %v", got)
	}
	if _, err := NewCompound(); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected error for empty compound, got %v", err)
	}
}
