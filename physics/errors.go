package physics

import (
	"errors"
	"fmt"

	"github.com/milk9111/rigidworld/ecs"
)

var (
	// ErrIllegalState marks precondition violations: no region, wrong owner,
	// unattached component. Callers should not retry.
	ErrIllegalState = errors.New("physics: illegal state")
	// ErrUnsupported marks operations a physics variant never supports.
	ErrUnsupported = errors.New("physics: unsupported operation")

	ErrNoRegion        = errors.New("physics: entity has no region")
	ErrNotAttached     = errors.New("physics: component not attached")
	ErrAlreadyAttached = errors.New("physics: component already attached")
	ErrNoSimulation    = errors.New("physics: component has no simulation")
	ErrNotPlayer       = errors.New("physics: cannot attach player physics to a non player")
	ErrInvalidArgument = errors.New("physics: invalid argument")
	ErrUnknownShape    = errors.New("physics: unknown shape")
	ErrNoConstructor   = errors.New("physics: no shape constructor for bounds")
	ErrDuplicateShape  = errors.New("physics: shape constructor already registered")
)

// StateError is a precondition failure for one operation on one entity.
// It matches both ErrIllegalState and its cause.
type StateError struct {
	Op     string
	Entity ecs.Entity
	Err    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("physics: %s on entity %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StateError) Unwrap() []error {
	return []error{ErrIllegalState, e.Err}
}

// UnsupportedError reports an operation outside a variant's capabilities.
type UnsupportedError struct {
	Variant string
	Op      string
	Reason  string
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("physics: %s does not support %s", e.Variant, e.Op)
	}
	return fmt.Sprintf("physics: %s does not support %s: %s", e.Variant, e.Op, e.Reason)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupported
}

func invalidArgument(op string, args ...any) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, op)
	}
	return fmt.Errorf("%w: %s %v", ErrInvalidArgument, op, args)
}
