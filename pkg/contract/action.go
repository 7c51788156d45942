// Package contract builds typed wiring between a privileged main process and
// sandboxed renderer processes from a declarative table of named actions.
// One contract yields four surfaces: bridge exposure for the boundary layer,
// handler registration and per-window senders for the main side, and a
// caller plus push subscriptions for the renderer side. The package never
// logs and never retries; failure policy belongs to the application.
package contract

// Kind distinguishes the two action cardinalities.
type Kind string

const (
	// KindOneWay marks a fire-and-forget action with no result.
	KindOneWay Kind = "one_way"
	// KindTwoWay marks a request/response action.
	KindTwoWay Kind = "two_way"
)

// Action is one named operation declared in an API table.
type Action interface {
	Name() string
	Kind() Kind
}

// OneWay declares a fire-and-forget action. The type parameter carries the
// argument shape at compile time only; a descriptor holds no payload.
type OneWay[A any] struct {
	name string
}

// NewOneWay declares a one-way action under the given name.
func NewOneWay[A any](name string) OneWay[A] {
	return OneWay[A]{name: name}
}

func (a OneWay[A]) Name() string {
	return a.name
}

func (a OneWay[A]) Kind() Kind {
	return KindOneWay
}

// TwoWay declares a request/response action. The type parameters carry the
// argument and result shapes at compile time only.
type TwoWay[A, R any] struct {
	name string
}

// NewTwoWay declares a two-way action under the given name.
func NewTwoWay[A, R any](name string) TwoWay[A, R] {
	return TwoWay[A, R]{name: name}
}

func (a TwoWay[A, R]) Name() string {
	return a.name
}

func (a TwoWay[A, R]) Kind() Kind {
	return KindTwoWay
}
