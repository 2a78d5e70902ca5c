// Package registry implements the default-if-absent provisioning discipline
// used by the tracekit bootstrap: for every role in the tracing pipeline,
// exactly one instance exists per process. A host application may register
// its own instance for any role, in which case the bootstrap's default
// factory for that role is never invoked.
package registry

import (
	"fmt"
	"sync"
)

// Slot holds the process-wide singleton for one provisioned role. The zero
// value is ready to use. All methods are safe for concurrent use, although
// provisioning normally happens single-threaded at startup.
type Slot[T any] struct {
	mu         sync.Mutex
	role       string
	value      T
	registered bool
	provided   bool
}

// NewSlot creates a slot for the named role. The role name appears in
// duplicate-registration errors.
func NewSlot[T any](role string) *Slot[T] {
	return &Slot[T]{role: role}
}

// Register installs a host-supplied instance for this role. Registering a
// second instance, or registering after the default has already been
// provided, is an application configuration error reported to the caller —
// never resolved silently.
func (s *Slot[T]) Register(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registered {
		return fmt.Errorf("duplicate registration for role %q: an instance is already registered", s.role)
	}
	if s.provided {
		return fmt.Errorf("late registration for role %q: the default instance has already been provisioned", s.role)
	}

	s.value = v
	s.registered = true
	return nil
}

// Provide returns the instance for this role. If the host registered one,
// that instance is returned and factory is never invoked. Otherwise factory
// runs exactly once and its result becomes the singleton; later calls return
// the memoized value without re-running the factory.
func (s *Slot[T]) Provide(factory func() (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registered || s.provided {
		return s.value, nil
	}

	v, err := factory()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to provision role %q: %w", s.role, err)
	}

	s.value = v
	s.provided = true
	return v, nil
}

// Registered reports whether the host supplied its own instance.
func (s *Slot[T]) Registered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registered
}

// Get returns the current instance and whether one exists yet.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.registered || s.provided
}
