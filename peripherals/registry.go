// Package peripherals tracks ownership of the controller's physical ports.
//
// Hardware ports are a scarce, externally shared resource: two drivers
// issuing commands to the same wire corrupt each other. The Registry is the
// single source of truth for which ports are claimed; it hands out exclusive
// handles whose Close returns the port to the unclaimed set.
package peripherals

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// SmartPortCount is the number of smart ports on the controller (1..21).
	SmartPortCount = 21

	// AdiPortCount is the number of three-wire ADI ports (1..8, "A".."H"),
	// both on the controller itself and behind each ADI expander.
	AdiPortCount = 8
)

var (
	// ErrPortInUse is returned when the requested port already has a live
	// handle. The registry state is left untouched.
	ErrPortInUse = errors.New("peripherals: port already in use")

	// ErrInvalidPort is returned for port numbers outside the hardware's
	// numbering.
	ErrInvalidPort = errors.New("peripherals: invalid port number")
)

// Registry tracks the claimed state of one port namespace. Claims may be
// attempted from any goroutine, including contexts outside any executor, so
// the claimed-set is guarded by a short-held mutex rather than a
// cooperative-only guard.
//
// The zero Registry is not usable; create one with NewRegistry or use the
// process-wide Default registry.
type Registry struct {
	mu    sync.Mutex
	smart [SmartPortCount + 1]bool // index 0 unused
	adi   [AdiPortCount + 1]bool
}

// NewRegistry returns a registry with every port unclaimed.
func NewRegistry() *Registry {
	return &Registry{}
}

// TakeSmartPort claims smart port number (1..21) and returns its exclusive
// handle. Fails with ErrPortInUse if a live handle exists for it.
func (r *Registry) TakeSmartPort(number int) (*SmartPort, error) {
	if number < 1 || number > SmartPortCount {
		return nil, fmt.Errorf("%w: smart port %d", ErrInvalidPort, number)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.smart[number] {
		return nil, fmt.Errorf("%w: smart port %d", ErrPortInUse, number)
	}
	r.smart[number] = true
	return &SmartPort{number: number, registry: r}, nil
}

// TakeAdiPort claims onboard ADI port number (1..8) and returns its
// exclusive handle. Fails with ErrPortInUse if a live handle exists for it.
func (r *Registry) TakeAdiPort(number int) (*AdiPort, error) {
	if number < 1 || number > AdiPortCount {
		return nil, fmt.Errorf("%w: adi port %d", ErrInvalidPort, number)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adi[number] {
		return nil, fmt.Errorf("%w: adi port %d", ErrPortInUse, number)
	}
	r.adi[number] = true
	return &AdiPort{number: number, registry: r}, nil
}

// SmartPortClaimed reports whether the smart port currently has a live handle.
func (r *Registry) SmartPortClaimed(number int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return number >= 1 && number <= SmartPortCount && r.smart[number]
}

// AdiPortClaimed reports whether the onboard ADI port currently has a live
// handle.
func (r *Registry) AdiPortClaimed(number int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return number >= 1 && number <= AdiPortCount && r.adi[number]
}

func (r *Registry) releaseSmart(number int) {
	r.mu.Lock()
	r.smart[number] = false
	r.mu.Unlock()
}

func (r *Registry) releaseAdi(number int) {
	r.mu.Lock()
	r.adi[number] = false
	r.mu.Unlock()
}

// =============================================================================
// Process-wide default registry
// =============================================================================

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry describing the controller's own
// ports. Dynamic, run-time determined claims go through it directly;
// TakePeripherals consumes it wholesale.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}
