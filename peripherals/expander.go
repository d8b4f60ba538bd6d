package peripherals

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChildPortsOpen is returned when closing an expander that still has live
// child port handles.
var ErrChildPortsOpen = errors.New("peripherals: expander has open child ports")

// AdiExpander multiplexes eight additional ADI ports behind one smart port.
// It consumes the smart port handle, so the wire to the expander cannot be
// claimed by another driver, and runs its own independent claim namespace
// for the child ports.
type AdiExpander struct {
	port *SmartPort

	mu   sync.Mutex
	adi  [AdiPortCount + 1]bool
	open int
}

// NewAdiExpander takes ownership of port and exposes its ADI namespace.
func NewAdiExpander(port *SmartPort) *AdiExpander {
	return &AdiExpander{port: port}
}

// SmartPortNumber returns the number of the smart port the expander sits on.
func (e *AdiExpander) SmartPortNumber() int { return e.port.Number() }

// TakeAdiPort claims child ADI port number (1..8). The claim discipline is
// identical to the registry's: at most one live handle per child port.
func (e *AdiExpander) TakeAdiPort(number int) (*AdiPort, error) {
	if number < 1 || number > AdiPortCount {
		return nil, fmt.Errorf("%w: adi port %d", ErrInvalidPort, number)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.adi[number] {
		return nil, fmt.Errorf("%w: expander adi port %d", ErrPortInUse, number)
	}
	e.adi[number] = true
	e.open++
	return &AdiPort{number: number, expander: e}, nil
}

// AdiPortClaimed reports whether the child port currently has a live handle.
func (e *AdiExpander) AdiPortClaimed(number int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return number >= 1 && number <= AdiPortCount && e.adi[number]
}

func (e *AdiExpander) releaseAdi(number int) {
	e.mu.Lock()
	e.adi[number] = false
	e.open--
	e.mu.Unlock()
}

// Close releases the underlying smart port. All child handles must be closed
// first; otherwise they would keep addressing a wire the registry considers
// free.
func (e *AdiExpander) Close() error {
	e.mu.Lock()
	open := e.open
	e.mu.Unlock()
	if open > 0 {
		return fmt.Errorf("%w: %d still open", ErrChildPortsOpen, open)
	}
	return e.port.Close()
}
