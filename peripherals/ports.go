package peripherals

import "sync/atomic"

// SmartPort is exclusive use of one smart port. Exactly one live handle per
// port number exists at any time; device wrappers hold the handle for their
// lifetime and Close it when destroyed, returning the claim.
//
// Handles are never copied by value; pass the pointer or transfer it.
type SmartPort struct {
	number   int
	registry *Registry
	closed   atomic.Bool
}

// Number returns the physical port number (1..21).
func (p *SmartPort) Number() int { return p.number }

// Close releases the claim. Closing an already closed handle is a no-op, so
// a double Close can never release someone else's later claim on the same
// number.
func (p *SmartPort) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.registry.releaseSmart(p.number)
	}
	return nil
}

// AdiPort is exclusive use of one three-wire ADI port, either on the
// controller itself or behind an ADI expander.
type AdiPort struct {
	number   int
	registry *Registry    // set for onboard ports
	expander *AdiExpander // set for expander-backed ports
	closed   atomic.Bool
}

// Number returns the ADI port number (1..8).
func (p *AdiPort) Number() int { return p.number }

// Letter returns the conventional port letter ('A'..'H').
func (p *AdiPort) Letter() byte { return byte('A' + p.number - 1) }

// Expander returns the expander this port sits behind, or nil for an
// onboard port.
func (p *AdiPort) Expander() *AdiExpander { return p.expander }

// Close releases the claim back to the owning namespace. Idempotent.
func (p *AdiPort) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		if p.expander != nil {
			p.expander.releaseAdi(p.number)
		} else {
			p.registry.releaseAdi(p.number)
		}
	}
	return nil
}
