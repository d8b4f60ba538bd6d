package peripherals

import (
	"errors"
	"sync/atomic"
)

// ErrPeripheralsTaken is returned by TakePeripherals after the first
// successful take.
var ErrPeripheralsTaken = errors.New("peripherals: peripherals already taken")

// Peripherals is the complete set of the controller's port handles, claimed
// in one shot at program start. Code that knows its wiring at compile time
// takes this once and moves individual handles into device wrappers; code
// that discovers ports at run time claims through Default() instead.
type Peripherals struct {
	SmartPorts [SmartPortCount]*SmartPort // index 0 is port 1
	AdiPorts   [AdiPortCount]*AdiPort     // index 0 is port A
}

var peripheralsTaken atomic.Bool

// TakePeripherals claims every port of the default registry and returns the
// full handle set. A second call fails with ErrPeripheralsTaken. Individual
// handles may still be Closed to return their ports to the registry for
// dynamic claiming.
func TakePeripherals() (*Peripherals, error) {
	if !peripheralsTaken.CompareAndSwap(false, true) {
		return nil, ErrPeripheralsTaken
	}

	reg := Default()
	p := &Peripherals{}
	for i := 1; i <= SmartPortCount; i++ {
		h, err := reg.TakeSmartPort(i)
		if err != nil {
			// A dynamic claim got there first; undo everything.
			p.release()
			peripheralsTaken.Store(false)
			return nil, err
		}
		p.SmartPorts[i-1] = h
	}
	for i := 1; i <= AdiPortCount; i++ {
		h, err := reg.TakeAdiPort(i)
		if err != nil {
			p.release()
			peripheralsTaken.Store(false)
			return nil, err
		}
		p.AdiPorts[i-1] = h
	}
	return p, nil
}

func (p *Peripherals) release() {
	for _, h := range p.SmartPorts {
		if h != nil {
			h.Close()
		}
	}
	for _, h := range p.AdiPorts {
		if h != nil {
			h.Close()
		}
	}
}
