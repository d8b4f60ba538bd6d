package hal

import "sync"

// SimBus is an in-memory DeviceBus for tests and off-robot simulation.
// Registers read back what was written; ports can be failed with a fixed
// errno to exercise fault paths.
type SimBus struct {
	mu     sync.Mutex
	regs   map[[2]int]int32
	failed map[int]Errno
}

// NewSimBus returns an empty simulated bus.
func NewSimBus() *SimBus {
	return &SimBus{
		regs:   make(map[[2]int]int32),
		failed: make(map[int]Errno),
	}
}

// FailPort makes every operation on port fail with errno until RestorePort.
func (b *SimBus) FailPort(port int, errno Errno) {
	b.mu.Lock()
	b.failed[port] = errno
	b.mu.Unlock()
}

// RestorePort clears an injected failure.
func (b *SimBus) RestorePort(port int) {
	b.mu.Lock()
	delete(b.failed, port)
	b.mu.Unlock()
}

func (b *SimBus) ReadWord(port, register int) (int32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if errno, ok := b.failed[port]; ok {
		return 0, &PortError{Port: port, Errno: errno}
	}
	return b.regs[[2]int{port, register}], nil
}

func (b *SimBus) WriteWord(port, register int, value int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if errno, ok := b.failed[port]; ok {
		return &PortError{Port: port, Errno: errno}
	}
	b.regs[[2]int{port, register}] = value
	return nil
}
