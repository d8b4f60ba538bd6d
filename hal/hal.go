// Package hal declares the foreign hardware-access surface: fallible,
// possibly-briefly-blocking operations keyed by integer port number. The
// runtime core treats it as opaque; device error codes pass through to
// device-wrapper callers unchanged and uninterpreted.
package hal

import "fmt"

// Errno is a kernel error code reported by the hardware-access layer.
type Errno int

const (
	ENXIO      Errno = 6  // no device plugged into the port
	EACCES     Errno = 13 // port claimed by another subsystem at the kernel level
	ENODEV     Errno = 19 // device present but of the wrong type
	EADDRINUSE Errno = 98 // port busy with an in-flight operation
	EAGAIN     Errno = 11 // transient, retry
)

func (e Errno) String() string {
	switch e {
	case ENXIO:
		return "ENXIO"
	case EACCES:
		return "EACCES"
	case ENODEV:
		return "ENODEV"
	case EADDRINUSE:
		return "EADDRINUSE"
	case EAGAIN:
		return "EAGAIN"
	default:
		return fmt.Sprintf("errno(%d)", int(e))
	}
}

// PortError is a hardware fault on a specific port. The core never
// interprets it; callers decide what an errno means for their device.
type PortError struct {
	Port  int
	Errno Errno
}

func (e *PortError) Error() string {
	return fmt.Sprintf("hal: port %d: %s", e.Port, e.Errno)
}

// DeviceBus is the raw register access surface. Implementations may block
// for microseconds and fail with *PortError.
type DeviceBus interface {
	// ReadWord reads one device register on the given port.
	ReadWord(port, register int) (int32, error)

	// WriteWord writes one device register on the given port.
	WriteWord(port, register int, value int32) error
}
