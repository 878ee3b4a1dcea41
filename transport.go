package instrulink

import "time"

// Transport is the raw byte stream beneath a Link: a serial port, a
// raw-socket connection to a LAN instrument, or a test fake. A Link
// owns its Transport exclusively; nothing else may read or write it
// while the Link is connected.
//
// Timeout convention: Read blocks until at least one byte arrives or
// the timeout set by SetReadTimeout expires, and reports expiry as an
// error satisfying errors.Is(err, ErrReadTimeout) with n == 0. It
// never reports expiry as (0, nil); buffered readers treat that as no
// progress and give up with an unrelated error.
type Transport interface {
	// Read fills p with available bytes, blocking up to the read timeout.
	Read(p []byte) (int, error)

	// Write sends p, bounded by the configured write timeout where the
	// binding supports one. A short write is an error.
	Write(p []byte) (int, error)

	// SetReadTimeout bounds subsequent Read calls.
	SetReadTimeout(d time.Duration) error

	// FlushInput discards bytes received but not yet read.
	FlushInput() error

	// FlushOutput discards bytes written but not yet transmitted.
	FlushOutput() error

	// Close releases the endpoint. Safe to call more than once.
	Close() error
}

// Driver opens and enumerates endpoints for one kind of Transport.
// The serial driver is the default; TCPDriver covers LAN instruments.
// Injecting a Driver is also how tests simulate a bench full of
// instruments without hardware.
type Driver interface {
	// Open establishes a Transport on the named endpoint using the
	// link parameters in cfg.
	Open(endpoint string, cfg Config) (Transport, error)

	// Enumerate lists candidate endpoints in host-reported order.
	Enumerate() ([]string, error)
}
