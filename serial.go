package instrulink

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.bug.st/serial"
)

// serialDriver binds Transport to local serial ports via go.bug.st/serial.
type serialDriver struct{}

var _ Driver = serialDriver{}

func (serialDriver) Open(endpoint string, cfg Config) (Transport, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   convertParity(cfg.Parity),
		StopBits: convertStopBits(cfg.StopBits),
	}
	if !cfg.DTR || !cfg.RTS {
		// Drivers assert both lines on open by default; only override
		// when the caller asked for something else.
		mode.InitialStatusBits = &serial.ModemOutputBits{
			RTS: cfg.RTS,
			DTR: cfg.DTR,
		}
	}

	port, err := serial.Open(endpoint, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", endpoint, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", endpoint, err)
	}
	return &serialTransport{port: port}, nil
}

func (serialDriver) Enumerate() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}

func convertParity(p Parity) serial.Parity {
	switch p {
	case ParityOdd:
		return serial.OddParity
	case ParityEven:
		return serial.EvenParity
	case ParityMark:
		return serial.MarkParity
	case ParitySpace:
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

func convertStopBits(bits int) serial.StopBits {
	if bits == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}

// serialPort is the subset of go.bug.st/serial.Port the transport
// uses, separated so tests can stand in for the hardware.
type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	SetReadTimeout(d time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
	Close() error
}

// serialTransport adapts a go.bug.st/serial port to the Transport
// contract. The library reports a read timeout as (0, nil); callers
// of Transport expect ErrReadTimeout instead.
type serialTransport struct {
	mu     sync.Mutex
	port   serialPort
	closed bool
}

var _ Transport = (*serialTransport)(nil)

func (t *serialTransport) Read(p []byte) (int, error) {
	n, err := t.port.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrReadTimeout
	}
	return n, nil
}

func (t *serialTransport) Write(p []byte) (int, error) {
	// Serial writes land in the kernel buffer; the write timeout is a
	// contract for bindings that can enforce one, this one cannot.
	return t.port.Write(p)
}

func (t *serialTransport) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		d = time.Millisecond
	}
	return t.port.SetReadTimeout(d)
}

func (t *serialTransport) FlushInput() error {
	return t.port.ResetInputBuffer()
}

func (t *serialTransport) FlushOutput() error {
	return t.port.ResetOutputBuffer()
}

func (t *serialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.port.Close()
}
