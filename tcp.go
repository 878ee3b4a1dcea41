package instrulink

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// TCPDriver returns a Driver for LAN instruments that speak their
// line protocol over a raw socket (the fixed-port convention of LXI
// instruments, e.g. "10.0.0.17:5025"). Enumerate reports the given
// endpoints verbatim, so ScanPorts probes them in order exactly like
// serial ports.
func TCPDriver(endpoints ...string) Driver {
	return tcpDriver{endpoints: endpoints}
}

type tcpDriver struct {
	endpoints []string
}

var _ Driver = tcpDriver{}

func (d tcpDriver) Open(endpoint string, cfg Config) (Transport, error) {
	conn, err := net.DialTimeout("tcp", endpoint, cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &tcpTransport{
		conn:         conn,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}, nil
}

func (d tcpDriver) Enumerate() ([]string, error) {
	out := make([]string, len(d.endpoints))
	copy(out, d.endpoints)
	return out, nil
}

// tcpTransport adapts a net.Conn to the Transport contract using
// deadlines. Timeout fields are touched only by the owning Link, so
// the mutex guards the close path alone.
type tcpTransport struct {
	mu           sync.Mutex
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	closed       bool
}

var _ Transport = (*tcpTransport)(nil)

func (t *tcpTransport) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(p)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return 0, ErrReadTimeout
	}
	return n, err
}

func (t *tcpTransport) Write(p []byte) (int, error) {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return 0, err
	}
	n, err := t.conn.Write(p)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return n, ErrWriteTimeout
	}
	return n, err
}

func (t *tcpTransport) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		d = time.Millisecond
	}
	t.readTimeout = d
	return nil
}

// FlushInput drains whatever the instrument already sent. TCP has no
// kernel-level discard, so this reads with a short deadline until the
// socket runs dry.
func (t *tcpTransport) FlushInput() error {
	buf := make([]byte, 4096)
	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(5 * time.Millisecond)); err != nil {
			return err
		}
		n, err := t.conn.Read(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// FlushOutput is a no-op: bytes accepted by the socket are already on
// their way and cannot be recalled.
func (t *tcpTransport) FlushOutput() error {
	return nil
}

func (t *tcpTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}
