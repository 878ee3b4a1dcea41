package instrulink

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// LinkStatus is the connection lifecycle state of a Link.
type LinkStatus int

const (
	StatusDisconnected LinkStatus = iota
	StatusProbing
	StatusConnected
)

func (s LinkStatus) String() string {
	switch s {
	case StatusProbing:
		return "probing"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// LinkState is a snapshot of the link lifecycle for display and
// logging. Obtain one via State.
type LinkState struct {
	Status        LinkStatus
	Port          string
	LastKnownPort string
}

// maxLineBytes caps a reply line so a terminator-less byte stream
// cannot grow the buffer without bound. Overflow classifies as reply
// skew and goes through the resync policy.
const maxLineBytes = 1 << 20

// Link owns one Transport to one instrument and runs every exchange
// through the resynchronization policy. All operations block the
// calling goroutine for at most the configured timeouts and return
// definite results; recoverable failures come back as sentinel errors
// (ErrReadTimeout, ErrReplyMismatch, ...), never as panics.
//
// A Link is an exclusively-owned resource: at most one goroutine may
// have an operation in flight at any time. Close may be called from
// another goroutine once the caller has quiesced the link.
type Link struct {
	cfg Config
	log *slog.Logger

	mu        sync.Mutex // guards the lifecycle fields below
	status    LinkStatus
	tr        Transport
	br        *bufio.Reader
	port      string
	lastKnown string

	lastExchange time.Time
}

// New builds a disconnected Link from the default configuration and
// the given options.
func New(opts ...Option) (*Link, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	return &Link{cfg: cfg, log: cfg.Logger}, nil
}

// Open builds a Link and connects it to the given port in one call.
func Open(port string, opts ...Option) (*Link, error) {
	l, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := l.ConnectAtPort(port); err != nil {
		return nil, err
	}
	return l, nil
}

// State returns a snapshot of the link lifecycle.
func (l *Link) State() LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LinkState{Status: l.status, Port: l.port, LastKnownPort: l.lastKnown}
}

// Connected reports whether the link currently owns a verified
// transport.
func (l *Link) Connected() bool {
	return l.State().Status == StatusConnected
}

// Port returns the endpoint of the current connection, or "" when
// disconnected.
func (l *Link) Port() string {
	return l.State().Port
}

// ConnectAtPort opens the named endpoint and, when an Identity is
// configured, verifies it with a single probe exchange. On a mismatch
// or probe failure the transport is closed before returning, so a
// failed connect never leaks an open handle. On success the port is
// recorded as the last known port (and persisted when a memory file
// is configured).
func (l *Link) ConnectAtPort(port string) error {
	if l.transport() != nil {
		l.Close()
	}

	l.log.Debug("probing port", "port", port, "identity", l.cfg.Identity.String())
	l.setProbing(port)

	tr, err := l.cfg.Driver.Open(port, l.cfg)
	if err != nil {
		l.setDisconnected()
		return err
	}
	l.adopt(tr, port)

	if l.cfg.Identity.configured() {
		reply, err := l.exchangeLine(l.cfg.Identity.Probe, nil)
		if err != nil {
			l.teardown()
			return fmt.Errorf("identity probe on %s: %w", port, err)
		}
		if !l.cfg.Identity.Validate(reply) {
			l.teardown()
			l.log.Debug("identity rejected", "port", port, "reply", reply)
			return fmt.Errorf("port %s replied %q: %w", port, reply, ErrIdentityMismatch)
		}
	}

	l.setConnected(port)
	l.log.Info("instrument connected", "port", port)

	if l.cfg.MemoryFile != "" {
		if err := storeLastKnownPort(l.cfg.MemoryFile, port); err != nil {
			l.log.Debug("port memory not updated", "path", l.cfg.MemoryFile, "error", err)
		}
	}
	return nil
}

// ScanPorts enumerates the driver's endpoints and tries ConnectAtPort
// on each in order, stopping at the first port whose handshake
// succeeds. Ports that fail to open or to validate are skipped.
// Exhausting the list returns ErrNoPortFound.
func (l *Link) ScanPorts() (string, error) {
	ports, err := l.cfg.Driver.Enumerate()
	if err != nil {
		return "", fmt.Errorf("enumerate ports: %w", err)
	}
	l.log.Debug("scanning for instrument", "candidates", len(ports))

	for _, port := range ports {
		if err := l.ConnectAtPort(port); err != nil {
			l.log.Debug("port skipped", "port", port, "error", err)
			continue
		}
		return port, nil
	}
	return "", ErrNoPortFound
}

// AutoConnect tries the last known port first (the in-memory one,
// falling back to the configured memory file) and only on failure
// walks the full scan. Ports are stable across sessions far more
// often than not, so the fast path usually spares every other
// instrument on the host an unsolicited probe.
func (l *Link) AutoConnect() error {
	bias := l.State().LastKnownPort
	if bias == "" && l.cfg.MemoryFile != "" {
		port, err := loadLastKnownPort(l.cfg.MemoryFile)
		if err != nil {
			l.log.Debug("no usable port memory", "path", l.cfg.MemoryFile, "error", err)
		} else {
			bias = port
		}
	}

	if bias != "" {
		if err := l.ConnectAtPort(bias); err == nil {
			return nil
		}
		l.log.Debug("last known port did not match, scanning", "port", bias)
	}

	_, err := l.ScanPorts()
	return err
}

// Close flushes and releases the transport unconditionally and leaves
// the link disconnected. Safe to call repeatedly and on every exit
// path.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tr == nil {
		l.status = StatusDisconnected
		return nil
	}
	l.tr.FlushOutput()
	l.tr.FlushInput()
	err := l.tr.Close()
	l.tr = nil
	l.br = nil
	l.port = ""
	l.status = StatusDisconnected
	l.log.Info("link closed")
	return err
}

// Forget closes the link and clears the remembered port, in memory
// and on disk, so the next AutoConnect runs a fresh full scan.
func (l *Link) Forget() error {
	err := l.Close()
	l.mu.Lock()
	l.lastKnown = ""
	l.mu.Unlock()
	if l.cfg.MemoryFile != "" {
		os.Remove(l.cfg.MemoryFile)
	}
	return err
}

// Write sends a command with no expected reply. No resync logic
// applies since there is nothing to validate.
func (l *Link) Write(cmd string) error {
	tr := l.connectedTransport()
	if tr == nil {
		return ErrNotConnected
	}
	l.pace()
	err := l.send(tr, cmd)
	l.touch()
	return err
}

// WriteRaw sends bytes exactly as given, with no terminator appended.
// Pre-framed or binary payloads go through here; Write is the right
// call for line-oriented commands.
func (l *Link) WriteRaw(p []byte) error {
	tr := l.connectedTransport()
	if tr == nil {
		return ErrNotConnected
	}
	l.pace()
	err := l.sendPayload(tr, p, fmt.Sprintf("%d raw bytes", len(p)))
	l.touch()
	return err
}

// Query sends a command and returns the decoded reply line. Matchers
// passed per call override the configured ReplyCheck; with neither,
// any reply within the timeout is accepted.
//
// A timeout returns ErrReadTimeout and leaves the link connected. A
// reply failing the shape check triggers the resync policy: flush
// both transport buffers and retry, by default exactly once. When
// retries are exhausted the invalid reply is returned alongside
// ErrReplyMismatch for diagnostics.
func (l *Link) Query(cmd string, checks ...Matcher) (string, error) {
	if !l.Connected() {
		return "", ErrNotConnected
	}
	check := l.cfg.ReplyCheck
	if len(checks) == 1 {
		check = checks[0]
	} else if len(checks) > 1 {
		check = MatchAll(checks...)
	}
	return l.exchangeLine(cmd, check)
}

// QueryValues sends a command and parses the reply as a separated
// list of floats. The numeric parse doubles as the exchange's shape
// check, so a malformed reply goes through the same flush-and-retry
// as any other mismatch. Tokens such as "nan" and "-inf" parse fine;
// one unparseable token fails the whole call with no partial result.
func (l *Link) QueryValues(cmd string, checks ...Matcher) ([]float64, error) {
	if !l.Connected() {
		return nil, ErrNotConnected
	}
	check := MatchValues(l.cfg.ValueSeparator)
	if len(checks) > 0 {
		check = MatchAll(append([]Matcher{check}, checks...)...)
	}
	reply, err := l.exchangeLine(cmd, check)
	if err != nil {
		return nil, err
	}
	return parseValues(reply, l.cfg.ValueSeparator)
}

// QueryBytes sends a command and reads a binary frame using the
// caller-supplied strategy instead of a terminated line. A strategy
// error wrapping ErrBadFrame counts as reply skew and goes through
// the resync policy; a timeout returns ErrReadTimeout with no retry.
func (l *Link) QueryBytes(cmd string, frame FrameReader) ([]byte, error) {
	if frame == nil {
		return nil, fmt.Errorf("nil frame reader: %w", ErrInvalidConfig)
	}
	tr := l.connectedTransport()
	if tr == nil {
		return nil, ErrNotConnected
	}

	var skew error
	for attempt := 0; attempt <= l.cfg.ResyncRetries; attempt++ {
		if attempt > 0 {
			l.log.Warn("resynchronizing after bad frame", "command", cmd, "attempt", attempt)
			if err := l.flushBuffers(tr); err != nil {
				return nil, err
			}
		}
		l.pace()
		if err := l.send(tr, cmd); err != nil {
			return nil, err
		}
		resp, err := frame(&deadlineReader{l: l, tr: tr, deadline: time.Now().Add(l.cfg.ReadTimeout)})
		l.touch()
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrBadFrame) {
			skew = err
			continue
		}
		if errors.Is(err, ErrReadTimeout) {
			return nil, ErrReadTimeout
		}
		return nil, l.fault(fmt.Errorf("read frame: %w", err))
	}
	return nil, skew
}

// ReadLine reads and decodes one reply line without writing anything
// first, for adapters draining multi-line or unsolicited replies.
func (l *Link) ReadLine() (string, error) {
	tr := l.connectedTransport()
	if tr == nil {
		return "", ErrNotConnected
	}
	raw, err := l.readLineBytes(tr)
	if err != nil {
		return "", err
	}
	return l.decode(raw)
}

// Resync forcefully clears both transport buffers and the link's own
// read buffer, for adapters that know the reply stream skewed outside
// a query (the serial analog of a VISA device clear).
func (l *Link) Resync() error {
	tr := l.connectedTransport()
	if tr == nil {
		return ErrNotConnected
	}
	l.log.Debug("manual resync", "port", l.Port())
	return l.flushBuffers(tr)
}

// exchangeLine is the single-exchange engine: write command, read one
// line, decode, validate, resync-and-retry on skew. check == nil
// accepts any reply. Timeouts and transport faults exit immediately;
// only shape mismatches (including decode failures and oversized
// lines) consume retries.
func (l *Link) exchangeLine(cmd string, check Matcher) (string, error) {
	tr := l.transport()
	if tr == nil {
		return "", ErrNotConnected
	}

	var lastReply string
	var skew error
	for attempt := 0; attempt <= l.cfg.ResyncRetries; attempt++ {
		if attempt > 0 {
			l.log.Warn("resynchronizing after mismatched reply", "command", cmd, "attempt", attempt)
			if err := l.flushBuffers(tr); err != nil {
				return "", err
			}
		}
		l.pace()
		if err := l.send(tr, cmd); err != nil {
			return "", err
		}
		raw, err := l.readLineBytes(tr)
		l.touch()
		if err != nil {
			if errors.Is(err, ErrReplyMismatch) {
				lastReply, skew = "", err
				continue
			}
			return "", err
		}
		reply, err := l.decode(raw)
		if err != nil {
			lastReply, skew = "", err
			continue
		}
		if check == nil || check.Match(reply) {
			return reply, nil
		}
		lastReply = reply
		skew = fmt.Errorf("reply %q to command %q, want %s: %w", reply, cmd, check, ErrReplyMismatch)
	}
	return lastReply, skew
}

// send writes cmd plus the write terminator.
func (l *Link) send(tr Transport, cmd string) error {
	return l.sendPayload(tr, []byte(cmd+l.cfg.WriteTerminator), fmt.Sprintf("command %q", cmd))
}

// sendPayload writes payload verbatim. Write timeouts are recoverable;
// any other write error or a short write is a transport fault that
// disconnects the link.
func (l *Link) sendPayload(tr Transport, payload []byte, what string) error {
	n, err := tr.Write(payload)
	if err != nil {
		if errors.Is(err, ErrWriteTimeout) {
			return ErrWriteTimeout
		}
		return l.fault(fmt.Errorf("write %s: %w", what, err))
	}
	if n < len(payload) {
		return l.fault(fmt.Errorf("write %s: short write %d of %d bytes", what, n, len(payload)))
	}
	return nil
}

// readLineBytes accumulates bytes up to the read terminator, with the
// whole line bounded by ReadTimeout. A timeout discards any partial
// line; the stale remainder in the instrument's stream is what the
// resync policy cleans up on the next exchange.
func (l *Link) readLineBytes(tr Transport) ([]byte, error) {
	deadline := time.Now().Add(l.cfg.ReadTimeout)
	var line []byte
	for {
		if l.br.Buffered() == 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, ErrReadTimeout
			}
			if err := tr.SetReadTimeout(remaining); err != nil {
				return nil, l.fault(fmt.Errorf("set read timeout: %w", err))
			}
		}
		b, err := l.br.ReadByte()
		if err != nil {
			if errors.Is(err, ErrReadTimeout) {
				return nil, ErrReadTimeout
			}
			return nil, l.fault(fmt.Errorf("read reply: %w", err))
		}
		if b == l.cfg.ReadTerminator {
			return line, nil
		}
		line = append(line, b)
		if len(line) > maxLineBytes {
			return nil, fmt.Errorf("reply exceeds %d bytes without terminator: %w", maxLineBytes, ErrReplyMismatch)
		}
	}
}

// decode converts raw reply bytes per the configured encoding and
// trims surrounding whitespace (instruments ending lines with \r\n
// leave the \r behind once the terminator is stripped). A decode
// failure classifies as reply skew.
func (l *Link) decode(raw []byte) (string, error) {
	if l.cfg.Encoding != nil {
		decoded, err := l.cfg.Encoding.NewDecoder().Bytes(raw)
		if err != nil {
			return "", fmt.Errorf("decode reply: %v: %w", err, ErrReplyMismatch)
		}
		raw = decoded
	}
	return strings.TrimSpace(string(raw)), nil
}

// flushBuffers discards pending bytes in both directions and resets
// the buffered reader; bytes already pulled into it are part of the
// stale input and must not survive the flush.
func (l *Link) flushBuffers(tr Transport) error {
	if err := tr.FlushOutput(); err != nil {
		return l.fault(fmt.Errorf("flush output: %w", err))
	}
	if err := tr.FlushInput(); err != nil {
		return l.fault(fmt.Errorf("flush input: %w", err))
	}
	l.br.Reset(tr)
	return nil
}

// pace enforces the configured minimum gap between exchanges.
func (l *Link) pace() {
	if l.cfg.CommandGap <= 0 {
		return
	}
	if wait := l.cfg.CommandGap - time.Since(l.lastExchange); wait > 0 {
		time.Sleep(wait)
	}
}

func (l *Link) touch() {
	l.lastExchange = time.Now()
}

// fault handles a transport-level hard error: log it, release the
// transport, disconnect. Subsequent operations fail fast with
// ErrNotConnected until the caller reconnects.
func (l *Link) fault(err error) error {
	l.log.Error("transport fault", "port", l.Port(), "error", err)
	l.teardown()
	return err
}

func (l *Link) transport() Transport {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tr
}

func (l *Link) connectedTransport() Transport {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.status != StatusConnected {
		return nil
	}
	return l.tr
}

func (l *Link) setProbing(port string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = StatusProbing
	l.port = port
}

func (l *Link) setDisconnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = StatusDisconnected
	l.port = ""
}

func (l *Link) setConnected(port string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = StatusConnected
	l.port = port
	l.lastKnown = port
}

func (l *Link) adopt(tr Transport, port string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tr = tr
	l.br = bufio.NewReader(tr)
	l.port = port
}

func (l *Link) teardown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tr != nil {
		l.tr.Close()
	}
	l.tr = nil
	l.br = nil
	l.port = ""
	l.status = StatusDisconnected
}

// deadlineReader hands a FrameReader timeout-bounded reads from the
// link's buffered stream. Valid only for the duration of one
// QueryBytes call.
type deadlineReader struct {
	l        *Link
	tr       Transport
	deadline time.Time
}

func (r *deadlineReader) Read(p []byte) (int, error) {
	if r.l.br.Buffered() == 0 {
		remaining := time.Until(r.deadline)
		if remaining <= 0 {
			return 0, ErrReadTimeout
		}
		if err := r.tr.SetReadTimeout(remaining); err != nil {
			return 0, err
		}
	}
	return r.l.br.Read(p)
}
