// Package instrulink establishes and maintains serial links to
// laboratory instruments, exposing a uniform query/response
// abstraction to acquisition code.
//
// The hard part of talking to bench instruments is not the I/O, it is
// knowing which of many ports hosts which instrument and recovering
// when a line-oriented exchange desynchronizes (a reply arriving for
// a query you sent two exchanges ago). This package solves both: a
// probe-and-validate discovery scan with a remembered-port fast path,
// and a deterministic resynchronization policy (flush both buffers,
// retry once) applied to every exchange that carries a shape check.
//
// # Basic Usage
//
// Connect to a known port and exchange commands (9600 8N1, 2 second
// timeouts, newline terminators by default):
//
//	link, err := instrulink.Open("/dev/ttyUSB0",
//	    instrulink.WithBaudRate(115200),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer link.Close()
//
//	reply, err := link.Query("*IDN?")
//	values, err := link.QueryValues("MEAS?")
//	err = link.Write("RST")
//
// # Discovery
//
// When the port is unknown, describe the instrument and let the link
// find it. The identity handshake sends a probe command to each
// candidate port and matches the reply:
//
//	link, _ := instrulink.New(
//	    instrulink.WithIdentity(instrulink.Identity{
//	        Probe:  "id?",
//	        Expect: instrulink.MatchPrefix("Arduino, Alia"),
//	    }),
//	    instrulink.WithMemoryFile(".cache/alia.port"),
//	)
//	if err := link.AutoConnect(); err != nil {
//	    log.Fatal(err)
//	}
//
// AutoConnect tries the last known port first (from memory or the
// configured memory file) and only falls back to a full scan when
// that fails, so a bench full of instruments is not re-probed on
// every startup. ScanPorts stops at the first match.
//
// To pick one unit out of several identical ones, combine matchers:
//
//	Expect: instrulink.MatchAll(
//	    instrulink.MatchPrefix("Arduino"),
//	    instrulink.MatchContains("s1733"),
//	)
//
// # Resynchronization
//
// A reply that fails its shape check signals a skewed stream. The
// link flushes both transport buffers and retries the exchange
// exactly once (configurable via WithResyncRetries); a second failure
// is returned as ErrReplyMismatch with the offending reply attached.
// Timeouts are recoverable and never disconnect the link:
//
//	reply, err := link.Query("TEMP?", instrulink.MatchValuesN(",", 2))
//	switch {
//	case errors.Is(err, instrulink.ErrReadTimeout):
//	    // instrument busy, poll again
//	case errors.Is(err, instrulink.ErrReplyMismatch):
//	    // persistent skew, reply holds the last invalid payload
//	}
//
// QueryValues carries an implicit numeric shape check: every token
// must parse as a float, with "nan" and "-inf" accepted, and one bad
// token fails the whole call. QueryBytes reads binary frames through
// a caller-supplied strategy (FrameFixed, FrameUntil,
// FrameLengthPrefixed) with framing errors going through the same
// resync policy.
//
// # Transports
//
// The default driver opens local serial ports. LAN instruments
// speaking their line protocol over a raw socket use the TCP driver
// with the same discovery and resync machinery:
//
//	link, _ := instrulink.New(
//	    instrulink.WithDriver(instrulink.TCPDriver("10.0.0.17:5025")),
//	    instrulink.WithIdentity(instrulink.Identity{Probe: "*IDN?",
//	        Expect: instrulink.MatchContains("Keysight")}),
//	)
//
// # Port Discovery and USB Management
//
// List ports and USB metadata, and reset a hung adapter:
//
//	ports, _ := instrulink.ListPortInfo()
//	for _, info := range ports {
//	    fmt.Printf("%s: %s (VID=%s PID=%s)\n",
//	        info.Path, info.Description, info.VendorID, info.ProductID)
//	}
//
//	err := instrulink.ResetUSBPort("/dev/ttyUSB0")
//
// USB metadata and reset rely on sysfs and the usbreset utility and
// are Linux-only; everything else is portable.
//
// # Concurrency
//
// A Link is an exclusively-owned resource. Operations block for at
// most the configured timeouts and must be serialized by the caller;
// at most one Query/Write may be in flight per Link. Close is safe
// from another goroutine once the link is quiescent, and safe to call
// repeatedly.
//
// # Error Handling
//
// Expected communication failures come back as sentinel errors, never
// panics. Use errors.Is:
//
//	var (
//	    ErrReadTimeout      // no reply within the read timeout
//	    ErrReplyMismatch    // reply failed shape validation after resync
//	    ErrIdentityMismatch // handshake rejected during discovery
//	    ErrNoPortFound      // scan exhausted without a match
//	    ErrNotConnected     // operation on a disconnected link
//	)
//
// Timeouts and mismatches leave the link connected. Transport-level
// faults (port vanished, I/O error) disconnect it, and subsequent
// operations fail fast with ErrNotConnected until the caller
// reconnects.
package instrulink
