package instrulink

import (
	"log/slog"
	"time"

	"golang.org/x/text/encoding"
)

// Parity represents the parity mode of the underlying byte stream
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// Config holds the configuration for an instrument link
type Config struct {
	BaudRate        int
	DataBits        int
	StopBits        int
	Parity          Parity
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	WriteTerminator string // appended to every outgoing command
	ReadTerminator  byte   // ends an incoming reply line
	ValueSeparator  string // token separator for QueryValues replies
	Encoding        encoding.Encoding // nil means UTF-8 passthrough
	CommandGap      time.Duration     // minimum spacing between exchanges
	ResyncRetries   int               // flush-and-retry attempts on shape mismatch
	Identity        Identity
	ReplyCheck      Matcher // default shape check for Query, nil disables
	MemoryFile      string  // last-known-port persistence, empty disables
	DTR             bool
	RTS             bool
	Logger          *slog.Logger
	Driver          Driver
}

// Option is a functional option for configuring a link
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// 9600 8N1 with 2 second timeouts and newline terminators covers the
// majority of bench instruments; anything else is a profile away.
func DefaultConfig() Config {
	return Config{
		BaudRate:        9600,
		DataBits:        8,
		StopBits:        1,
		Parity:          ParityNone,
		ReadTimeout:     2 * time.Second,
		WriteTimeout:    2 * time.Second,
		WriteTerminator: "\n",
		ReadTerminator:  '\n',
		ValueSeparator:  ",",
		ResyncRetries:   1,
		DTR:             true,
		RTS:             true,
		Logger:          slog.New(slog.DiscardHandler),
		Driver:          serialDriver{},
	}
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if rate <= 0 {
			return ErrInvalidConfig
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithReadTimeout bounds how long a single exchange waits for a reply
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteTimeout bounds how long a single command write may block
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.WriteTimeout = timeout
		return nil
	}
}

// WithWriteTerminator sets the suffix appended to outgoing commands.
// An empty terminator is valid for instruments that frame on silence.
func WithWriteTerminator(term string) Option {
	return func(c *Config) error {
		c.WriteTerminator = term
		return nil
	}
}

// WithReadTerminator sets the byte that ends an incoming reply line
func WithReadTerminator(term byte) Option {
	return func(c *Config) error {
		c.ReadTerminator = term
		return nil
	}
}

// WithValueSeparator sets the token separator QueryValues splits on
func WithValueSeparator(sep string) Option {
	return func(c *Config) error {
		if sep == "" {
			return ErrInvalidConfig
		}
		c.ValueSeparator = sep
		return nil
	}
}

// WithEncoding sets the character encoding of instrument replies.
// Pass nil for plain UTF-8. Older instruments report units such as
// "°C" in Latin-1; see golang.org/x/text/encoding/charmap.
func WithEncoding(enc encoding.Encoding) Option {
	return func(c *Config) error {
		c.Encoding = enc
		return nil
	}
}

// WithCommandGap enforces a minimum spacing between exchanges.
// Some instruments (circulating baths in particular) drop commands
// that arrive too soon after the previous reply.
func WithCommandGap(gap time.Duration) Option {
	return func(c *Config) error {
		if gap < 0 {
			return ErrInvalidConfig
		}
		c.CommandGap = gap
		return nil
	}
}

// WithResyncRetries sets how many flush-and-retry attempts a shape
// mismatch triggers. The default is a single retry; zero disables
// resync entirely.
func WithResyncRetries(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return ErrInvalidConfig
		}
		c.ResyncRetries = n
		return nil
	}
}

// WithIdentity sets the probe command and expected reply used to
// verify which instrument is on the other end of a port
func WithIdentity(id Identity) Option {
	return func(c *Config) error {
		c.Identity = id
		return nil
	}
}

// WithReplyCheck sets a default shape check applied to every Query
// reply. Per-call matchers passed to Query take precedence.
func WithReplyCheck(m Matcher) Option {
	return func(c *Config) error {
		c.ReplyCheck = m
		return nil
	}
}

// WithMemoryFile persists the last successfully matched port to the
// given file so the next AutoConnect can try it first
func WithMemoryFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return ErrInvalidConfig
		}
		c.MemoryFile = path
		return nil
	}
}

// WithDTR sets the initial DTR state on open. Lowering DTR avoids
// the auto-reset behavior of Arduino-style boards.
func WithDTR(asserted bool) Option {
	return func(c *Config) error {
		c.DTR = asserted
		return nil
	}
}

// WithRTS sets the initial RTS state on open
func WithRTS(asserted bool) Option {
	return func(c *Config) error {
		c.RTS = asserted
		return nil
	}
}

// WithLogger sets the structured logger for link lifecycle and
// exchange events. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.Logger = logger
		return nil
	}
}

// WithDriver sets the transport binding used to open and enumerate
// endpoints. The default drives serial ports; see TCPDriver for LAN
// instruments speaking raw-socket SCPI.
func WithDriver(d Driver) Option {
	return func(c *Config) error {
		if d == nil {
			return ErrInvalidConfig
		}
		c.Driver = d
		return nil
	}
}
