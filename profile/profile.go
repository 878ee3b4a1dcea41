// Package profile loads instrument link descriptions from YAML files
// so acquisition programs and the instrulink CLI share one format.
//
// A profile captures everything needed to find and talk to one
// instrument: port parameters, timeouts, framing, and the identity
// handshake. Minimal example:
//
//	name: Alia DAQ
//	baud: 115200
//	identity:
//	  probe: "id?"
//	  match: prefix
//	  expect: "Arduino, Alia"
//	memory_file: ~/.cache/instrulink/alia.port
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"

	"github.com/nordiclab/instrulink"
)

// Duration wraps time.Duration so profiles can say "2s" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("durations are strings like \"2s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// IdentitySpec describes the handshake section of a profile.
type IdentitySpec struct {
	Probe  string `yaml:"probe"`
	Match  string `yaml:"match"` // exact|prefix|contains|pattern, default exact
	Expect string `yaml:"expect"`
}

// Profile is one instrument link description. Zero fields fall back
// to the library defaults; pointers distinguish "absent" from a
// meaningful zero.
type Profile struct {
	Name           string        `yaml:"name"`
	Port           string        `yaml:"port"` // optional pin, skips discovery
	Baud           int           `yaml:"baud"`
	DataBits       int           `yaml:"data_bits"`
	Parity         string        `yaml:"parity"` // none|even|odd|mark|space
	StopBits       int           `yaml:"stop_bits"`
	ReadTimeout    Duration      `yaml:"read_timeout"`
	WriteTimeout   Duration      `yaml:"write_timeout"`
	Terminator     *string       `yaml:"terminator"`      // write terminator
	ReadTerminator string        `yaml:"read_terminator"` // single byte
	Separator      string        `yaml:"separator"`
	Encoding       string        `yaml:"encoding"` // utf-8|ascii|latin-1|windows-1252
	CommandGap     Duration      `yaml:"command_gap"`
	ResyncRetries  *int          `yaml:"resync_retries"`
	DTR            *bool         `yaml:"dtr"`
	RTS            *bool         `yaml:"rts"`
	MemoryFile     string        `yaml:"memory_file"` // leading ~ expands to $HOME
	Identity       *IdentitySpec `yaml:"identity"`
}

// Load reads and validates a profile. Unknown keys are rejected so a
// typoed field name fails loudly instead of silently using a default.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks every field against its allowed range.
func (p *Profile) Validate() error {
	if p.Baud < 0 {
		return fmt.Errorf("baud %d must be positive", p.Baud)
	}
	if p.DataBits != 0 && (p.DataBits < 5 || p.DataBits > 8) {
		return fmt.Errorf("data_bits %d must be 5..8", p.DataBits)
	}
	if p.StopBits != 0 && p.StopBits != 1 && p.StopBits != 2 {
		return fmt.Errorf("stop_bits %d must be 1 or 2", p.StopBits)
	}
	if p.Parity != "" {
		if _, err := parseParity(p.Parity); err != nil {
			return err
		}
	}
	if p.Encoding != "" {
		if _, err := ParseEncoding(p.Encoding); err != nil {
			return err
		}
	}
	if len(p.ReadTerminator) > 1 {
		return fmt.Errorf("read_terminator %q must be a single byte", p.ReadTerminator)
	}
	if p.ReadTimeout < 0 || p.WriteTimeout < 0 || p.CommandGap < 0 {
		return fmt.Errorf("timeouts and command_gap must not be negative")
	}
	if p.ResyncRetries != nil && *p.ResyncRetries < 0 {
		return fmt.Errorf("resync_retries %d must not be negative", *p.ResyncRetries)
	}
	if p.Identity != nil {
		if p.Identity.Probe == "" {
			return fmt.Errorf("identity needs a probe command")
		}
		if p.Identity.Expect == "" && p.Identity.Match != "" {
			return fmt.Errorf("identity match %q given without expect", p.Identity.Match)
		}
		if p.Identity.Expect != "" {
			if _, err := BuildMatcher(p.Identity.Match, p.Identity.Expect); err != nil {
				return err
			}
		}
	}
	return nil
}

// Options translates the profile into link options.
func (p *Profile) Options() ([]instrulink.Option, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var opts []instrulink.Option
	if p.Baud != 0 {
		opts = append(opts, instrulink.WithBaudRate(p.Baud))
	}
	if p.DataBits != 0 {
		opts = append(opts, instrulink.WithDataBits(p.DataBits))
	}
	if p.StopBits != 0 {
		opts = append(opts, instrulink.WithStopBits(p.StopBits))
	}
	if p.Parity != "" {
		parity, err := parseParity(p.Parity)
		if err != nil {
			return nil, err
		}
		opts = append(opts, instrulink.WithParity(parity))
	}
	if p.ReadTimeout != 0 {
		opts = append(opts, instrulink.WithReadTimeout(time.Duration(p.ReadTimeout)))
	}
	if p.WriteTimeout != 0 {
		opts = append(opts, instrulink.WithWriteTimeout(time.Duration(p.WriteTimeout)))
	}
	if p.Terminator != nil {
		opts = append(opts, instrulink.WithWriteTerminator(*p.Terminator))
	}
	if p.ReadTerminator != "" {
		opts = append(opts, instrulink.WithReadTerminator(p.ReadTerminator[0]))
	}
	if p.Separator != "" {
		opts = append(opts, instrulink.WithValueSeparator(p.Separator))
	}
	if p.Encoding != "" {
		enc, err := ParseEncoding(p.Encoding)
		if err != nil {
			return nil, err
		}
		opts = append(opts, instrulink.WithEncoding(enc))
	}
	if p.CommandGap != 0 {
		opts = append(opts, instrulink.WithCommandGap(time.Duration(p.CommandGap)))
	}
	if p.ResyncRetries != nil {
		opts = append(opts, instrulink.WithResyncRetries(*p.ResyncRetries))
	}
	if p.DTR != nil {
		opts = append(opts, instrulink.WithDTR(*p.DTR))
	}
	if p.RTS != nil {
		opts = append(opts, instrulink.WithRTS(*p.RTS))
	}
	if p.MemoryFile != "" {
		path, err := expandHome(p.MemoryFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, instrulink.WithMemoryFile(path))
	}
	if p.Identity != nil {
		id := instrulink.Identity{Probe: p.Identity.Probe}
		if p.Identity.Expect != "" {
			m, err := BuildMatcher(p.Identity.Match, p.Identity.Expect)
			if err != nil {
				return nil, err
			}
			id.Expect = m
		}
		opts = append(opts, instrulink.WithIdentity(id))
	}
	return opts, nil
}

// Link builds a connected-ready Link from the profile plus any extra
// options (a logger, an alternate driver). Extra options apply last
// and win.
func (p *Profile) Link(extra ...instrulink.Option) (*instrulink.Link, error) {
	opts, err := p.Options()
	if err != nil {
		return nil, err
	}
	return instrulink.New(append(opts, extra...)...)
}

// BuildMatcher constructs a reply matcher from a profile-style kind
// and expectation. An empty kind means exact.
func BuildMatcher(kind, expect string) (instrulink.Matcher, error) {
	switch kind {
	case "", "exact":
		return instrulink.MatchExact(expect), nil
	case "prefix":
		return instrulink.MatchPrefix(expect), nil
	case "contains":
		return instrulink.MatchContains(expect), nil
	case "pattern":
		re, err := regexp.Compile(expect)
		if err != nil {
			return nil, fmt.Errorf("identity pattern: %w", err)
		}
		return instrulink.MatchPattern(re), nil
	default:
		return nil, fmt.Errorf("unknown match kind %q (want exact, prefix, contains or pattern)", kind)
	}
}

// ParseEncoding maps a profile encoding name to a decoder. UTF-8 and
// plain ASCII need no transformation and return nil.
func ParseEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(name) {
	case "utf-8", "utf8", "ascii":
		return nil, nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", name)
	}
}

func parseParity(name string) (instrulink.Parity, error) {
	switch strings.ToLower(name) {
	case "none":
		return instrulink.ParityNone, nil
	case "even":
		return instrulink.ParityEven, nil
	case "odd":
		return instrulink.ParityOdd, nil
	case "mark":
		return instrulink.ParityMark, nil
	case "space":
		return instrulink.ParitySpace, nil
	default:
		return instrulink.ParityNone, fmt.Errorf("unknown parity %q (want none, even, odd, mark or space)", name)
	}
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", path, err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
