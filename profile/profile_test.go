package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nordiclab/instrulink"
)

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instrument.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadFullProfile(t *testing.T) {
	path := writeProfile(t, `
name: Alia DAQ
port: /dev/ttyUSB0
baud: 115200
data_bits: 8
parity: none
stop_bits: 1
read_timeout: 500ms
write_timeout: 1s
terminator: "\r\n"
read_terminator: "\n"
separator: ";"
encoding: latin-1
command_gap: 50ms
resync_retries: 2
dtr: false
rts: true
identity:
  probe: "id?"
  match: prefix
  expect: "Arduino, Alia"
`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Name != "Alia DAQ" {
		t.Errorf("Name = %q, want Alia DAQ", p.Name)
	}
	if p.Port != "/dev/ttyUSB0" {
		t.Errorf("Port = %q, want /dev/ttyUSB0", p.Port)
	}
	if p.Baud != 115200 {
		t.Errorf("Baud = %d, want 115200", p.Baud)
	}
	if time.Duration(p.ReadTimeout) != 500*time.Millisecond {
		t.Errorf("ReadTimeout = %v, want 500ms", time.Duration(p.ReadTimeout))
	}
	if p.Terminator == nil || *p.Terminator != "\r\n" {
		t.Errorf("Terminator = %v, want \\r\\n", p.Terminator)
	}
	if p.ResyncRetries == nil || *p.ResyncRetries != 2 {
		t.Errorf("ResyncRetries = %v, want 2", p.ResyncRetries)
	}
	if p.DTR == nil || *p.DTR {
		t.Errorf("DTR = %v, want false", p.DTR)
	}
	if p.Identity == nil || p.Identity.Probe != "id?" {
		t.Errorf("Identity = %+v, want probe id?", p.Identity)
	}

	opts, err := p.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if len(opts) == 0 {
		t.Fatal("Expected options from a populated profile")
	}
	link, err := p.Link()
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if link == nil {
		t.Fatal("Expected a link")
	}
}

func TestLoadMinimalProfile(t *testing.T) {
	path := writeProfile(t, "name: bare\n")
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	opts, err := p.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if len(opts) != 0 {
		t.Errorf("Expected no options from an empty profile, got %d", len(opts))
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeProfile(t, "baudrate: 9600\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected a typoed key to be rejected")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected an error for a missing profile")
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative baud", "baud: -9600\n"},
		{"bad data bits", "data_bits: 9\n"},
		{"bad stop bits", "stop_bits: 3\n"},
		{"bad parity", "parity: sometimes\n"},
		{"bad encoding", "encoding: ebcdic\n"},
		{"multi-byte read terminator", "read_terminator: \"\\r\\n\"\n"},
		{"negative retries", "resync_retries: -1\n"},
		{"bad duration", "read_timeout: fast\n"},
		{"negative duration", "read_timeout: -2s\n"},
		{"identity without probe", "identity:\n  expect: Alia\n"},
		{"match without expect", "identity:\n  probe: \"id?\"\n  match: prefix\n"},
		{"bad identity pattern", "identity:\n  probe: \"id?\"\n  match: pattern\n  expect: \"[\"\n"},
		{"bad match kind", "identity:\n  probe: \"id?\"\n  match: fuzzy\n  expect: Alia\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeProfile(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Errorf("Expected %s to be rejected", tt.name)
			}
		})
	}
}

func TestDurationUnmarshal(t *testing.T) {
	path := writeProfile(t, "command_gap: 250ms\n")
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if time.Duration(p.CommandGap) != 250*time.Millisecond {
		t.Errorf("CommandGap = %v, want 250ms", time.Duration(p.CommandGap))
	}
}

func TestBuildMatcher(t *testing.T) {
	tests := []struct {
		kind    string
		expect  string
		reply   string
		want    bool
		wantErr bool
	}{
		{"", "OK", "OK", true, false},
		{"exact", "OK", "OK ", false, false},
		{"prefix", "Alia", "Alia DAQ", true, false},
		{"contains", "DAQ", "Alia DAQ v2", true, false},
		{"pattern", `^v\d+$`, "v42", true, false},
		{"pattern", `[`, "", false, true},
		{"fuzzy", "x", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.expect, func(t *testing.T) {
			m, err := BuildMatcher(tt.kind, tt.expect)
			if (err != nil) != tt.wantErr {
				t.Fatalf("BuildMatcher(%q, %q) error = %v, wantErr %v", tt.kind, tt.expect, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := m.Match(tt.reply); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.reply, got, tt.want)
			}
		})
	}
}

func TestParseEncoding(t *testing.T) {
	for _, name := range []string{"utf-8", "UTF8", "ascii"} {
		enc, err := ParseEncoding(name)
		if err != nil {
			t.Errorf("ParseEncoding(%q) failed: %v", name, err)
		}
		if enc != nil {
			t.Errorf("ParseEncoding(%q) = %v, want nil passthrough", name, enc)
		}
	}

	for _, name := range []string{"latin-1", "iso-8859-1", "windows-1252", "CP1252"} {
		enc, err := ParseEncoding(name)
		if err != nil {
			t.Errorf("ParseEncoding(%q) failed: %v", name, err)
		}
		if enc == nil {
			t.Errorf("ParseEncoding(%q) = nil, want a charmap decoder", name)
		}
	}

	if _, err := ParseEncoding("ebcdic"); err == nil {
		t.Error("Expected an unknown encoding to be rejected")
	}
}

func TestIdentityOptionsProduceMatcher(t *testing.T) {
	path := writeProfile(t, `
identity:
  probe: "id?"
  match: contains
  expect: "JULABO"
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	opts, err := p.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}

	// Apply onto a config and inspect the resulting identity.
	cfg := instrulink.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			t.Fatalf("Applying option failed: %v", err)
		}
	}
	if cfg.Identity.Probe != "id?" {
		t.Errorf("Probe = %q, want id?", cfg.Identity.Probe)
	}
	if cfg.Identity.Expect == nil || !cfg.Identity.Expect.Match("07/18 JULABO CORIO") {
		t.Error("Expected the identity matcher to accept a containing reply")
	}
	if cfg.Identity.Expect.Match("LAUDA ECO") {
		t.Error("Expected the identity matcher to reject a non-matching reply")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("No home directory: %v", err)
	}

	got, err := expandHome("~/.cache/instrulink/port.txt")
	if err != nil {
		t.Fatalf("expandHome failed: %v", err)
	}
	if !strings.HasPrefix(got, home) {
		t.Errorf("expandHome = %q, want a path under %q", got, home)
	}

	got, err = expandHome("/absolute/path")
	if err != nil {
		t.Fatalf("expandHome failed: %v", err)
	}
	if got != "/absolute/path" {
		t.Errorf("expandHome = %q, want the path untouched", got)
	}
}
