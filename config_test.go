package instrulink

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 9600 {
		t.Errorf("Expected BaudRate 9600, got %d", config.BaudRate)
	}

	if config.DataBits != 8 {
		t.Errorf("Expected DataBits 8, got %d", config.DataBits)
	}

	if config.StopBits != 1 {
		t.Errorf("Expected StopBits 1, got %d", config.StopBits)
	}

	if config.Parity != ParityNone {
		t.Errorf("Expected Parity None, got %v", config.Parity)
	}

	if config.ReadTimeout != 2*time.Second {
		t.Errorf("Expected ReadTimeout 2s, got %v", config.ReadTimeout)
	}

	if config.WriteTerminator != "\n" {
		t.Errorf("Expected WriteTerminator \\n, got %q", config.WriteTerminator)
	}

	if config.ReadTerminator != '\n' {
		t.Errorf("Expected ReadTerminator \\n, got %q", config.ReadTerminator)
	}

	if config.ValueSeparator != "," {
		t.Errorf("Expected ValueSeparator comma, got %q", config.ValueSeparator)
	}

	if config.ResyncRetries != 1 {
		t.Errorf("Expected ResyncRetries 1, got %d", config.ResyncRetries)
	}

	if !config.DTR || !config.RTS {
		t.Errorf("Expected DTR and RTS asserted by default, got %v/%v", config.DTR, config.RTS)
	}

	if config.Logger == nil {
		t.Error("Expected a non-nil default logger")
	}

	if config.Driver == nil {
		t.Error("Expected the serial driver by default")
	}
}

func TestWithBaudRate(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		wantErr bool
	}{
		{"9600 (valid)", 9600, false},
		{"115200 (valid)", 115200, false},
		{"4800 (valid)", 4800, false},
		{"0 (invalid)", 0, true},
		{"-9600 (negative)", -9600, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithBaudRate(tt.rate)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithBaudRate(%d) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
			}
			if err == nil && config.BaudRate != tt.rate {
				t.Errorf("BaudRate = %d, want %d", config.BaudRate, tt.rate)
			}
		})
	}
}

func TestWithDataBits(t *testing.T) {
	tests := []struct {
		name    string
		bits    int
		wantErr bool
	}{
		{"5 (valid)", 5, false},
		{"7 (valid)", 7, false},
		{"8 (valid)", 8, false},
		{"4 (too few)", 4, true},
		{"9 (too many)", 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithDataBits(tt.bits)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithDataBits(%d) error = %v, wantErr %v", tt.bits, err, tt.wantErr)
			}
		})
	}
}

func TestWithStopBits(t *testing.T) {
	tests := []struct {
		name    string
		bits    int
		wantErr bool
	}{
		{"1 (valid)", 1, false},
		{"2 (valid)", 2, false},
		{"0 (invalid)", 0, true},
		{"3 (invalid)", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithStopBits(tt.bits)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithStopBits(%d) error = %v, wantErr %v", tt.bits, err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutOptions(t *testing.T) {
	config := DefaultConfig()

	if err := WithReadTimeout(500 * time.Millisecond)(&config); err != nil {
		t.Errorf("WithReadTimeout failed: %v", err)
	}
	if config.ReadTimeout != 500*time.Millisecond {
		t.Errorf("ReadTimeout = %v, want 500ms", config.ReadTimeout)
	}

	if err := WithWriteTimeout(time.Second)(&config); err != nil {
		t.Errorf("WithWriteTimeout failed: %v", err)
	}
	if config.WriteTimeout != time.Second {
		t.Errorf("WriteTimeout = %v, want 1s", config.WriteTimeout)
	}

	if err := WithReadTimeout(0)(&config); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for zero read timeout, got %v", err)
	}
	if err := WithWriteTimeout(-time.Second)(&config); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for negative write timeout, got %v", err)
	}
}

func TestTerminatorOptions(t *testing.T) {
	config := DefaultConfig()

	if err := WithWriteTerminator("\r\n")(&config); err != nil {
		t.Errorf("WithWriteTerminator failed: %v", err)
	}
	if config.WriteTerminator != "\r\n" {
		t.Errorf("WriteTerminator = %q, want \\r\\n", config.WriteTerminator)
	}

	// Empty write terminator is legitimate for instruments framing on
	// silence.
	if err := WithWriteTerminator("")(&config); err != nil {
		t.Errorf("WithWriteTerminator(\"\") failed: %v", err)
	}

	if err := WithReadTerminator('\r')(&config); err != nil {
		t.Errorf("WithReadTerminator failed: %v", err)
	}
	if config.ReadTerminator != '\r' {
		t.Errorf("ReadTerminator = %q, want \\r", config.ReadTerminator)
	}
}

func TestWithValueSeparator(t *testing.T) {
	config := DefaultConfig()

	if err := WithValueSeparator(";")(&config); err != nil {
		t.Errorf("WithValueSeparator failed: %v", err)
	}
	if config.ValueSeparator != ";" {
		t.Errorf("ValueSeparator = %q, want ;", config.ValueSeparator)
	}

	if err := WithValueSeparator("")(&config); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for empty separator, got %v", err)
	}
}

func TestWithCommandGap(t *testing.T) {
	config := DefaultConfig()

	if err := WithCommandGap(100 * time.Millisecond)(&config); err != nil {
		t.Errorf("WithCommandGap failed: %v", err)
	}
	if config.CommandGap != 100*time.Millisecond {
		t.Errorf("CommandGap = %v, want 100ms", config.CommandGap)
	}

	if err := WithCommandGap(-time.Millisecond)(&config); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for negative gap, got %v", err)
	}
}

func TestWithResyncRetries(t *testing.T) {
	config := DefaultConfig()

	if err := WithResyncRetries(0)(&config); err != nil {
		t.Errorf("WithResyncRetries(0) failed: %v", err)
	}
	if config.ResyncRetries != 0 {
		t.Errorf("ResyncRetries = %d, want 0", config.ResyncRetries)
	}

	if err := WithResyncRetries(3)(&config); err != nil {
		t.Errorf("WithResyncRetries(3) failed: %v", err)
	}
	if config.ResyncRetries != 3 {
		t.Errorf("ResyncRetries = %d, want 3", config.ResyncRetries)
	}

	if err := WithResyncRetries(-1)(&config); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for negative retries, got %v", err)
	}
}

func TestWithLogger(t *testing.T) {
	config := DefaultConfig()
	if err := WithLogger(nil)(&config); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for nil logger, got %v", err)
	}
}

func TestWithDriver(t *testing.T) {
	config := DefaultConfig()
	if err := WithDriver(nil)(&config); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for nil driver, got %v", err)
	}

	d := newFakeDriver()
	if err := WithDriver(d)(&config); err != nil {
		t.Errorf("WithDriver failed: %v", err)
	}
	if config.Driver != Driver(d) {
		t.Error("Expected the driver to be stored")
	}
}

func TestWithMemoryFile(t *testing.T) {
	config := DefaultConfig()
	if err := WithMemoryFile("")(&config); err != ErrInvalidConfig {
		t.Errorf("Expected ErrInvalidConfig for empty path, got %v", err)
	}
	if err := WithMemoryFile("/tmp/port.txt")(&config); err != nil {
		t.Errorf("WithMemoryFile failed: %v", err)
	}
	if config.MemoryFile != "/tmp/port.txt" {
		t.Errorf("MemoryFile = %q, want /tmp/port.txt", config.MemoryFile)
	}
}
