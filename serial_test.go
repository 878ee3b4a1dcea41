package instrulink

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"go.bug.st/serial"
)

// stubPort stands in for the hardware behind a serialTransport.
type stubPort struct {
	rx          bytes.Buffer
	readErr     error
	lastTimeout time.Duration
	inResets    int
	outResets   int
	closes      int
}

var _ serialPort = (*stubPort)(nil)

func (p *stubPort) Read(buf []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.rx.Len() == 0 {
		// The library reports an expired read timeout as (0, nil).
		return 0, nil
	}
	return p.rx.Read(buf)
}

func (p *stubPort) Write(buf []byte) (int, error)        { return len(buf), nil }
func (p *stubPort) SetReadTimeout(d time.Duration) error { p.lastTimeout = d; return nil }
func (p *stubPort) ResetInputBuffer() error              { p.inResets++; return nil }
func (p *stubPort) ResetOutputBuffer() error             { p.outResets++; return nil }
func (p *stubPort) Close() error                         { p.closes++; return nil }

func TestSerialTransportMapsTimeoutError(t *testing.T) {
	stub := &stubPort{}
	tr := &serialTransport{port: stub}

	buf := make([]byte, 16)
	n, err := tr.Read(buf)
	if n != 0 || !errors.Is(err, ErrReadTimeout) {
		t.Errorf("Read on an idle port = (%d, %v), want (0, ErrReadTimeout)", n, err)
	}

	stub.rx.WriteString("data")
	n, err = tr.Read(buf)
	if err != nil || n != 4 {
		t.Errorf("Read = (%d, %v), want (4, nil)", n, err)
	}
}

func TestSerialTransportPassesThroughHardErrors(t *testing.T) {
	stub := &stubPort{readErr: errors.New("device unplugged")}
	tr := &serialTransport{port: stub}

	if _, err := tr.Read(make([]byte, 4)); err == nil || errors.Is(err, ErrReadTimeout) {
		t.Errorf("Expected the hard error untouched, got %v", err)
	}
}

func TestSerialTransportClampsTimeout(t *testing.T) {
	stub := &stubPort{}
	tr := &serialTransport{port: stub}

	if err := tr.SetReadTimeout(-time.Second); err != nil {
		t.Fatalf("SetReadTimeout failed: %v", err)
	}
	if stub.lastTimeout != time.Millisecond {
		t.Errorf("Timeout = %v, want the 1ms floor (0 means block forever downstream)", stub.lastTimeout)
	}

	if err := tr.SetReadTimeout(time.Second); err != nil {
		t.Fatalf("SetReadTimeout failed: %v", err)
	}
	if stub.lastTimeout != time.Second {
		t.Errorf("Timeout = %v, want 1s", stub.lastTimeout)
	}
}

func TestSerialTransportCloseIdempotent(t *testing.T) {
	stub := &stubPort{}
	tr := &serialTransport{port: stub}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
	if stub.closes != 1 {
		t.Errorf("Port closed %d times, want 1", stub.closes)
	}
}

func TestSerialTransportFlushes(t *testing.T) {
	stub := &stubPort{}
	tr := &serialTransport{port: stub}

	if err := tr.FlushInput(); err != nil {
		t.Fatalf("FlushInput failed: %v", err)
	}
	if err := tr.FlushOutput(); err != nil {
		t.Fatalf("FlushOutput failed: %v", err)
	}
	if stub.inResets != 1 || stub.outResets != 1 {
		t.Errorf("Buffer resets in/out = %d/%d, want 1/1", stub.inResets, stub.outResets)
	}
}

func TestConvertParity(t *testing.T) {
	tests := []struct {
		in   Parity
		want serial.Parity
	}{
		{ParityNone, serial.NoParity},
		{ParityOdd, serial.OddParity},
		{ParityEven, serial.EvenParity},
		{ParityMark, serial.MarkParity},
		{ParitySpace, serial.SpaceParity},
	}
	for _, tt := range tests {
		if got := convertParity(tt.in); got != tt.want {
			t.Errorf("convertParity(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConvertStopBits(t *testing.T) {
	if got := convertStopBits(1); got != serial.OneStopBit {
		t.Errorf("convertStopBits(1) = %v, want OneStopBit", got)
	}
	if got := convertStopBits(2); got != serial.TwoStopBits {
		t.Errorf("convertStopBits(2) = %v, want TwoStopBits", got)
	}
}
