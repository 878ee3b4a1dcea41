package instrulink

import "errors"

// Predefined error types for robust error handling. Timeout and
// mismatch errors are recoverable: the link stays connected and the
// caller decides whether to retry. Everything else reported by Query
// and friends is a transport fault that disconnects the link.
var (
	ErrNotConnected     = errors.New("link is not connected")
	ErrReadTimeout      = errors.New("read operation timed out")
	ErrWriteTimeout     = errors.New("write operation timed out")
	ErrReplyMismatch    = errors.New("reply failed shape validation")
	ErrIdentityMismatch = errors.New("identity handshake rejected")
	ErrNoPortFound      = errors.New("no port with a matching instrument found")
	ErrBadFrame         = errors.New("malformed binary frame")
	ErrInvalidConfig    = errors.New("invalid link configuration")
	ErrPortNotFound     = errors.New("port does not exist or is not a character device")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
)
