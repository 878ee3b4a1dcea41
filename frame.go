package instrulink

import (
	"fmt"
	"io"
)

// FrameReader reads one binary response frame. QueryBytes hands it a
// reader that honors the link's read timeout; the reader is only
// valid for the duration of that call. Return an error wrapping
// ErrBadFrame for structurally broken frames: that classifies the
// failure as reply skew and triggers the resync policy, whereas a
// timeout passes through as ErrReadTimeout without a retry.
type FrameReader func(r io.Reader) ([]byte, error)

// maxFrameSize bounds length-prefixed frames so a corrupted header
// cannot demand a gigantic read.
const maxFrameSize = 1 << 20

// FrameFixed reads exactly n bytes.
func FrameFixed(n int) FrameReader {
	return func(r io.Reader) ([]byte, error) {
		if n <= 0 {
			return nil, fmt.Errorf("frame size %d: %w", n, ErrBadFrame)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
}

// FrameUntil reads through the first occurrence of delim, which is
// included in the returned frame.
func FrameUntil(delim byte) FrameReader {
	return func(r io.Reader) ([]byte, error) {
		var frame []byte
		one := make([]byte, 1)
		for {
			if _, err := io.ReadFull(r, one); err != nil {
				return nil, err
			}
			frame = append(frame, one[0])
			if one[0] == delim {
				return frame, nil
			}
			if len(frame) > maxFrameSize {
				return nil, fmt.Errorf("no delimiter within %d bytes: %w", maxFrameSize, ErrBadFrame)
			}
		}
	}
}

// FrameLengthPrefixed reads a headerLen-byte header, derives the body
// length from it via length, then reads the body. The returned frame
// is header plus body. A length function error, a negative length, or
// a length beyond the frame cap all classify as a bad frame.
func FrameLengthPrefixed(headerLen int, length func(header []byte) (int, error)) FrameReader {
	return func(r io.Reader) ([]byte, error) {
		if headerLen <= 0 {
			return nil, fmt.Errorf("header size %d: %w", headerLen, ErrBadFrame)
		}
		header := make([]byte, headerLen)
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, err
		}
		n, err := length(header)
		if err != nil {
			return nil, fmt.Errorf("frame header: %v: %w", err, ErrBadFrame)
		}
		if n < 0 || n > maxFrameSize {
			return nil, fmt.Errorf("frame body length %d: %w", n, ErrBadFrame)
		}
		frame := make([]byte, headerLen+n)
		copy(frame, header)
		if _, err := io.ReadFull(r, frame[headerLen:]); err != nil {
			return nil, err
		}
		return frame, nil
	}
}
