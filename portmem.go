package instrulink

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Port memory: a one-line file remembering the port an instrument was
// last found on, so the next AutoConnect can skip a full scan. The
// file is an optimization, never a correctness input; both helpers
// report errors for the caller to log and move past. The advisory
// flock keeps parallel acquisition processes sharing a memory file
// from interleaving a read with a rewrite.

func loadLastKnownPort(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_SH); err == nil {
		defer unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}

	data, err := io.ReadAll(io.LimitReader(f, 4096))
	if err != nil {
		return "", err
	}
	port, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(port), nil
}

func storeLastKnownPort(path, port string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err == nil {
		defer unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}

	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Write([]byte(port + "\n")); err != nil {
		return err
	}
	return nil
}
