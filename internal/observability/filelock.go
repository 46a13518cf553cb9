package observability

import (
	"fmt"
	"os"
	"syscall"
)

// lockFile takes an exclusive flock on the lock file kept beside a run
// history, creating it on first use. Two sonata-verify runs finishing at the
// same moment therefore never interleave their JSONL records. The returned
// function releases the lock and closes the lock file.
func lockFile(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening run history lock %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("locking run history %s: %w", path, err)
	}

	return func() error {
		defer func() { _ = f.Close() }()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
