package bench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	logPerms         = 0o644
	lockPollInterval = 100 * time.Millisecond
)

// ResultsLog is the append-only results file, held under an exclusive
// advisory lock so concurrent runs never interleave their blocks.
type ResultsLog struct {
	path string
	file *os.File
}

// OpenResultsLog opens path for appending, creating it if needed, and waits
// for the exclusive lock until ctx is done.
func OpenResultsLog(ctx context.Context, path string) (*ResultsLog, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logPerms)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogOpen, err)
	}

	fd := int(file.Fd())

	for {
		err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &ResultsLog{path: path, file: file}, nil
		}

		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = file.Close()

			return nil, fmt.Errorf("%w: locking %s: %w", ErrLogOpen, path, err)
		}

		select {
		case <-ctx.Done():
			_ = file.Close()

			return nil, fmt.Errorf("%w: waiting for lock on %s: %w", ErrLogOpen, path, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// Path returns the log's file path.
func (l *ResultsLog) Path() string {
	return l.path
}

// Write appends p. Every call reaches the file immediately.
func (l *ResultsLog) Write(p []byte) (int, error) {
	if l.file == nil {
		return 0, fmt.Errorf("%w: %s is closed", ErrLogWrite, l.path)
	}

	n, err := l.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrLogWrite, err)
	}

	return n, nil
}

// Close flushes, unlocks and closes the log. Safe to call more than once.
func (l *ResultsLog) Close() error {
	if l.file == nil {
		return nil
	}

	syncErr := l.file.Sync()
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	return errors.Join(syncErr, closeErr)
}
