package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// fileLock serializes read-modify-write cycles on the ledger file across
// processes sharing the same repository.
type fileLock struct {
	lock *flock.Flock
}

func newFileLock(ledgerPath string) *fileLock {
	return &fileLock{lock: flock.New(ledgerPath + ".lock")}
}

func (l *fileLock) acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.lock.Path()), 0o755); err != nil {
		return fmt.Errorf("create usage ledger dir: %w", err)
	}
	ok, err := l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock usage ledger: %w", err)
	}
	if !ok {
		return fmt.Errorf("lock usage ledger: %s is held by another process", l.lock.Path())
	}
	return nil
}

func (l *fileLock) release() error {
	return l.lock.Unlock()
}
