package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".lock"

// withLock serializes repository operations inside the process and takes
// an advisory file lock shared with other processes using the same
// repository. Shared locks are skipped while the repository does not exist.
func (r *Repository) withLock(exclusive bool, fn func() error) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if exclusive {
		if err := os.MkdirAll(r.root, 0o755); err != nil {
			return fmt.Errorf("failed to create repository '%s': %w", r.root, err)
		}
	} else if _, err := os.Stat(r.root); errors.Is(err, fs.ErrNotExist) {
		return fn()
	}

	lock := flock.New(filepath.Join(r.root, lockFileName))

	var err error
	if exclusive {
		err = lock.Lock()
	} else {
		err = lock.RLock()
	}
	if err != nil {
		return fmt.Errorf("failed to lock repository '%s': %w", r.root, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.log.Warn("Failed to unlock repository '%s': %v", r.root, err)
		}
	}()

	return fn()
}
