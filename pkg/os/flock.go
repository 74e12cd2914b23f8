package os

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrLocked = errors.New("already locked by another process")

type Flock struct {
	f *flock.Flock
}

// NewFileLock creates a lock file at path, making parent dirs when needed.
func NewFileLock(path string) (*Flock, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "sobelfarm.lock")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return nil, err
	}
	return &Flock{f: flock.New(path)}, nil
}

func (f *Flock) Lock() error   { return f.f.Lock() }
func (f *Flock) Unlock() error { return f.f.Unlock() }

// TryLock takes the lock without waiting, ErrLocked if someone holds it.
func (f *Flock) TryLock() error {
	ok, err := f.f.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	return nil
}
