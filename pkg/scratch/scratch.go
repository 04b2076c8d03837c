package scratch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashmap-kz/xftp/pkg/fsync"
)

// stagingName is the single fixed filename reused for every staged
// transfer of a session.
const stagingName = "xftp.staging"

// Slot is the local staging location shared by all transfers of one
// session. It is owned by the session, never a package global, so test
// runs with distinct scratch dirs cannot race on a shared file.
type Slot struct {
	dir          string
	fsyncOnWrite bool
}

func NewSlot(dir string, fsyncOnWrite bool) *Slot {
	return &Slot{dir: dir, fsyncOnWrite: fsyncOnWrite}
}

// Path returns the absolute location of the staging file.
func (s *Slot) Path() string {
	return filepath.ToSlash(filepath.Join(s.dir, stagingName))
}

// Ensure verifies the scratch directory exists and the staging file is
// writable. A symlinked scratch dir is resolved first. Must be called
// before every transfer.
func (s *Slot) Ensure() error {
	dir, err := resolveSymlinkIfNeeded(s.dir)
	if err != nil {
		return fmt.Errorf("scratch dir %s: %w", s.dir, err)
	}

	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("scratch dir %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("scratch dir %s: not a directory", dir)
	}
	s.dir = dir

	// writability probe: the staging file itself must be creatable
	f, err := os.OpenFile(s.Path(), os.O_WRONLY|os.O_CREATE, 0o600)
	if err != nil {
		return fmt.Errorf("scratch dir %s: not writable: %w", dir, err)
	}
	return f.Close()
}

// Write replaces the staged content with data.
func (s *Slot) Write(data []byte) error {
	if err := os.WriteFile(s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("stage write: %w", err)
	}
	if s.fsyncOnWrite {
		if err := fsync.FsyncFnameAndDir(s.Path()); err != nil {
			return fmt.Errorf("stage fsync: %w", err)
		}
	}
	return nil
}

// Create opens the staging file truncated, for streaming a download
// into the slot.
func (s *Slot) Create() (*os.File, error) {
	f, err := os.OpenFile(s.Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("stage create: %w", err)
	}
	return f, nil
}

// Open opens the staging file for reading, for streaming an upload out
// of the slot.
func (s *Slot) Open() (*os.File, error) {
	f, err := os.Open(s.Path())
	if err != nil {
		return nil, fmt.Errorf("stage open: %w", err)
	}
	return f, nil
}

// ReadBack returns the staged bytes.
func (s *Slot) ReadBack() ([]byte, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("stage read: %w", err)
	}
	return data, nil
}

// Remove deletes the staging file. No-op when it does not exist.
func (s *Slot) Remove() error {
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func resolveSymlinkIfNeeded(p string) (string, error) {
	fi, err := os.Lstat(p)
	if err != nil {
		return "", err
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return p, nil
	}
	return filepath.EvalSymlinks(p)
}
