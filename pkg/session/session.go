package session

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashmap-kz/xftp/pkg/loggr"
	"github.com/hashmap-kz/xftp/pkg/remotefs"
	"github.com/hashmap-kz/xftp/pkg/scratch"
)

// OpenFile is the in-memory copy of the most recently transferred
// file, used for content assertions. At most one exists per session.
type OpenFile struct {
	Path string
	Data []byte
}

// Session tracks a logical working directory over a stateless remote
// and owns the staging slot for transfers. Strictly single-threaded:
// one operation in flight at a time, no locking.
type Session struct {
	remote remotefs.Remote
	slot   *scratch.Slot

	// cwd always ends in "/" (including root itself)
	cwd string

	buf            *OpenFile
	cleanupScratch bool
	closed         bool
}

// New takes ownership of an already-authenticated Remote. The working
// directory starts at the backend's reported home.
func New(remote remotefs.Remote, slot *scratch.Slot, cleanupScratch bool) (*Session, error) {
	home, err := remote.CurrentDir()
	if err != nil {
		return nil, fmt.Errorf("%w: home dir: %v", remotefs.ErrOperation, err)
	}
	return &Session{
		remote:         remote,
		slot:           slot,
		cwd:            ensureTrailingSep(home),
		cleanupScratch: cleanupScratch,
	}, nil
}

// Resolve maps a path onto the session's working directory: absolute
// paths pass through unchanged, relative ones are concatenated. Pure
// string manipulation, no cleaning, no ".." collapsing; the backend
// receives the raw resolved string.
func (s *Session) Resolve(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return s.cwd + p
}

// CurrentDirectory returns the logical working directory, always
// "/"-terminated.
func (s *Session) CurrentDirectory() string {
	return s.cwd
}

// ChangeDirectory moves the working directory. On backend rejection the
// working directory is left unchanged.
func (s *Session) ChangeDirectory(p string) error {
	full := s.Resolve(p)
	if err := s.remote.ChangeDir(full); err != nil {
		return fmt.Errorf("%w: chdir %s: %v", remotefs.ErrOperation, full, err)
	}
	s.cwd = ensureTrailingSep(full)
	loggr.Debugf("chdir %s", s.cwd)
	return nil
}

// ListFiles lists a directory as bare entry names, stripping any path
// prefix the server returned. With filterDots the literal ".", ".."
// and "thumbs.db" entries (any letter case) are excluded. An empty
// directory yields an empty slice, not an error.
func (s *Session) ListFiles(p string, filterDots bool) ([]string, error) {
	full := s.Resolve(p)
	entries, err := s.remote.NameList(full)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", remotefs.ErrOperation, full, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e[strings.LastIndex(e, "/")+1:]
		if name == "" {
			continue
		}
		if filterDots && isDotEntry(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func isDotEntry(name string) bool {
	return name == "." || name == ".." || strings.EqualFold(name, "thumbs.db")
}

// Download fetches a remote file through the staging slot and loads
// the staged bytes into the open-file buffer.
func (s *Session) Download(p string) error {
	full := s.Resolve(p)
	if err := s.slot.Ensure(); err != nil {
		return fmt.Errorf("%w: %v", remotefs.ErrLocalStorage, err)
	}

	rc, err := s.remote.Retrieve(full)
	if err != nil {
		return fmt.Errorf("%w: download %s: %v", remotefs.ErrTransfer, full, err)
	}

	f, err := s.slot.Create()
	if err != nil {
		_ = rc.Close()
		return fmt.Errorf("%w: %v", remotefs.ErrLocalStorage, err)
	}

	_, copyErr := io.Copy(f, rc)
	closeErr := f.Close()
	_ = rc.Close()
	if copyErr != nil {
		return fmt.Errorf("%w: download %s: %v", remotefs.ErrTransfer, full, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("%w: download %s: %v", remotefs.ErrTransfer, full, closeErr)
	}

	data, err := s.slot.ReadBack()
	if err != nil {
		return fmt.Errorf("%w: download %s: %v", remotefs.ErrTransfer, full, err)
	}
	s.buf = &OpenFile{Path: full, Data: data}
	loggr.Debugf("downloaded %s (%d bytes)", full, len(data))
	return nil
}

// Upload stages data locally, sets the open-file buffer BEFORE the
// network call (so assertions about "the file just written" hold even
// when the remote write was never confirmed), then stores the staged
// file remotely.
func (s *Session) Upload(p string, data []byte) error {
	full := s.Resolve(p)
	if err := s.slot.Ensure(); err != nil {
		return fmt.Errorf("%w: %v", remotefs.ErrLocalStorage, err)
	}
	if err := s.slot.Write(data); err != nil {
		return fmt.Errorf("%w: %v", remotefs.ErrLocalStorage, err)
	}

	s.buf = &OpenFile{Path: full, Data: data}

	f, err := s.slot.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", remotefs.ErrLocalStorage, err)
	}
	defer f.Close()

	if err := s.remote.Store(full, f); err != nil {
		return fmt.Errorf("%w: upload %s: %v", remotefs.ErrTransfer, full, err)
	}
	loggr.Debugf("uploaded %s (%d bytes)", full, len(data))
	return nil
}

// Buffer returns the open-file buffer, nil before the first transfer.
func (s *Session) Buffer() *OpenFile {
	return s.buf
}

func (s *Session) MakeDirectory(p string) error {
	full := s.Resolve(p)
	if err := s.remote.MakeDir(full); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", remotefs.ErrOperation, full, err)
	}
	return nil
}

// RenamePath renames a file or directory; the backends make no
// distinction.
func (s *Session) RenamePath(from, to string) error {
	rfrom := s.Resolve(from)
	rto := s.Resolve(to)
	if err := s.remote.Rename(rfrom, rto); err != nil {
		return fmt.Errorf("%w: rename %s -> %s: %v", remotefs.ErrOperation, rfrom, rto, err)
	}
	return nil
}

// Delete removes a file or a directory with all of its contents.
func (s *Session) Delete(p string) error {
	full := s.Resolve(p)
	if err := s.remote.Delete(full); err != nil {
		return fmt.Errorf("%w: delete %s: %v", remotefs.ErrOperation, full, err)
	}
	loggr.Debugf("deleted %s", full)
	return nil
}

// ClearDirectory deletes a directory recursively and recreates it
// empty. Not atomic: a failure between the two steps leaves the
// directory absent.
func (s *Session) ClearDirectory(p string) error {
	if err := s.Delete(p); err != nil {
		return err
	}
	return s.MakeDirectory(p)
}

// CopyDirectory is not implementable over the ftp/sftp backend pairing
// and always fails.
func (s *Session) CopyDirectory(src, dst string) error {
	return fmt.Errorf("%w: copy directory %s -> %s: neither backend exposes a remote copy primitive",
		remotefs.ErrUnsupported, src, dst)
}

func (s *Session) FileSize(p string) (int64, error) {
	full := s.Resolve(p)
	n, err := s.remote.Size(full)
	if err != nil {
		return 0, fmt.Errorf("%w: size %s: %v", remotefs.ErrOperation, full, err)
	}
	return n, nil
}

func (s *Session) FileModifiedTime(p string) (time.Time, error) {
	full := s.Resolve(p)
	t, err := s.remote.ModTime(full)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: mdtm %s: %v", remotefs.ErrOperation, full, err)
	}
	return t, nil
}

// Close tears down the remote connection and, when configured, removes
// the staging file. Idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.remote.Close()
	if s.cleanupScratch {
		if rerr := s.slot.Remove(); rerr != nil {
			if err != nil {
				err = fmt.Errorf("%w; %v", err, rerr)
			} else {
				err = rerr
			}
		}
	}
	return err
}

func ensureTrailingSep(p string) string {
	if p == "" {
		return "/"
	}
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}
