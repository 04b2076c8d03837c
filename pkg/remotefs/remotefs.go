package remotefs

import (
	"errors"
	"io"
	"time"
)

// Failure taxonomy shared by the backends and the session facade.
// Callers discriminate with errors.Is.
var (
	ErrConnection   = errors.New("connection failure")
	ErrAuth         = errors.New("authentication failure")
	ErrOperation    = errors.New("remote operation failed")
	ErrTransfer     = errors.New("transfer failed")
	ErrLocalStorage = errors.New("local staging unavailable")
	ErrUnsupported  = errors.New("operation not supported")
)

// Remote is the capability set a session needs from a remote
// filesystem: one interface with an FTP and an SFTP variant, instead of
// a backend type flag branched on at every call site.
//
// All paths are already resolved by the caller; a Remote never consults
// the session's working directory.
type Remote interface {
	// NameList returns directory entries. Entries may carry a path
	// prefix depending on the server; callers normalize.
	NameList(path string) ([]string, error)

	// ChangeDir verifies the directory is enterable. The SFTP variant
	// has no server-side cwd, it only checks the path is a directory.
	ChangeDir(path string) error

	// CurrentDir reports the server-side home/working directory.
	CurrentDir() (string, error)

	MakeDir(path string) error
	Rename(from, to string) error

	// Delete removes a file, or a directory with everything in it.
	Delete(path string) error

	Retrieve(path string) (io.ReadCloser, error)
	Store(path string, r io.Reader) error

	Size(path string) (int64, error)
	ModTime(path string) (time.Time, error)

	Close() error
}
