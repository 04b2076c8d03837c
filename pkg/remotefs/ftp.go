package remotefs

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// deleteListingBound caps directory listings during one recursive
// delete. A valid tree lists each directory once, so the bound limits
// directory count, never file count; a listing that keeps reporting
// children that cannot be deleted keeps forcing new listings and
// trips it.
const deleteListingBound = 512

// ftpConn is the slice of *ftp.ServerConn this backend relies on.
type ftpConn interface {
	NameList(path string) ([]string, error)
	ChangeDir(path string) error
	CurrentDir() (string, error)
	MakeDir(path string) error
	Rename(from, to string) error
	Delete(path string) error
	RemoveDir(path string) error
	Retr(path string) (*ftp.Response, error)
	Stor(path string, r io.Reader) error
	FileSize(path string) (int64, error)
	GetTime(path string) (time.Time, error)
	Quit() error
}

var _ ftpConn = (*ftp.ServerConn)(nil)

type ftpRemote struct {
	conn ftpConn
}

var _ Remote = &ftpRemote{}

// NewFTP wraps an authenticated classic-FTP control connection.
func NewFTP(conn *ftp.ServerConn) Remote {
	return &ftpRemote{conn: conn}
}

func (r *ftpRemote) NameList(path string) ([]string, error) {
	entries, err := r.conn.NameList(path)
	if err != nil {
		return nil, fmt.Errorf("ftp nlst %s: %w", path, err)
	}
	return entries, nil
}

func (r *ftpRemote) ChangeDir(path string) error {
	if err := r.conn.ChangeDir(path); err != nil {
		return fmt.Errorf("ftp cwd %s: %w", path, err)
	}
	return nil
}

func (r *ftpRemote) CurrentDir() (string, error) {
	dir, err := r.conn.CurrentDir()
	if err != nil {
		return "", fmt.Errorf("ftp pwd: %w", err)
	}
	return dir, nil
}

// MakeDir creates the directory and any missing parents. MKD is not
// recursive, so parents are created one segment at a time. A refusal on
// an intermediate segment usually means it already exists and is
// ignored; a real parent failure resurfaces on the next segment.
func (r *ftpRemote) MakeDir(path string) error {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	cur := ""
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		cur += "/" + seg
		if err := r.conn.MakeDir(cur); err != nil && i == len(segments)-1 {
			return fmt.Errorf("ftp mkd %s: %w", cur, err)
		}
	}
	return nil
}

func (r *ftpRemote) Rename(from, to string) error {
	if err := r.conn.Rename(from, to); err != nil {
		return fmt.Errorf("ftp rename %s -> %s: %w", from, to, err)
	}
	return nil
}

// Delete works around the protocol's missing recursive remove: DELE as
// a file, RMD as an empty directory, otherwise list and push the
// children onto the worklist and come back to the directory once they
// are gone. The listing bound turns a pathological listing into a hard
// error instead of an endless loop; successful deletions never count
// toward it, so tree size does not cap valid deletes.
func (r *ftpRemote) Delete(path string) error {
	stack := []string{path}
	listings := 0
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		if err := r.conn.Delete(cur); err == nil {
			stack = stack[:len(stack)-1]
			continue
		}
		if err := r.conn.RemoveDir(cur); err == nil {
			stack = stack[:len(stack)-1]
			continue
		}

		listings++
		if listings > deleteListingBound {
			return fmt.Errorf("ftp delete %s: listing bound exceeded, tree never drains", cur)
		}
		entries, err := r.conn.NameList(cur)
		if err != nil {
			return fmt.Errorf("ftp delete %s: %w", cur, err)
		}
		children := childPaths(cur, entries)
		if len(children) == 0 {
			// nothing left to delete inside, yet RMD still refused
			return fmt.Errorf("ftp delete %s: directory refuses removal", cur)
		}
		stack = append(stack, children...)
	}
	return nil
}

func childPaths(dir string, entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e[strings.LastIndex(e, "/")+1:]
		if name == "" || name == "." || name == ".." {
			continue
		}
		out = append(out, strings.TrimSuffix(dir, "/")+"/"+name)
	}
	return out
}

func (r *ftpRemote) Retrieve(path string) (io.ReadCloser, error) {
	resp, err := r.conn.Retr(path)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", path, err)
	}
	return resp, nil
}

func (r *ftpRemote) Store(path string, reader io.Reader) error {
	if err := r.conn.Stor(path, reader); err != nil {
		return fmt.Errorf("ftp stor %s: %w", path, err)
	}
	return nil
}

func (r *ftpRemote) Size(path string) (int64, error) {
	n, err := r.conn.FileSize(path)
	if err != nil {
		return 0, fmt.Errorf("ftp size %s: %w", path, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("ftp size %s: negative size %d", path, n)
	}
	return n, nil
}

func (r *ftpRemote) ModTime(path string) (time.Time, error) {
	t, err := r.conn.GetTime(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("ftp mdtm %s: %w", path, err)
	}
	if t.IsZero() {
		// Ambiguous: some servers send a zero MDTM as a "not available"
		// sentinel, which a legitimate epoch-zero mtime cannot be told
		// apart from. Treated as a failure.
		return time.Time{}, fmt.Errorf("ftp mdtm %s: zero timestamp", path)
	}
	return t, nil
}

func (r *ftpRemote) Close() error {
	return r.conn.Quit()
}
