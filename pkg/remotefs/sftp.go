package remotefs

import (
	"fmt"
	"io"
	"path"
	"time"

	"github.com/pkg/sftp"
)

type sftpRemote struct {
	client *sftp.Client

	// owner tears down the sftp client and its transport together;
	// nil when only the sftp client itself needs closing
	owner io.Closer
}

var _ Remote = &sftpRemote{}

// NewSFTP wraps an established SFTP client. owner, when non-nil, is
// closed instead of the bare client and is expected to cascade the
// teardown (sftp then ssh).
func NewSFTP(client *sftp.Client, owner io.Closer) Remote {
	return &sftpRemote{client: client, owner: owner}
}

func (r *sftpRemote) NameList(p string) ([]string, error) {
	entries, err := r.client.ReadDir(p)
	if err != nil {
		return nil, fmt.Errorf("sftp readdir %s: %w", p, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// ChangeDir only verifies the path is an enterable directory: the SFTP
// protocol keeps no server-side working directory.
func (r *sftpRemote) ChangeDir(p string) error {
	fi, err := r.client.Stat(p)
	if err != nil {
		return fmt.Errorf("sftp chdir %s: %w", p, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("sftp chdir %s: not a directory", p)
	}
	return nil
}

func (r *sftpRemote) CurrentDir() (string, error) {
	wd, err := r.client.Getwd()
	if err != nil {
		return "", fmt.Errorf("sftp getwd: %w", err)
	}
	return wd, nil
}

func (r *sftpRemote) MakeDir(p string) error {
	if err := r.client.MkdirAll(p); err != nil {
		return fmt.Errorf("sftp mkdir %s: %w", p, err)
	}
	return nil
}

func (r *sftpRemote) Rename(from, to string) error {
	if err := r.client.Rename(from, to); err != nil {
		return fmt.Errorf("sftp rename %s -> %s: %w", from, to, err)
	}
	return nil
}

// Delete relies on the client-side recursive remove; no worklist needed
// on this variant.
func (r *sftpRemote) Delete(p string) error {
	fi, err := r.client.Stat(p)
	if err != nil {
		return fmt.Errorf("sftp delete %s: %w", p, err)
	}
	if fi.IsDir() {
		if err := r.client.RemoveAll(p); err != nil {
			return fmt.Errorf("sftp delete %s: %w", p, err)
		}
		return nil
	}
	if err := r.client.Remove(p); err != nil {
		return fmt.Errorf("sftp delete %s: %w", p, err)
	}
	return nil
}

func (r *sftpRemote) Retrieve(p string) (io.ReadCloser, error) {
	f, err := r.client.Open(p)
	if err != nil {
		return nil, fmt.Errorf("sftp open %s: %w", p, err)
	}
	return f, nil
}

func (r *sftpRemote) Store(p string, reader io.Reader) error {
	if dir := path.Dir(p); dir != "" && dir != "." {
		if err := r.client.MkdirAll(dir); err != nil {
			return fmt.Errorf("sftp mkdir %s: %w", dir, err)
		}
	}

	f, err := r.client.Create(p)
	if err != nil {
		return fmt.Errorf("sftp create %s: %w", p, err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		_ = f.Close()
		return fmt.Errorf("sftp write %s: %w", p, err)
	}
	return f.Close()
}

func (r *sftpRemote) Size(p string) (int64, error) {
	fi, err := r.client.Stat(p)
	if err != nil {
		return 0, fmt.Errorf("sftp stat %s: %w", p, err)
	}
	return fi.Size(), nil
}

// ModTime uses lstat so a dangling symlink still reports its own
// timestamp.
func (r *sftpRemote) ModTime(p string) (time.Time, error) {
	fi, err := r.client.Lstat(p)
	if err != nil {
		return time.Time{}, fmt.Errorf("sftp lstat %s: %w", p, err)
	}
	return fi.ModTime(), nil
}

func (r *sftpRemote) Close() error {
	if r.owner != nil {
		return r.owner.Close()
	}
	return r.client.Close()
}
