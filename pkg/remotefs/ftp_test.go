package remotefs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	filedriver "github.com/goftp/file-driver"
	ftpserver "github.com/goftp/server"
	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/xftp/pkg/ftpx"
)

// newTestFTPRemote runs an embedded FTP server over a temp dir and
// returns an authenticated remote plus the server's root on disk.
func newTestFTPRemote(t *testing.T) (Remote, string) {
	t.Helper()

	tmpDir := t.TempDir()

	factory := &filedriver.FileDriverFactory{
		RootPath: tmpDir,
		Perm:     ftpserver.NewSimplePerm("test", "test"),
	}
	opts := &ftpserver.ServerOpts{
		Factory:  factory,
		Port:     0,
		Hostname: "127.0.0.1",
		Auth:     &ftpserver.SimpleAuth{Name: "test", Password: "test"},
	}
	server := ftpserver.NewServer(opts)

	go func() {
		_ = server.ListenAndServe()
	}()
	time.Sleep(100 * time.Millisecond)
	t.Cleanup(func() { _ = server.Shutdown() })

	client, err := ftpx.NewFTPClient(&ftpx.FTPConfig{
		Host:    "127.0.0.1",
		Port:    strconv.Itoa(server.Port),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, client.Login("test", "test"))

	r := NewFTP(client.Conn())
	t.Cleanup(func() { _ = r.Close() })
	return r, tmpDir
}

func bareNames(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e[strings.LastIndex(e, "/")+1:])
	}
	return out
}

func TestFTP_StoreRetrieveRoundTrip(t *testing.T) {
	r, _ := newTestFTPRemote(t)

	content := []byte("classic ftp payload")
	require.NoError(t, r.Store("/data.bin", bytes.NewReader(content)))

	rc, err := r.Retrieve("/data.bin")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, got)
}

func TestFTP_RetrieveMissing(t *testing.T) {
	r, _ := newTestFTPRemote(t)

	_, err := r.Retrieve("/missing.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp retr")
}

func TestFTP_NameList(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "b.txt"), []byte("b"), 0o600))

	names, err := r.NameList("/")
	require.NoError(t, err)
	bare := bareNames(names)
	assert.Contains(t, bare, "a.txt")
	assert.Contains(t, bare, "b.txt")
}

func TestFTP_NameListEmptyDir(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "empty"), 0o750))

	names, err := r.NameList("/empty")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFTP_ChangeDirAndCurrentDir(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "sub"), 0o750))

	wd, err := r.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/", wd)

	require.NoError(t, r.ChangeDir("/sub"))
	wd, err = r.CurrentDir()
	require.NoError(t, err)
	assert.Equal(t, "/sub", wd)

	assert.Error(t, r.ChangeDir("/missing"))
}

func TestFTP_MakeDir(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, r.MakeDir("/fresh"))
	fi, err := os.Stat(filepath.Join(tmpDir, "fresh"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestFTP_MakeDirNested(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, r.MakeDir("/a/b/c"))
	fi, err := os.Stat(filepath.Join(tmpDir, "a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	// existing parents do not break a second create below them
	require.NoError(t, r.MakeDir("/a/b/d"))
}

func TestFTP_Rename(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "old.txt"), []byte("v"), 0o600))
	require.NoError(t, r.Rename("/old.txt", "/new.txt"))

	_, err := os.Stat(filepath.Join(tmpDir, "old.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(tmpDir, "new.txt"))
	assert.NoError(t, err)
}

func TestFTP_DeleteFile(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "gone.txt"), []byte("v"), 0o600))
	require.NoError(t, r.Delete("/gone.txt"))

	_, err := os.Stat(filepath.Join(tmpDir, "gone.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestFTP_DeleteRecursive(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	// tree with a nested non-empty directory, forcing the worklist to
	// descend before the top directory can be removed
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "tree", "nested"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "tree", "a.txt"), []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "tree", "nested", "b.txt"), []byte("b"), 0o600))

	require.NoError(t, r.Delete("/tree"))

	_, err := os.Stat(filepath.Join(tmpDir, "tree"))
	assert.True(t, os.IsNotExist(err))
}

func TestFTP_DeleteMissing(t *testing.T) {
	r, _ := newTestFTPRemote(t)
	assert.Error(t, r.Delete("/missing"))
}

func TestFTP_Size(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "sized.bin"), []byte("12345"), 0o600))

	n, err := r.Size("/sized.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = r.Size("/missing.bin")
	assert.Error(t, err)
}

func TestFTP_ModTime(t *testing.T) {
	r, tmpDir := newTestFTPRemote(t)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "stamped.txt"), []byte("x"), 0o600))

	got, err := r.ModTime("/stamped.txt")
	require.NoError(t, err)
	assert.False(t, got.IsZero())

	_, err = r.ModTime("/missing.txt")
	assert.Error(t, err)
}

func TestChildPaths(t *testing.T) {
	entries := []string{"/tree/a.txt", "b.txt", ".", "..", ""}
	got := childPaths("/tree", entries)
	assert.Equal(t, []string{"/tree/a.txt", "/tree/b.txt"}, got)
}

// --- fake control connections for server responses the embedded
// server cannot produce ---

var errStubConn = errors.New("not wired")

type stubConn struct{}

func (stubConn) NameList(string) ([]string, error)  { return nil, errStubConn }
func (stubConn) ChangeDir(string) error             { return errStubConn }
func (stubConn) CurrentDir() (string, error)        { return "", errStubConn }
func (stubConn) MakeDir(string) error               { return errStubConn }
func (stubConn) Rename(string, string) error        { return errStubConn }
func (stubConn) Delete(string) error                { return errStubConn }
func (stubConn) RemoveDir(string) error             { return errStubConn }
func (stubConn) Retr(string) (*ftp.Response, error) { return nil, errStubConn }
func (stubConn) Stor(string, io.Reader) error       { return errStubConn }
func (stubConn) FileSize(string) (int64, error)     { return 0, errStubConn }
func (stubConn) GetTime(string) (time.Time, error)  { return time.Time{}, errStubConn }
func (stubConn) Quit() error                        { return nil }

// metaConn answers SIZE and MDTM with canned values.
type metaConn struct {
	stubConn
	size  int64
	mtime time.Time
}

func (c *metaConn) FileSize(string) (int64, error)    { return c.size, nil }
func (c *metaConn) GetTime(string) (time.Time, error) { return c.mtime, nil }

// treeConn is a minimal in-memory tree honoring DELE/RMD/NLST
// semantics: DELE removes files only, RMD removes empty directories
// only.
type treeConn struct {
	stubConn
	files map[string]bool
	dirs  map[string]map[string]bool
}

func newTreeConn() *treeConn {
	return &treeConn{files: map[string]bool{}, dirs: map[string]map[string]bool{}}
}

func (c *treeConn) addDir(p string) {
	c.dirs[p] = map[string]bool{}
}

func (c *treeConn) addFile(p string) {
	c.files[p] = true
	dir, name := splitEntry(p)
	if children, ok := c.dirs[dir]; ok {
		children[name] = true
	}
}

func (c *treeConn) Delete(p string) error {
	if !c.files[p] {
		return errStubConn
	}
	delete(c.files, p)
	c.dropEntry(p)
	return nil
}

func (c *treeConn) RemoveDir(p string) error {
	children, ok := c.dirs[p]
	if !ok || len(children) > 0 {
		return errStubConn
	}
	delete(c.dirs, p)
	c.dropEntry(p)
	return nil
}

func (c *treeConn) NameList(p string) ([]string, error) {
	children, ok := c.dirs[p]
	if !ok {
		return nil, errStubConn
	}
	out := make([]string, 0, len(children))
	for name := range children {
		out = append(out, name)
	}
	return out, nil
}

func (c *treeConn) dropEntry(p string) {
	dir, name := splitEntry(p)
	if children, ok := c.dirs[dir]; ok {
		delete(children, name)
	}
}

func splitEntry(p string) (dir, name string) {
	i := strings.LastIndex(p, "/")
	dir = p[:i]
	if dir == "" {
		dir = "/"
	}
	return dir, p[i+1:]
}

// stuckConn reports a child that can never be deleted, whatever the
// directory.
type stuckConn struct {
	stubConn
}

func (c *stuckConn) NameList(string) ([]string, error) {
	return []string{"ghost.tmp"}, nil
}

func TestFTP_SizeNegative(t *testing.T) {
	r := &ftpRemote{conn: &metaConn{size: -1}}

	_, err := r.Size("/weird.bin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative size")
}

func TestFTP_ModTimeZeroTimestamp(t *testing.T) {
	r := &ftpRemote{conn: &metaConn{}}

	_, err := r.ModTime("/stamped.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero timestamp")
}

func TestFTP_MetadataPassThrough(t *testing.T) {
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &ftpRemote{conn: &metaConn{size: 7, mtime: want}}

	n, err := r.Size("/f")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	got, err := r.ModTime("/f")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFTP_DeleteLargeFlatDir(t *testing.T) {
	conn := newTreeConn()
	conn.addDir("/big")
	for i := 0; i < 600; i++ {
		conn.addFile(fmt.Sprintf("/big/f%03d.dat", i))
	}

	// more entries than the listing bound: only directories count
	// toward it, so a big flat directory still drains
	r := &ftpRemote{conn: conn}
	require.NoError(t, r.Delete("/big"))
	assert.Empty(t, conn.files)
	assert.Empty(t, conn.dirs)
}

func TestFTP_DeleteNeverDrains(t *testing.T) {
	r := &ftpRemote{conn: &stuckConn{}}

	err := r.Delete("/haunted")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never drains")
}
