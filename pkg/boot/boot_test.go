package boot

import (
	"errors"
	"testing"
	"time"

	filedriver "github.com/goftp/file-driver"
	ftpserver "github.com/goftp/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashmap-kz/xftp/config"
	"github.com/hashmap-kz/xftp/pkg/remotefs"
)

func newTestFTPServer(t *testing.T) *ftpserver.Server {
	t.Helper()

	factory := &filedriver.FileDriverFactory{
		RootPath: t.TempDir(),
		Perm:     ftpserver.NewSimplePerm("test", "test"),
	}
	server := ftpserver.NewServer(&ftpserver.ServerOpts{
		Factory:  factory,
		Port:     0,
		Hostname: "127.0.0.1",
		Auth:     &ftpserver.SimpleAuth{Name: "test", Password: "test"},
	})

	go func() {
		_ = server.ListenAndServe()
	}()
	time.Sleep(100 * time.Millisecond)
	t.Cleanup(func() { _ = server.Shutdown() })
	return server
}

func TestDial_UnknownBackend(t *testing.T) {
	_, err := Dial(&config.Config{RemoteBackend: "gopher", RemoteHost: "localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unimplemented backend type")
}

func TestDial_FTPBadCredentials(t *testing.T) {
	server := newTestFTPServer(t)

	_, err := Dial(&config.Config{
		RemoteBackend: config.BackendTypeFTP,
		RemoteHost:    "127.0.0.1",
		RemotePort:    server.Port,
		RemoteUser:    "test",
		RemotePass:    "wrong",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, remotefs.ErrAuth))
}

func TestDial_SFTPConnectionRefused(t *testing.T) {
	_, err := Dial(&config.Config{
		RemoteBackend:    config.BackendTypeSFTP,
		RemoteHost:       "127.0.0.1",
		RemotePort:       1,
		RemoteUser:       "test",
		RemotePass:       "test",
		RemoteTimeoutSec: 2,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, remotefs.ErrConnection))
}

func TestNewSession_FTPEndToEnd(t *testing.T) {
	server := newTestFTPServer(t)

	sess, err := NewSession(&config.Config{
		RemoteBackend:  config.BackendTypeFTP,
		RemoteHost:     "127.0.0.1",
		RemotePort:     server.Port,
		RemoteUser:     "test",
		RemotePass:     "test",
		ScratchDir:     t.TempDir(),
		CleanupScratch: true,
	})
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Upload("hello.txt", []byte("hello ftp")))
	require.NoError(t, sess.Download("hello.txt"))
	assert.Equal(t, []byte("hello ftp"), sess.Buffer().Data)

	names, err := sess.ListFiles("", true)
	require.NoError(t, err)
	assert.Contains(t, names, "hello.txt")

	require.NoError(t, sess.Close())
}
