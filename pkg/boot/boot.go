package boot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashmap-kz/xftp/config"
	"github.com/hashmap-kz/xftp/pkg/ftpx"
	"github.com/hashmap-kz/xftp/pkg/loggr"
	"github.com/hashmap-kz/xftp/pkg/remotefs"
	"github.com/hashmap-kz/xftp/pkg/scratch"
	"github.com/hashmap-kz/xftp/pkg/session"
	"github.com/hashmap-kz/xftp/pkg/sftpx"
)

// Dial connects and authenticates against the backend the config
// selects. Connection and authentication failures stay distinguishable
// through the error taxonomy.
func Dial(cfg *config.Config) (remotefs.Remote, error) {
	timeout := time.Duration(cfg.TimeoutSec()) * time.Second

	switch cfg.RemoteBackend {
	case config.BackendTypeFTP:
		loggr.Infof("init FTP backend %s:%d (passive=%v)", cfg.RemoteHost, cfg.Port(), cfg.FTPPassiveMode)
		client, err := ftpx.NewFTPClient(&ftpx.FTPConfig{
			Host:        cfg.RemoteHost,
			Port:        strconv.Itoa(cfg.Port()),
			Timeout:     timeout,
			PassiveMode: cfg.FTPPassiveMode,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", remotefs.ErrConnection, err)
		}
		if err := client.Login(cfg.RemoteUser, cfg.RemotePass); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("%w: %v", remotefs.ErrAuth, err)
		}
		return remotefs.NewFTP(client.Conn()), nil

	case config.BackendTypeSFTP:
		loggr.Infof("init SFTP backend %s:%d", cfg.RemoteHost, cfg.Port())
		client, err := sftpx.NewSFTPClient(&sftpx.SFTPConfig{
			Host:       cfg.RemoteHost,
			Port:       strconv.Itoa(cfg.Port()),
			User:       cfg.RemoteUser,
			Pass:       cfg.RemotePass,
			PkeyPath:   cfg.SFTPPrivateKeyPath,
			Passphrase: cfg.SFTPPrivateKeyPassphrase,
			Timeout:    timeout,
		})
		if err != nil {
			// ssh reports auth and transport errors through one dial;
			// the message is the only discriminator available
			if strings.Contains(err.Error(), "unable to authenticate") {
				return nil, fmt.Errorf("%w: %v", remotefs.ErrAuth, err)
			}
			return nil, fmt.Errorf("%w: %v", remotefs.ErrConnection, err)
		}
		return remotefs.NewSFTP(client.SFTPClient(), client), nil

	default:
		return nil, fmt.Errorf("unimplemented backend type: %s", cfg.RemoteBackend)
	}
}

// NewSession wires config -> backend -> session: dial, staging slot,
// working directory at the backend's home.
func NewSession(cfg *config.Config) (*session.Session, error) {
	loggr.Init(loggr.ParseLevel(cfg.LogLevel), "xftp")

	remote, err := Dial(cfg)
	if err != nil {
		return nil, err
	}

	slot := scratch.NewSlot(cfg.ScratchDir, cfg.ScratchFsync)
	sess, err := session.New(remote, slot, cfg.CleanupScratch)
	if err != nil {
		_ = remote.Close()
		return nil, err
	}
	return sess, nil
}
