package sftpx

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPConfig struct {
	// Required
	Host string
	Port string
	User string

	// Auth: private key is preferred when PkeyPath is set, password
	// otherwise
	Pass       string
	PkeyPath   string
	Passphrase string

	// Connection timeout, applied once at dial time
	Timeout time.Duration
}

type SFTPClient struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client

	config *SFTPConfig
}

// NewSFTPClient creates an SFTP client using private-key or password
// authentication
func NewSFTPClient(sftpConfig *SFTPConfig) (*SFTPClient, error) {
	auth, err := decideAuth(sftpConfig)
	if err != nil {
		return nil, err
	}

	timeout := sftpConfig.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	// Setup SSH configuration
	sshConfig := &ssh.ClientConfig{
		User: sftpConfig.User,
		Auth: auth,
		//nolint:gosec
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	// Establish the SSH connection
	addr := fmt.Sprintf("%s:%s", sftpConfig.Host, sftpConfig.Port)
	conn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to SFTP server: %w", err)
	}

	// Create an SFTP sftpClient over the SSH connection
	client, err := sftp.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unable to create SFTP sftpClient: %w", err)
	}

	return &SFTPClient{
		sshClient:  conn,
		sftpClient: client,
		config:     sftpConfig,
	}, nil
}

func decideAuth(cfg *SFTPConfig) ([]ssh.AuthMethod, error) {
	if cfg.PkeyPath == "" {
		return []ssh.AuthMethod{ssh.Password(cfg.Pass)}, nil
	}

	key, err := os.ReadFile(cfg.PkeyPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read private key: %w", err)
	}

	// Parse the private key with passphrase
	var signer ssh.Signer
	if cfg.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(cfg.Passphrase))
		if err != nil {
			return nil, fmt.Errorf("unable to parse private key with passphrase: %w", err)
		}
	} else {
		signer, err = ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("unable to parse private key: %w", err)
		}
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func (s *SFTPClient) SFTPClient() *sftp.Client {
	return s.sftpClient
}

func (s *SFTPClient) Close() error {
	var err error
	if s.sftpClient != nil {
		err = s.sftpClient.Close()
	}
	if s.sshClient != nil {
		err = s.sshClient.Close()
	}
	return err
}
