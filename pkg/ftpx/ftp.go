package ftpx

import (
	"fmt"
	"net"
	"time"

	"github.com/jlaffaye/ftp"
)

type FTPConfig struct {
	// Required
	Host string
	Port string

	// Connection timeout, applied once at dial time
	Timeout time.Duration

	// PassiveMode forces classic PASV data connections instead of EPSV.
	// The control library never opens active data connections either way.
	PassiveMode bool
}

type FTPClient struct {
	conn *ftp.ServerConn

	config *FTPConfig
}

// NewFTPClient dials the FTP control connection. Authentication is a
// separate step, so login failures stay distinguishable from network
// failures.
func NewFTPClient(ftpConfig *FTPConfig) (*FTPClient, error) {
	timeout := ftpConfig.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	opts := []ftp.DialOption{ftp.DialWithTimeout(timeout)}
	if ftpConfig.PassiveMode {
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}

	addr := net.JoinHostPort(ftpConfig.Host, ftpConfig.Port)
	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to FTP server: %w", err)
	}

	return &FTPClient{
		conn:   conn,
		config: ftpConfig,
	}, nil
}

// Login authenticates the control connection.
func (c *FTPClient) Login(user, pass string) error {
	if err := c.conn.Login(user, pass); err != nil {
		return fmt.Errorf("FTP login failed for %q: %w", user, err)
	}
	return nil
}

func (c *FTPClient) Conn() *ftp.ServerConn {
	return c.conn
}

// Close sends QUIT and tears down the control connection.
func (c *FTPClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Quit()
}
