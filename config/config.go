package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
)

var (
	once   sync.Once
	config *Config
)

type BackendType string

const (
	BackendTypeFTP  BackendType = "ftp"
	BackendTypeSFTP BackendType = "sftp"
)

const (
	defaultFTPPort    = 21
	defaultSFTPPort   = 22
	defaultTimeoutSec = 90
)

type Config struct {
	// Remote endpoint
	RemoteBackend    BackendType `json:"REMOTE_BACKEND"` // "ftp", "sftp"
	RemoteHost       string      `json:"REMOTE_HOST"`
	RemotePort       int         `json:"REMOTE_PORT"`
	RemoteTimeoutSec int         `json:"REMOTE_TIMEOUT_SEC"`
	RemoteUser       string      `json:"REMOTE_USER"`
	RemotePass       string      `json:"REMOTE_PASS"`

	// FTP-only: use plain PASV data connections instead of EPSV
	FTPPassiveMode bool `json:"FTP_PASSIVE_MODE"`

	// SFTP-only: private key auth, takes precedence over REMOTE_PASS when set
	SFTPPrivateKeyPath       string `json:"SFTP_PRIVATE_KEY_PATH"`
	SFTPPrivateKeyPassphrase string `json:"SFTP_PRIVATE_KEY_PASSPHRASE"`

	// Local staging area for transfers
	ScratchDir     string `json:"SCRATCH_DIR"`
	ScratchFsync   bool   `json:"SCRATCH_FSYNC"`
	CleanupScratch bool   `json:"CLEANUP_SCRATCH"`

	LogLevel string `json:"LOG_LEVEL"`
}

// LoadConfigFromFile unmarshal file into config struct
func LoadConfigFromFile(filename string) *Config {
	once.Do(func() {
		loadFromFile(filename)
	})
	return config
}

// LoadConfig unmarshal raw data into config struct
func LoadConfig(content []byte) *Config {
	once.Do(func() {
		loadFromBuf(content)
	})
	return config
}

// Validate checks the parts of the config without which no connection
// attempt makes sense. It is meant to run before any dial.
func (c *Config) Validate() error {
	switch c.RemoteBackend {
	case BackendTypeFTP, BackendTypeSFTP:
	default:
		return fmt.Errorf("unknown remote backend: %q", c.RemoteBackend)
	}
	if c.RemoteHost == "" {
		return fmt.Errorf("remote host is required")
	}
	if c.RemoteUser == "" {
		return fmt.Errorf("remote user is required")
	}
	if c.ScratchDir == "" {
		return fmt.Errorf("scratch dir is required")
	}
	return nil
}

// Port returns the configured port or the backend's default.
func (c Config) Port() int {
	if c.RemotePort != 0 {
		return c.RemotePort
	}
	if c.RemoteBackend == BackendTypeSFTP {
		return defaultSFTPPort
	}
	return defaultFTPPort
}

// TimeoutSec returns the configured connection timeout or the default.
func (c Config) TimeoutSec() int {
	if c.RemoteTimeoutSec != 0 {
		return c.RemoteTimeoutSec
	}
	return defaultTimeoutSec
}

// helper internal functions, suitable for testing

func loadFromFile(filename string) *Config {
	content, err := os.ReadFile(filename)
	if err != nil {
		log.Fatal(err)
	}
	return loadFromBuf(content)
}

func loadFromBuf(content []byte) *Config {
	content = expandEnvVars(content)

	var cfg Config
	err := json.Unmarshal(content, &cfg)
	if err != nil {
		log.Fatal(err)
	}
	config = &cfg
	return config
}

func expandEnvVars(buf []byte) []byte {
	s := string(buf)
	e := os.ExpandEnv(s)
	return []byte(e)
}

func Cfg() *Config {
	if config == nil {
		log.Fatal("config was not loaded in main")
	}
	return config
}
