package types

import (
	"errors"
	"path/filepath"
)

// Config holds the resolved settings for opening the catalog and serving it.
type Config struct {
	DataDir        string `json:"data_dir" yaml:"data_dir"`
	DBFile         string `json:"db_file" yaml:"db_file"`
	ListenAddr     string `json:"listen_addr" yaml:"listen_addr"`
	QRSize         int    `json:"qr_size" yaml:"qr_size"`
	MaxUploadBytes int64  `json:"max_upload_bytes" yaml:"max_upload_bytes"`
}

// Defaults applied when a setting is absent from flags, config.yaml and env.
const (
	DefaultDBFile         = "library.db"
	DefaultListenAddr     = ":8080"
	DefaultQRSize         = 256
	DefaultMaxUploadBytes = 10 << 20
)

// Config validation errors.
var (
	ErrDBFileEmpty       = errors.New("db file must not be empty")
	ErrQRSizeInvalid     = errors.New("qr size must be positive")
	ErrUploadSizeInvalid = errors.New("max upload size must be positive")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. An empty DataDir means the working directory.
func (c Config) Validate() error {
	if c.DBFile == "" {
		return ErrDBFileEmpty
	}
	if c.QRSize <= 0 {
		return ErrQRSizeInvalid
	}
	if c.MaxUploadBytes <= 0 {
		return ErrUploadSizeInvalid
	}
	return nil
}

// DBPath returns the location of the catalog database file.
func (c Config) DBPath() string {
	if filepath.IsAbs(c.DBFile) {
		return c.DBFile
	}
	dir := c.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, c.DBFile)
}
