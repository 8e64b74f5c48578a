package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "SHELF"

	// Config keys in config.yaml.
	cfgKeyDataDir     = "data_dir"
	cfgKeyDBFile      = "db_file"
	cfgKeyListenAddr  = "listen_addr"
	cfgKeyLogLevel    = "log_level"
	cfgKeyQRSize      = "qr_size"
	cfgKeyMaxUploadMB = "max_upload_mb"

	defaultLogLevel    = "info"
	defaultMaxUploadMB = types.DefaultMaxUploadBytes >> 20
)

// envKeys are overridable as SHELF_<KEY>. data_dir is absent on purpose:
// SHELF_DATA_DIR ranks below config.yaml and is handled by paths.ResolveDataDir.
var envKeys = []string{
	cfgKeyDBFile,
	cfgKeyListenAddr,
	cfgKeyLogLevel,
	cfgKeyQRSize,
	cfgKeyMaxUploadMB,
}

// loadConfig reads config.yaml from configDir using Viper. A missing file
// or directory is not an error; defaults and environment apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyDBFile, types.DefaultDBFile)
	v.SetDefault(cfgKeyListenAddr, types.DefaultListenAddr)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyQRSize, types.DefaultQRSize)
	v.SetDefault(cfgKeyMaxUploadMB, defaultMaxUploadMB)

	v.SetEnvPrefix(envPrefix)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// buildConfig resolves the data directory and assembles a validated Config.
func buildConfig(v *viper.Viper) (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}

	c := types.Config{
		DataDir:        dataDir,
		DBFile:         v.GetString(cfgKeyDBFile),
		ListenAddr:     v.GetString(cfgKeyListenAddr),
		QRSize:         v.GetInt(cfgKeyQRSize),
		MaxUploadBytes: v.GetInt64(cfgKeyMaxUploadMB) << 20,
	}
	if err := c.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// parseLogLevel accepts debug, info, warn and error in any case.
func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flags.configDir)
}
