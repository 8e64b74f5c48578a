package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/shelf/internal/catalog"
	"github.com/mesh-intelligence/shelf/internal/qr"
	"github.com/mesh-intelligence/shelf/internal/sqlite"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	DataDir    string `yaml:"data_dir,omitempty"`
	DBFile     string `yaml:"db_file"`
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the catalog",
		Long:  "Create the configuration directory and config.yaml if missing, then create the books table.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, configFileExt)
	if err := writeConfigIfMissing(configPath, flags.dataDir); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if _, err := openCatalog(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Catalog initialized at %s\n", cfg.DBPath())
	return nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function returns nil (idempotent).
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if dataDir != "" {
		abs, err := filepath.Abs(dataDir)
		if err != nil {
			return err
		}
		dataDir = abs
	}

	c := configFile{
		DataDir:    dataDir,
		DBFile:     cfg.DBFile,
		ListenAddr: cfg.ListenAddr,
		LogLevel:   defaultLogLevel,
	}

	data, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// openCatalog creates the books table if needed and returns a service over
// the configured database file.
func openCatalog(ctx context.Context) (*catalog.Service, error) {
	store := sqlite.NewStore(cfg.DBPath())
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return catalog.NewService(store, qr.NewEncoder(cfg.QRSize)), nil
}
