// Package cli implements the shelf command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

var flags rootFlags

// cfg is the resolved configuration, set by the root PersistentPreRunE.
var cfg types.Config

// NewRootCmd creates the top-level "shelf" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shelf",
		Short: "A personal library catalog",
		Long: "Shelf keeps book records (title, author, year, category, cover image)\n" +
			"in a local SQLite file and generates a QR code for every title.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "directory holding the catalog database (default: working directory)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newQRCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps storage and encoding faults to exitSysError and everything
// else (bad flags, validation) to exitUserError.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrStorage), errors.Is(err, types.ErrEncoding):
		return exitSysError
	default:
		return exitUserError
	}
}

// setup loads configuration and installs the default logger before any
// subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil {
		if err := v.BindPFlag(cfgKeyLogLevel, f); err != nil {
			return fmt.Errorf("bind log level: %w", err)
		}
	}

	level, err := parseLogLevel(v.GetString(cfgKeyLogLevel))
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	cfg, err = buildConfig(v)
	if err != nil {
		return err
	}
	slog.Debug("configuration loaded", "config_dir", configDir, "db", cfg.DBPath())
	return nil
}
