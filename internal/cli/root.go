// Package cli implements the ccdwallet command-line interface.
//
// CLI state lives in package-level variables, the usual Cobra layout. The
// globals are initialized in PersistentPreRunE and released in
// PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mrz1836/ccdwallet/internal/config"
	"github.com/mrz1836/ccdwallet/internal/metrics"
	"github.com/mrz1836/ccdwallet/internal/output"
	walleterr "github.com/mrz1836/ccdwallet/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter

	buildInfo BuildInfo
	treeOnce  sync.Once
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ccdwallet",
	Short: "A local Concordium wallet",
	Long: `ccdwallet keeps a Concordium wallet on this machine.

The seed phrase is stored encrypted under your password. Accounts are
derived from it per network, and balances, history and token holdings
are read from the public wallet proxy.

Example:
  ccdwallet wallet create
  ccdwallet account list --balances
  ccdwallet tokens snapshot -o json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// SetBuildInfo records version details shown by --version.
func SetBuildInfo(info BuildInfo) {
	buildInfo = info
	rootCmd.Version = formatVersion(info)
}

func formatVersion(info BuildInfo) string {
	v, commit, date := info.Version, info.Commit, info.Date
	if v == "" {
		v = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
}

// Execute runs the root command and prints any error in the active format.
func Execute() error {
	treeOnce.Do(finishCommandTree)
	err := rootCmd.Execute()
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(os.Stderr, err, format)
		return err
	}
	return nil
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	return walleterr.ExitCode(err)
}

// initGlobals loads configuration and sets up the logger and formatter.
// Precedence is flags, then CCDWALLET_* variables, then the config file.
func initGlobals() error {
	home := homeDir
	if home == "" {
		if env := os.Getenv(config.EnvPrefix + "_HOME"); env != "" {
			home = env
		} else {
			home = config.DefaultHome()
		}
	}
	home = config.ExpandHome(home)

	var err error
	cfg, err = config.LoadOrDefault(config.Path(home))
	if err != nil {
		return err
	}
	cfg.Home = home

	if err := config.ApplyEnvironment(cfg); err != nil {
		return err
	}
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}
	if cfg.Logging.File == config.Defaults().Logging.File {
		cfg.Logging.File = filepath.Join(cfg.Home, "ccdwallet.log")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = config.NewLogger(config.ParseLogLevel(cfg.Logging.Level), cfg.GetLoggingFile())
	if err != nil {
		logger = config.NullLogger()
	}

	formatter = output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), os.Stdout)
	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger == nil {
		return
	}
	if cfg != nil && cfg.IsVerbose() {
		s := metrics.Global.Snapshot()
		logger.Debug("cli: remote calls=%d errors=%d", s.RemoteCallsTotal, s.RemoteErrorsTotal)
	}
	_ = logger.Close()
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "ccdwallet data directory (default: ~/.ccdwallet)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Version = formatVersion(buildInfo)
}
