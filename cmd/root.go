package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"portwatch/internal/config"
	"portwatch/pkg/logging"
)

var logLevelFlag string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "portwatch",
	Short: "Watch local ports and the processes behind them",
	Long: `portwatch keeps a live inventory of listening TCP ports on this
machine: which process owns each port, what kind of process it is, and
whether your favorite or watched ports are up. It can notify you when a
watched port starts or stops, and terminate the process behind a port
gracefully before resorting to force.`,
	// SilenceUsage prevents printing usage on errors we already handle
	// (failed scans, kill failures).
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "portwatch version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newKillCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig layers the config files and applies the --log-level override.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	return cfg, nil
}

func initCLILogging(cfg config.Config) {
	logging.InitForCLI(logging.ParseLevel(cfg.LogLevel), os.Stderr)
}
