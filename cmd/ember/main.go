// ember CLI - runs synthetic workloads on a node and prints its configuration
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/ember/config"
)

var (
	configPath string
	verbosity  int
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ember",
	Short: "A process runtime with tagged terms and reduction-counted schedulers",
	Long: `ember runs lightweight processes on preemptive, reduction-counted
schedulers over a shared system allocator.

Configuration is read from --config, or from the first ember.toml,
ember.yaml or ember.yml found walking up from the working directory.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "Log verbosity, -4 (none) to 2 (debug)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration and sets up logging.
func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	switch {
	case configPath != "":
		cfg, err = config.LoadFile(configPath)
	default:
		var wd string
		if wd, err = os.Getwd(); err != nil {
			return err
		}
		cfg, err = config.FindAndLoad(wd)
	}
	if err != nil {
		return err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if cmd.Flags().Changed("verbosity") {
		cfg.Log.Verbosity = verbosity
	}
	commonlog.Configure(cfg.Log.Verbosity, cfg.LogPath())
	return nil
}
