package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rosterctl",
	Short: "Import freshman rosters into the packet server",
	Long: `rosterctl reads roster files (one person per line: name,onfloor,<unused>,rit_username)
and submits them to the packet server, either to create packets or to sync the
freshman list.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger.InitWriter(cmd.ErrOrStderr(), level, "console")
		return nil
	},
}

// loadConfig reads the given file, or CONFIG_PATH/config.yaml when present,
// and otherwise runs on defaults plus environment overrides.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	c, err := config.Load()
	if stderrors.Is(err, fs.ErrNotExist) {
		return config.Parse(nil)
	}
	return c, err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $CONFIG_PATH or config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	importCmd.Flags().StringVar(&startDate, "start-date", "", "Packet start date (YYYY-MM-DD), create-packets only")
	previewCmd.Flags().StringVar(&xlsxOut, "xlsx", "", "Also write the parsed roster to this spreadsheet")
	watchCmd.Flags().StringVar(&startDate, "start-date", "", "Packet start date (YYYY-MM-DD), create-packets only")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(syncLDAPCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
