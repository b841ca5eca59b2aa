package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quantamail/quantamail/internal/config"
	"github.com/quantamail/quantamail/internal/logging"
	"github.com/quantamail/quantamail/internal/mailbox"
	"github.com/quantamail/quantamail/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	profileFlag string
	jsonOutput  bool
	quietFlag   bool
	verboseFlag bool

	cfg    *config.Config
	st     *store.Store
	box    *mailbox.Mailbox
	logger logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qm",
	Short: "qm - Quantum-secure email client",
	Long:  "Quantamail: a local-first mail client with post-quantum decryption and offline-safe sync.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that don't touch the profile.
		switch cmd.Name() {
		case "help", "version":
			return nil
		}

		profile := profileFlag
		if profile == "" {
			profile = config.DefaultProfileDir()
		}

		var err error
		cfg, err = config.Load(profile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := slog.LevelWarn
		if verboseFlag {
			level = slog.LevelDebug
		}
		logger = logging.New(os.Stderr, level)

		st, err = store.Open(cfg.SnapshotPath(),
			store.WithLogger(logger),
			store.WithFlushWindow(cfg.FlushWindow()),
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		box = mailbox.New(st, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			st.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("qm version %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "Profile directory (default: ~/.quantamail)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
