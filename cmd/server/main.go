package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flighttracker/internal/platform/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags override environment variables,
// which override defaults.
func newRootCmd() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:           "flight-tracker",
		Short:         "Append-only flight event log with scoped retrieval",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("addr", ":8080", "HTTP listen address")
	flags.String("storage", "fs", "Blob store backend (memory, fs, s3, gcs)")
	flags.String("data-dir", "data", "Data directory for the fs backend")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	bindFlags(v, root, map[string]string{
		"addr":             "addr",
		"storage.type":     "storage",
		"storage.data_dir": "data-dir",
		"log.level":        "log-level",
	})

	root.AddCommand(
		newServeCmd(v),
		newAppendCmd(v),
		newQueryCmd(v),
		newTokenCmd(v),
	)
	return root
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		_ = v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
	}
}
