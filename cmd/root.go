// Package cmd defines the CLI commands for the preserver executable.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mweiler/primary-preserver/internal/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preserver",
		Short: "Archives primary-source Einstein publications as PDFs.",
		Long: `preserver reads a bibliography, resolves each record to candidate URLs on
trusted archive hosts, downloads or renders a PDF per record, validates the
result against content-plausibility rules, and writes a CSV+JSONL ledger of
everything it did. Files that download but fail validation are kept in a
quarantine directory for manual review.`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./preserver.yaml)")

	cmd.AddCommand(newArchiveCmd())
	return cmd
}

// initConfig seeds Viper with defaults, the optional config file, and the
// PRESERVER_* environment.
func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("preserver")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		}
	}

	v.SetEnvPrefix("PRESERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
