// Package cmd implements the xylem command line.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chazu/xylem/pkg/config"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Settings flags are bound to the
// global viper instance and win over XYLEM_* variables and the config file
// when given.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "xylem",
		Short:         "Boolean operations on polyhedral solids",
		Long:          "Xylem evaluates design scripts and boolean scenes with a general fuse engine.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default .xylem.yaml)")
	pf.Float64("fuzzy", 0, "additional tolerance for coincidence checks")
	pf.Bool("parallel", false, "run intersection passes in parallel")
	pf.Int("workers", 0, "parallel worker limit (0 means GOMAXPROCS)")
	pf.Bool("non-destructive", false, "never modify argument tolerances")
	pf.String("glue", "off", "glue mode: off, shift or full")
	pf.Bool("check-inverted", true, "detect and complement inside-out solids")
	pf.Bool("use-obb", false, "use oriented bounding boxes")
	pf.Duration("timeout", 0, "script evaluation timeout")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")

	root.AddCommand(newEvalCmd(), newWatchCmd(), newBopCmd())
	return root
}

func initConfig(cmd *cobra.Command) error {
	v := viper.GetViper()
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".xylem")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix("XYLEM")
	v.AutomaticEnv()

	// A missing default config file is fine; we use defaults.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	for _, key := range []string{
		"fuzzy", "parallel", "workers", "non_destructive", "glue",
		"check_inverted", "use_obb", "timeout", "log_level", "log_format",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(strings.ReplaceAll(key, "_", "-"))); err != nil {
			return err
		}
	}
	return nil
}

// settings loads the configuration and the logger, which writes to the
// command's error stream.
func settings(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, cfg.NewLogger(cmd.ErrOrStderr()), nil
}
