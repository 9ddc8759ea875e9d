package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/hxglue"
	"github.com/pthm/hxglue/lib/config"
	"github.com/pthm/hxglue/lib/logger"
)

const (
	version        = "0.1.0"
	defaultEnvFile = ".env"
)

// rootOptions holds the global flags and what PersistentPreRunE loads from
// them.
type rootOptions struct {
	configPath string
	envFile    string

	cfg *config.Config
	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "hxglue",
		Short: "hxglue - anti-forgery tokens, error views and morphing for htmx pages",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before the config")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMorphCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(newVisitCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func (o *rootOptions) load() error {
	if o.envFile != "" {
		// A missing default .env is normal; an explicit one must exist.
		if err := godotenv.Load(o.envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || o.envFile != defaultEnvFile {
				return fmt.Errorf("load %s: %w", o.envFile, err)
			}
		}
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(logger.Config{
		Env:     cfg.Log.Env,
		Level:   cfg.Log.Level,
		Service: "hxglue",
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	o.cfg = cfg
	o.log = log
	return nil
}

// runtimeOptions maps the loaded config onto runtime options.
func (o *rootOptions) runtimeOptions() []hxglue.Option {
	return []hxglue.Option{
		hxglue.FromConfig(o.cfg),
		hxglue.WithStandardHooks(),
		hxglue.WithLogger(o.log.Named("runtime")),
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hxglue version %s\n", version)
		},
	}
}
