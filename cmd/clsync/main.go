// clsync mirrors claude.ai projects and their knowledge files to local disk
// by driving a logged-in Chrome session over the DevTools protocol.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clsync/internal/config"
	"clsync/internal/logging"
)

var version = "dev"

var (
	cfg     *config.Config
	log     *zap.SugaredLogger
	cfgPath string
	debug   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clsync",
		Short:         "Sync claude.ai project knowledge to local disk",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if debug {
				cfg.Logging.Debug = true
			}

			zapCfg := zap.NewProductionConfig()
			zapCfg.OutputPaths = []string{"stderr"}
			if cfg.Logging.Debug {
				zapCfg = zap.NewDevelopmentConfig()
			}
			logger, err := zapCfg.Build()
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			log = logger.Sugar()

			level := cfg.Logging.Level
			if cfg.Logging.Debug {
				level = "debug"
			}
			return logging.Initialize(logging.Options{
				Enabled:    true,
				Dir:        cfg.Logging.Dir,
				Level:      level,
				Categories: cfg.Logging.Categories,
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.CloseAll()
			if log != nil {
				log.Sync()
			}
		},
	}

	defaultCfg := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultCfg = filepath.Join(home, ".clsync", "config.yaml")
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "config file path")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newSyncCmd())
	root.AddCommand(newProjectsCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newBrowserCmd())
	return root
}
