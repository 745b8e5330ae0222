package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kontribute/internal/app"
	"kontribute/pkg/logging"
	"kontribute/pkg/utils"
)

// offline marks commands that need no backends.
const offline = "offline"

type cli struct {
	verbose bool
	timeout time.Duration
	logger  *zap.Logger
	app     *app.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "kontribute",
		Short:         "Read stories, marketplace pages and ledger records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.LoadConfig()
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if c.verbose {
				level = "debug"
			}
			c.logger, err = logging.New(level, "console")
			if err != nil {
				return err
			}
			if cmd.Annotations[offline] != "" {
				return nil
			}
			c.app, err = app.New(cfg, c.logger, nil)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.app != nil {
				_ = c.app.Close()
			}
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "overall deadline per command")

	root.AddCommand(c.storyCmd(), c.marketCmd(), c.ledgerCmd(), c.registryCmd())
	return root
}

// ctx bounds a command by --timeout.
func (c *cli) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, c.timeout)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
