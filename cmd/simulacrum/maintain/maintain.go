// Package maintaincmder provides the maintain command for running the
// periodic chunk lifecycle pass.
package maintaincmder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/logger"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
)

type maintainCommander struct {
	storeDir string
	debug    bool

	configDir string
	logger    *zap.Logger
}

const maintainLongDesc string = `Run the periodic memory lifecycle pass.

Warm chunks past their retention window (or beyond the warm count cap)
demote to cold gzip archives, and archives past their retention expire.
When an event stream is configured, each demotion publishes a
chunk_demoted event.

Run this from cron or a scheduler; it is safe to run at any frequency.

Examples:
  simulacrum maintain`

const maintainShortDesc string = "Run the periodic memory lifecycle pass"

func NewMaintainCmd() *cobra.Command {
	cmder := &maintainCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "maintain",
		Short: maintainShortDesc,
		Long:  maintainLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagStoreDir})
			cmder.storeDir = v.GetString("storage.dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagStoreDir, &cmder.storeDir)

	return cmd
}

func (c *maintainCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	store, _, err := simulacrumutils.OpenSession(ctx, simulacrumutils.OpenSessionOpts{
		ConfigDir: c.configDir,
		StoreDir:  c.storeDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println()
	if err := cliui.Step(os.Stdout, "Running lifecycle pass", func() error {
		return store.Maintain(ctx, time.Now())
	}); err != nil {
		return err
	}
	fmt.Println()

	return nil
}
