package episodecmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/logger"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
	"github.com/papercomputeco/simulacrum/pkg/utils"
)

type listCommander struct {
	storeDir string
	limit    int
	debug    bool

	configDir string
	logger    *zap.Logger
}

const listLongDesc string = `List recent episodes, most recent first.

Examples:
  simulacrum episode list
  simulacrum episode list --limit 20`

const listShortDesc string = "List recent episodes"

func newListCmd() *cobra.Command {
	cmder := &listCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
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
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 10, "Maximum episodes to show (0 for all)")

	return cmd
}

func (c *listCommander) run(ctx context.Context) error {
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

	episodes := store.Episodes(c.limit)

	fmt.Println()
	if len(episodes) == 0 {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No episodes recorded."))
		return nil
	}

	for _, ep := range episodes {
		fmt.Printf("  %s  %s  %s\n",
			cliui.DimStyle.Render(utils.Truncate(ep.ID, 12)),
			cliui.KeyStyle.Render(fmt.Sprintf("%-9s", ep.Outcome)),
			cliui.ValueStyle.Render(ep.Summary),
		)
		fmt.Printf("  %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%s · %d turns · %d learnings",
				ep.Timestamp.Format(time.RFC3339), ep.TurnCount, len(ep.LearningsExtracted))),
		)
	}
	fmt.Println()

	return nil
}
