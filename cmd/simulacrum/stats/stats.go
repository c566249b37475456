// Package statscmder provides the stats command for inspecting the
// memory store's population.
package statscmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/logger"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
)

type statsCommander struct {
	storeDir string
	jsonOut  bool
	debug    bool

	configDir string
	logger    *zap.Logger
}

const statsLongDesc string = `Show memory store statistics.

Reports chunk counts per tier, topology graph population, and episode,
learning, and pending turn counts.

Examples:
  simulacrum stats
  simulacrum stats --json`

const statsShortDesc string = "Show memory store statistics"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
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
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print statistics as JSON")

	return cmd
}

func (c *statsCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	store, state, err := simulacrumutils.OpenSession(ctx, simulacrumutils.OpenSessionOpts{
		ConfigDir: c.configDir,
		StoreDir:  c.storeDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	stats := store.Stats()

	if c.jsonOut {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling stats: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println()
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Session:"),
		cliui.DimStyle.Render(state.SessionID),
	)

	printStat := func(label string, value int) {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render(fmt.Sprintf("%-16s", label)),
			cliui.ValueStyle.Render(fmt.Sprintf("%d", value)),
		)
	}

	printStat("Chunks", stats.Chunks.TotalChunks)
	printStat("  micro", stats.Chunks.MicroChunks)
	printStat("  macro", stats.Chunks.MacroChunks)
	printStat("  tokens", stats.Chunks.TotalTokens)
	printStat("Pending turns", stats.Pending)
	printStat("Topology nodes", stats.Topology.Nodes)
	printStat("  entities", stats.Topology.EntityNodes)
	printStat("  memories", stats.Topology.MemoryNodes)
	printStat("  edges", stats.Topology.Edges)
	printStat("Learnings", stats.Learnings)
	printStat("Episodes", stats.Episodes)
	fmt.Println()

	return nil
}
