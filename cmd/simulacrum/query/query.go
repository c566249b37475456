// Package querycmder provides the query command for retrieving relevant
// memory and assembling it into budgeted context.
package querycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/logger"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
)

type queryCommander struct {
	storeDir     string
	budgetTokens uint
	system       string
	jsonOut      bool
	plain        bool
	debug        bool

	configDir string
	logger    *zap.Logger
}

const queryLongDesc string = `Retrieve memory relevant to a query.

Retrieval pulls from every layer: recent hot turns, semantic matches over
chunk summaries and learnings, the topology neighborhood of entities
named in the query, and recent episodes. The bundle is then assembled
into sectioned prompt text within the configured token budget.

By default the assembled context renders as markdown. Use --json for the
raw structured bundle, or --plain to skip markdown rendering.

Examples:
  simulacrum query "what did we decide about the auth flow?"
  simulacrum query --budget-tokens 8000 "chunk eviction policy"
  simulacrum query --json "payments service"`

const queryShortDesc string = "Retrieve memory relevant to a query"

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.configDir = configDir

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagStoreDir, config.FlagBudgetTokens})
			cmder.storeDir = v.GetString("storage.dir")
			cmder.budgetTokens = v.GetUint("budget.total_tokens")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), args[0])
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagStoreDir, &cmder.storeDir)
	config.AddUintFlag(cmd, fs, config.FlagBudgetTokens, &cmder.budgetTokens)
	cmd.Flags().StringVar(&cmder.system, "system", "", "System prompt to lead the assembled context")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the structured retrieval bundle as JSON")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print assembled context without markdown rendering")

	return cmd
}

func (c *queryCommander) run(ctx context.Context, query string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	store, _, err := simulacrumutils.OpenSession(ctx, simulacrumutils.OpenSessionOpts{
		ConfigDir:    c.configDir,
		StoreDir:     c.storeDir,
		BudgetTokens: c.budgetTokens,
		Logger:       c.logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	mc := store.GetRelevant(ctx, query)

	if c.jsonOut {
		data, err := json.MarshalIndent(mc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling retrieval bundle: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if mc.IsEmpty() {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("Nothing relevant in memory."))
		return nil
	}

	assembled := store.AssembleContext(c.system, mc)

	if c.plain {
		fmt.Println(assembled)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(assembled)
	if err != nil {
		// Fall back to the raw text when the terminal renderer fails.
		slog.Warn("markdown rendering failed", "error", err)
		fmt.Println(assembled)
		return nil
	}
	fmt.Print(rendered)

	return nil
}
