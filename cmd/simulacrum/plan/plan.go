// Package plancmder provides the plan command for categorized knowledge
// retrieval against a goal.
package plancmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/logger"
	"github.com/papercomputeco/simulacrum/pkg/retrieval"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
	"github.com/papercomputeco/simulacrum/pkg/turn"
)

type planCommander struct {
	storeDir string
	jsonOut  bool
	debug    bool

	configDir string
	logger    *zap.Logger
}

const planLongDesc string = `Retrieve knowledge categorized for planning a goal.

Stored learnings are scored against the goal by keyword overlap, blended
with semantic similarity when a vector index is configured, and bucketed
by category. Dead-end learnings and failed episodes surface separately so
a planner can steer away from known failures.

Examples:
  simulacrum plan "add rate limiting to the ingest endpoint"
  simulacrum plan --json "migrate sessions to the new schema"`

const planShortDesc string = "Retrieve knowledge categorized for planning"

func NewPlanCmd() *cobra.Command {
	cmder := &planCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "plan <goal>",
		Short: planShortDesc,
		Long:  planLongDesc,
		Args:  cobra.ExactArgs(1),
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
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the planning bundle as JSON")

	return cmd
}

func (c *planCommander) run(ctx context.Context, goal string) error {
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

	pc := store.RetrieveForPlanning(ctx, goal)

	if c.jsonOut {
		data, err := json.MarshalIndent(pc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling planning bundle: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printPlanning(pc)
	return nil
}

func printPlanning(pc retrieval.PlanningContext) {
	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Goal:"),
		cliui.ValueStyle.Render(pc.Goal),
	)

	printCategory("Facts", pc.Facts)
	printCategory("Constraints", pc.Constraints)
	printCategory("Templates", pc.Templates)
	printCategory("Heuristics", pc.Heuristics)
	printCategory("Patterns", pc.Patterns)
	printCategory("Dead ends", pc.DeadEnds)

	if len(pc.Episodes) > 0 {
		fmt.Printf("  %s\n", cliui.KeyStyle.Render("Failed episodes:"))
		for _, ep := range pc.Episodes {
			fmt.Printf("    %s %s\n", cliui.FailMark, cliui.ValueStyle.Render(ep.Summary))
		}
		fmt.Println()
	}
}

func printCategory(label string, learnings []turn.Learning) {
	if len(learnings) == 0 {
		return
	}

	fmt.Printf("  %s\n", cliui.KeyStyle.Render(label+":"))
	for _, l := range learnings {
		fmt.Printf("    - %s %s\n",
			cliui.ValueStyle.Render(l.Fact),
			cliui.DimStyle.Render(fmt.Sprintf("(%.2f)", l.Confidence)),
		)
	}
	fmt.Println()
}
