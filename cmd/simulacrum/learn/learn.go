// Package learncmder provides the learn command for recording extracted
// learnings in the active session's memory.
package learncmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/logger"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
	"github.com/papercomputeco/simulacrum/pkg/turn"
	"github.com/papercomputeco/simulacrum/pkg/utils"
)

type learnCommander struct {
	storeDir   string
	category   string
	confidence float64
	debug      bool

	configDir string
	logger    *zap.Logger
}

const learnLongDesc string = `Record an extracted learning.

Learnings are content-addressed facts distilled from conversation:
recording the same fact in the same category twice is a no-op. When an
embedding provider is configured the learning is also indexed for
semantic retrieval.

Categories: fact, preference, constraint, pattern, dead_end, template,
heuristic.

Examples:
  simulacrum learn "the staging cluster only accepts IPv6"
  simulacrum learn --category constraint "never force-push to main"
  simulacrum learn --category dead_end --confidence 0.9 "retrying the flaky test does not help"`

const learnShortDesc string = "Record an extracted learning"

func NewLearnCmd() *cobra.Command {
	cmder := &learnCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "learn <fact>",
		Short: learnShortDesc,
		Long:  learnLongDesc,
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
	cmd.Flags().StringVarP(&cmder.category, "category", "c", string(turn.CategoryFact), "Learning category")
	cmd.Flags().Float64Var(&cmder.confidence, "confidence", 0.8, "Confidence score (0-1)")

	return cmd
}

var validCategories = map[turn.Category]bool{
	turn.CategoryFact:       true,
	turn.CategoryPreference: true,
	turn.CategoryConstraint: true,
	turn.CategoryPattern:    true,
	turn.CategoryDeadEnd:    true,
	turn.CategoryTemplate:   true,
	turn.CategoryHeuristic:  true,
}

func (c *learnCommander) run(ctx context.Context, fact string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	category := turn.Category(c.category)
	if !validCategories[category] {
		return fmt.Errorf("invalid learning category: %q", c.category)
	}
	if c.confidence < 0 || c.confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1, got %v", c.confidence)
	}

	store, _, err := simulacrumutils.OpenSession(ctx, simulacrumutils.OpenSessionOpts{
		ConfigDir: c.configDir,
		StoreDir:  c.storeDir,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	l := store.AddLearning(fact, category, c.confidence)

	fmt.Printf("\n  %s Recorded %s learning %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(string(category)),
		cliui.DimStyle.Render(utils.Truncate(l.ID, 16)),
	)

	return nil
}
