package episodecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/episode"
	"github.com/papercomputeco/simulacrum/pkg/logger"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
	"github.com/papercomputeco/simulacrum/pkg/utils"
)

type recordCommander struct {
	storeDir  string
	outcome   string
	learnings []string
	models    []string
	turnCount int
	debug     bool

	configDir string
	logger    *zap.Logger
}

const recordLongDesc string = `Record a completed attempt in the episode log.

Outcomes: succeeded, failed, partial, abandoned.

When an event stream is configured, recording an episode publishes an
episode_recorded event.

Examples:
  simulacrum episode record "migrated the chunk index" --outcome succeeded
  simulacrum episode record "tried the v2 parser" --outcome failed --turns 42`

const recordShortDesc string = "Record a completed attempt"

func newRecordCmd() *cobra.Command {
	cmder := &recordCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "record <summary>",
		Short: recordShortDesc,
		Long:  recordLongDesc,
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
	cmd.Flags().StringVarP(&cmder.outcome, "outcome", "o", string(episode.OutcomeSucceeded), "How the attempt ended")
	cmd.Flags().StringSliceVar(&cmder.learnings, "learning", nil, "Learning ID this episode produced (repeatable)")
	cmd.Flags().StringSliceVar(&cmder.models, "model", nil, "Model involved in the attempt (repeatable)")
	cmd.Flags().IntVar(&cmder.turnCount, "turns", 0, "Number of turns the attempt took")

	return cmd
}

var validOutcomes = map[episode.Outcome]bool{
	episode.OutcomeSucceeded: true,
	episode.OutcomeFailed:    true,
	episode.OutcomePartial:   true,
	episode.OutcomeAbandoned: true,
}

func (c *recordCommander) run(ctx context.Context, summary string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	outcome := episode.Outcome(c.outcome)
	if !validOutcomes[outcome] {
		return fmt.Errorf("invalid outcome: %q", c.outcome)
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

	id, err := store.AddEpisode(summary, outcome, c.learnings, c.models, c.turnCount)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Recorded %s episode %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(string(outcome)),
		cliui.DimStyle.Render(utils.Truncate(id, 16)),
	)

	return nil
}
