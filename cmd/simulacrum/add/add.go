// Package addcmder provides the add command for appending conversation
// turns to the active session's memory.
package addcmder

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

type addCommander struct {
	storeDir string
	turnType string
	source   string
	model    string
	tags     []string
	debug    bool

	configDir string
	logger    *zap.Logger
}

const addLongDesc string = `Append a conversation turn to the active session's memory.

The turn lands in the current micro chunk immediately. Chunk sealing,
summarization, embedding, and event publishing all happen in the
background; the command returns as soon as the turn is persisted.

Turn types: user, assistant, system, tool_call, tool_result, checkpoint.

Examples:
  simulacrum add "how do I rotate the API key?"
  simulacrum add --type assistant --model llama3.2 "Use the rotate-key script."
  simulacrum add --type tool_result --source "go test" "ok  pkg/chunk  0.4s"`

const addShortDesc string = "Append a conversation turn to memory"

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "add <content>",
		Short: addShortDesc,
		Long:  addLongDesc,
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
	cmd.Flags().StringVarP(&cmder.turnType, "type", "t", string(turn.TypeUser), "Turn type")
	cmd.Flags().StringVar(&cmder.source, "source", "", "Where the content came from (file, tool, model)")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model that generated this turn")
	cmd.Flags().StringSliceVar(&cmder.tags, "tag", nil, "Semantic tags for retrieval (repeatable)")

	return cmd
}

// validTurnTypes are the types the CLI accepts. Summary and learning
// turns are produced by the engine, not appended directly.
var validTurnTypes = map[turn.Type]bool{
	turn.TypeUser:       true,
	turn.TypeAssistant:  true,
	turn.TypeSystem:     true,
	turn.TypeToolCall:   true,
	turn.TypeToolResult: true,
	turn.TypeCheckpoint: true,
}

func (c *addCommander) run(ctx context.Context, content string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	turnType := turn.Type(c.turnType)
	if !validTurnTypes[turnType] {
		return fmt.Errorf("invalid turn type: %q", c.turnType)
	}

	var opts []turn.Option
	if c.source != "" {
		opts = append(opts, turn.WithSource(c.source))
	}
	if c.model != "" {
		opts = append(opts, turn.WithModel(c.model))
	}
	if len(c.tags) > 0 {
		opts = append(opts, turn.WithTags(c.tags...))
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

	t := turn.New(content, turnType, opts...)
	store.AddTurn(t)

	fmt.Printf("\n  %s Added %s turn %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(string(turnType)),
		cliui.DimStyle.Render(utils.Truncate(t.ID, 16)),
	)

	return nil
}
