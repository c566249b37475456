package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
)

const presetLongDesc string = `Apply a named configuration preset.

Overwrites the config.toml file with a known-good provider combination:

  local     Hashed embeddings and an in-memory vector index. Works fully
            offline with no external services.
  ollama    Ollama embeddings and summarization with a local sqlite-vec
            index. Requires a running Ollama instance.
  server    Ollama embeddings with Qdrant and Kafka. For a shared
            deployment with external services.

Examples:
  simulacrum config preset local
  simulacrum config preset ollama`

const presetShortDesc string = "Apply a named configuration preset"

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset <name>",
		Short: presetShortDesc,
		Long:  presetLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPreset(args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runPreset(name, configDir string) error {
	cfg, err := config.PresetConfig(name)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("\n  %s Applied preset %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(name),
	)
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)

	return nil
}
