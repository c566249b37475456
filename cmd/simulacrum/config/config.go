// Package configcmder provides the config command for managing persistent
// simulacrum configuration stored in the .simulacrum/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent simulacrum configuration.

Configuration is stored as config.toml in the .simulacrum/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values, and SIMULACRUM_* environment variables sit between
the two.

Keys use dotted notation matching the TOML section structure:
  storage.dir,
  chunks.micro_chunk_size, chunks.hot_chunks,
  chunks.warm_retention_days, chunks.max_warm_chunks,
  budget.total_tokens,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  summarizer.provider, summarizer.target, summarizer.model,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  simulacrum config set <key> <value>    Set a configuration value
  simulacrum config get <key>            Get a configuration value
  simulacrum config list                 List all configuration values
  simulacrum config preset <name>        Apply a named preset

Examples:
  simulacrum config set embedding.model nomic-embed-text
  simulacrum config set vector_store.provider qdrant
  simulacrum config get embedding.model
  simulacrum config preset local
  simulacrum config list`

const configShortDesc string = "Manage persistent simulacrum configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}
