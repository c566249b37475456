// Package simulacrumcmder
package simulacrumcmder

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	addcmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/add"
	configcmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/config"
	episodecmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/episode"
	ingestcmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/ingest"
	initcmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/init"
	learncmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/learn"
	maintaincmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/maintain"
	plancmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/plan"
	querycmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/query"
	sessioncmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/session"
	statscmder "github.com/papercomputeco/simulacrum/cmd/simulacrum/stats"
	versioncmder "github.com/papercomputeco/simulacrum/cmd/version"
	"github.com/papercomputeco/simulacrum/pkg/logger"
)

const simulacrumLongDesc string = `Simulacrum is hierarchical memory for your agents.

Conversation turns compress into chunks as they age, summaries and
learnings index into a vector store, and a topology graph wires entities
to the memories that mention them. Retrieval pulls from every layer and
assembles a budgeted context.

Get started:
  simulacrum init            Initialize a local .simulacrum/ directory
  simulacrum add             Append a conversation turn
  simulacrum query           Retrieve memory relevant to a query
  simulacrum ingest          Ingest documents or a codebase`

const simulacrumShortDesc string = "Simulacrum - Agent Memory"

func NewSimulacrumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulacrum",
		Short: simulacrumShortDesc,
		Long:  simulacrumLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .simulacrum/ directory location")
	cmd.PersistentFlags().String("log-file", "", "Also write structured JSON logs to this file")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		logFile, _ := cmd.Flags().GetString("log-file")
		return installDefaultLogger(debug, logFile)
	}

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(sessioncmder.NewSessionCmd())
	cmd.AddCommand(addcmder.NewAddCmd())
	cmd.AddCommand(learncmder.NewLearnCmd())
	cmd.AddCommand(episodecmder.NewEpisodeCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(plancmder.NewPlanCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(maintaincmder.NewMaintainCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// installDefaultLogger sets the process-wide slog logger: pretty output on
// stderr, plus JSON records appended to logFile when one is given.
func installDefaultLogger(debug bool, logFile string) error {
	pretty := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(debug),
		logger.WithWriter(os.Stderr),
	)

	if logFile == "" {
		slog.SetDefault(pretty)
		return nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	jsonLogger := logger.New(
		logger.WithJSON(true),
		logger.WithDebug(debug),
		logger.WithWriter(f),
	)

	slog.SetDefault(logger.Multi(pretty, jsonLogger))
	return nil
}
