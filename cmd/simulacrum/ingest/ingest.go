// Package ingestcmder provides the ingest command for loading documents
// and codebases into the topology graph.
package ingestcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/config"
	"github.com/papercomputeco/simulacrum/pkg/logger"
	simulacrumutils "github.com/papercomputeco/simulacrum/pkg/simulacrum/utils"
)

type ingestCommander struct {
	storeDir string
	patterns []string
	debug    bool

	configDir string
	logger    *zap.Logger
}

const ingestLongDesc string = `Ingest a document or codebase into memory.

A file is split into sections on markdown headings (code fences stay
intact), and each section becomes a memory node wired into the topology
graph. When an embedding provider is configured, sections are also
indexed for semantic retrieval.

A directory is walked recursively; recognized source and markdown files
are ingested, skipping vendored and generated trees. Use --pattern to
restrict which files match.

Examples:
  simulacrum ingest docs/architecture.md
  simulacrum ingest ./internal --pattern '*.go'
  simulacrum ingest . --pattern '*.md' --pattern '*.sql'`

const ingestShortDesc string = "Ingest a document or codebase into memory"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
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
	cmd.Flags().StringSliceVarP(&cmder.patterns, "pattern", "p", nil, "Glob pattern files must match (repeatable)")

	return cmd
}

func (c *ingestCommander) run(ctx context.Context, path string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", path, err)
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

	var nodes int

	fmt.Println()
	if info.IsDir() {
		err = cliui.Step(os.Stdout, fmt.Sprintf("Ingesting codebase %s", path), func() error {
			var stepErr error
			nodes, stepErr = store.IngestCodebase(ctx, path, c.patterns...)
			return stepErr
		})
	} else {
		err = cliui.Step(os.Stdout, fmt.Sprintf("Ingesting %s", path), func() error {
			content, readErr := os.ReadFile(path)
			if readErr != nil {
				return fmt.Errorf("reading %s: %w", path, readErr)
			}

			var stepErr error
			nodes, stepErr = store.IngestDocument(ctx, path, string(content))
			return stepErr
		})
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Memory nodes:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%d", nodes)),
	)

	return nil
}
