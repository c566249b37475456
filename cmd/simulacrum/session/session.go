// Package sessioncmder provides the session command for managing the
// active memory session tracked in the .simulacrum/ directory.
package sessioncmder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/simulacrum/pkg/cliui"
	"github.com/papercomputeco/simulacrum/pkg/dotdir"
)

const sessionLongDesc string = `Manage the active memory session.

Commands that append to memory (add, learn, episode) tag everything with
the active session's ID. The session persists across CLI invocations in
.simulacrum/session.json until explicitly ended.

Use subcommands to start, end, or inspect the session:
  simulacrum session start     Start a new session
  simulacrum session end       End the active session
  simulacrum session status    Show the active session

Examples:
  simulacrum session start --persona reviewer
  simulacrum session status
  simulacrum session end`

const sessionShortDesc string = "Manage the active memory session"

func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: sessionShortDesc,
		Long:  sessionLongDesc,
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newEndCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func newStartCmd() *cobra.Command {
	var persona string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new session",
		Long:  "Start a new session, replacing any active one. Memory written so far is untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStart(persona, configDir)
		},
	}

	cmd.Flags().StringVarP(&persona, "persona", "p", "", "Persona to scope retrieval to")

	return cmd
}

func runStart(persona, configDir string) error {
	state := &dotdir.SessionState{
		SessionID: uuid.NewString(),
		Persona:   persona,
		StartedAt: time.Now().UTC(),
	}

	if err := dotdir.NewManager().SaveSessionState(state, configDir); err != nil {
		return err
	}

	fmt.Printf("\n  %s Started session %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(state.SessionID),
	)
	if persona != "" {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render("Persona:"),
			cliui.ValueStyle.Render(persona),
		)
	}
	fmt.Println()

	return nil
}

func newEndCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "end",
		Short: "End the active session",
		Long:  "End the active session. The next memory-writing command starts a fresh one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runEnd(configDir)
		},
	}

	return cmd
}

func runEnd(configDir string) error {
	if err := dotdir.NewManager().ClearSessionState(configDir); err != nil {
		return err
	}

	fmt.Printf("\n  %s Session ended\n\n", cliui.SuccessMark)
	return nil
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		Long:  "Show the active session's ID, persona, and age.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(configDir)
		},
	}

	return cmd
}

func runStatus(configDir string) error {
	state, err := dotdir.NewManager().LoadSessionState(configDir)
	if err != nil {
		return err
	}

	fmt.Println()
	if state == nil {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No active session."))
		return nil
	}

	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Session:"),
		cliui.ValueStyle.Render(state.SessionID),
	)
	if state.Persona != "" {
		fmt.Printf("  %s %s\n",
			cliui.KeyStyle.Render("Persona:"),
			cliui.ValueStyle.Render(state.Persona),
		)
	}
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Started:"),
		cliui.DimStyle.Render(fmt.Sprintf("%s (%s ago)",
			state.StartedAt.Format(time.RFC3339),
			cliui.FormatDuration(time.Since(state.StartedAt)),
		)),
	)

	return nil
}
