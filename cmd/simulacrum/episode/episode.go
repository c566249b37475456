// Package episodecmder provides the episode command for recording and
// listing completed attempts in the episode log.
package episodecmder

import (
	"github.com/spf13/cobra"
)

const episodeLongDesc string = `Record and inspect episodes.

An episode is the record of one completed attempt: what was tried, how it
ended, and which learnings it produced. Planning retrieval uses failed
episodes to steer away from known dead ends.

Use subcommands to record or list episodes:
  simulacrum episode record <summary>    Record a completed attempt
  simulacrum episode list                List recent episodes

Examples:
  simulacrum episode record "migrated the chunk index" --outcome succeeded
  simulacrum episode list --limit 20`

const episodeShortDesc string = "Record and inspect episodes"

func NewEpisodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episode",
		Short: episodeShortDesc,
		Long:  episodeLongDesc,
	}

	cmd.AddCommand(newRecordCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
