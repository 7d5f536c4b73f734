package main

import (
	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-bot/internal/cache"
	"github.com/spec-kit/helpdesk-bot/internal/service"
)

var rosterTeam string

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect on-call rosters",
}

var rosterShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current roster and recent history",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		rosters := service.NewRosterService(service.RosterDependencies{
			RosterRepo:   store.Rosters,
			Resolver:     service.NewMemberResolver(cache.NewMemoryMemberCache(nil), nil, 0, logger),
			Logger:       logger,
			HistoryLimit: cfg.Roster.HistoryLimit,
		})
		team := rosterTeam
		if team == "" {
			team = cfg.Slack.TeamID
		}
		snapshot, err := rosters.Snapshot(cmd.Context(), team)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), snapshot)
	},
}

func init() {
	rosterShowCmd.Flags().StringVar(&rosterTeam, "team", "", "team id (default SLACK_TEAM_ID)")
	rosterCmd.AddCommand(rosterShowCmd)
}
