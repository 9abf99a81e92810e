package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tessellate-ai/maestro/internal/state"
	"github.com/tessellate-ai/maestro/pkg/models"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent orchestration sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "Number of sessions to show")
}

func runSessions(cmd *cobra.Command, args []string) error {
	db, err := state.Open(state.GlobalDBPath())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	sessions, err := db.ListSessions(sessionsLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet. Run one with: maestro run \"your request\"")
		return nil
	}

	for _, s := range sessions {
		query := s.Query
		if len(query) > 70 {
			query = query[:70] + "..."
		}
		fmt.Printf("%s  %s  %s\n", s.ID, outcomeLabel(s.Outcome), s.StartedAt.Local().Format("2006-01-02 15:04"))
		fmt.Printf("  %s\n", query)
		if s.Strategy != "" {
			fmt.Printf("  strategy: %s, duration: %dms\n", s.Strategy, s.DurationMs)
		}
		fmt.Println()
	}
	return nil
}

func outcomeLabel(outcome models.SessionOutcome) string {
	switch outcome {
	case models.OutcomeComplete:
		return color.GreenString("%-13s", string(outcome))
	case models.OutcomeBlocked:
		return color.YellowString("%-13s", string(outcome))
	case "":
		return fmt.Sprintf("%-13s", "(running)")
	default:
		return color.RedString("%-13s", string(outcome))
	}
}
