package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soyeahso/deskflow/internal/config"
	"github.com/soyeahso/deskflow/internal/domain"
	"github.com/soyeahso/deskflow/internal/store"
)

func newEscalationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "Inspect and update the escalation queue",
	}

	cmd.AddCommand(newEscalationsListCmd())
	cmd.AddCommand(newEscalationsUpdateCmd())
	return cmd
}

func openEscalationStore() (*store.SQLiteEscalationStore, func(), error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(paths.DatabasePath(cfg), log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return store.NewSQLiteEscalationStore(db), func() { db.Close() }, nil
}

func newEscalationsListCmd() *cobra.Command {
	var (
		status   string
		priority string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List escalations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if priority != "" && !domain.ValidPriority(domain.Priority(priority)) {
				return fmt.Errorf("invalid priority: %s", priority)
			}

			escalations, closeDB, err := openEscalationStore()
			if err != nil {
				return err
			}
			defer closeDB()

			records, err := escalations.List(cmd.Context(), status, domain.Priority(priority), limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, in_progress, resolved, cancelled)")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority (low, medium, high, critical)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max records to return")

	return cmd
}

func newEscalationsUpdateCmd() *cobra.Command {
	var (
		status string
		agent  string
		notes  string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an escalation's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			escalations, closeDB, err := openEscalationStore()
			if err != nil {
				return err
			}
			defer closeDB()

			rec, err := escalations.UpdateStatus(cmd.Context(), args[0], status, agent, notes)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "new status (pending, in_progress, resolved, cancelled)")
	cmd.Flags().StringVar(&agent, "agent", "", "assign an agent")
	cmd.Flags().StringVar(&notes, "notes", "", "resolution notes")
	cmd.MarkFlagRequired("status")

	return cmd
}
