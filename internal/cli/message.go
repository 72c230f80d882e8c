package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soyeahso/deskflow/internal/config"
	"github.com/soyeahso/deskflow/internal/escalate"
	"github.com/soyeahso/deskflow/internal/intent"
	"github.com/soyeahso/deskflow/internal/knowledge"
	"github.com/soyeahso/deskflow/internal/orchestrator"
	"github.com/soyeahso/deskflow/internal/personalize"
	"github.com/soyeahso/deskflow/internal/store"
)

func newMessageCmd() *cobra.Command {
	var (
		userID    string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "message [text...]",
		Short: "Run one message through the pipeline and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			db, err := store.Open(paths.DatabasePath(cfg), log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			profiles := store.NewSQLiteProfileStore(db)
			interactions := store.NewSQLiteInteractionStore(db)

			orch := orchestrator.New(orchestrator.Config{
				MaxHistorySize:   cfg.History.MaxSize,
				HistoryWindow:    cfg.History.Window,
				KnowledgeIntents: cfg.Routing.KnowledgeIntents,
				Escalation: escalate.Config{
					MaxAttempts: cfg.Escalation.MaxAttempts,
					Rules:       cfg.Escalation.Rules,
				},
			}, orchestrator.Deps{
				Classifier:   intent.NewClassifier(nil, log),
				Knowledge:    knowledge.NewService(nil, log),
				Personalizer: personalize.New(profiles, interactions, log),
				Escalations:  store.NewSQLiteEscalationStore(db),
			}, log)
			if err := orch.Initialize(); err != nil {
				return err
			}

			resp := orch.ProcessMessage(cmd.Context(), orchestrator.Request{
				UserID:    userID,
				SessionID: sessionID,
				Message:   strings.Join(args, " "),
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user ID to process the message as")
	cmd.Flags().StringVar(&sessionID, "session", "", "session ID (default: a fresh session)")

	return cmd
}
