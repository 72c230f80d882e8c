package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/deskflow/internal/config"
	"github.com/soyeahso/deskflow/internal/delivery"
	"github.com/soyeahso/deskflow/internal/engage"
	"github.com/soyeahso/deskflow/internal/escalate"
	"github.com/soyeahso/deskflow/internal/gateway"
	"github.com/soyeahso/deskflow/internal/intent"
	"github.com/soyeahso/deskflow/internal/knowledge"
	"github.com/soyeahso/deskflow/internal/orchestrator"
	"github.com/soyeahso/deskflow/internal/personalize"
	"github.com/soyeahso/deskflow/internal/store"
)

// sessionSweepInterval is how often idle sessions are expired.
const sessionSweepInterval = time.Hour

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the deskflow server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
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
			escalations := store.NewSQLiteEscalationStore(db)
			tasks := store.NewSQLiteTaskStore(db)

			feed := delivery.NewBroadcaster(log)
			scheduler := engage.NewScheduler(feed, tasks, log)

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
				Scheduler:    scheduler,
				Escalations:  escalations,
			}, log)
			if err := orch.Initialize(); err != nil {
				return err
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Engagement.Enabled {
				interval := time.Duration(cfg.Engagement.WorkerIntervalSeconds) * time.Second
				worker := delivery.NewWorker(tasks, feed, interval, log)
				go worker.Run(ctx)
			} else {
				log.Info().Msg("engagement worker disabled, deferred tasks will queue up")
			}

			go sweepIdleSessions(ctx, orch, time.Duration(cfg.History.IdleExpiryHours)*time.Hour)

			srv := gateway.New(cfg, orch, log,
				gateway.WithEscalations(escalations),
				gateway.WithProfiles(profiles),
				gateway.WithFeed(feed),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan)")

	return cmd
}

// sweepIdleSessions periodically drops sessions idle longer than maxIdle.
func sweepIdleSessions(ctx context.Context, orch *orchestrator.Orchestrator, maxIdle time.Duration) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := orch.History().ExpireIdle(maxIdle); removed > 0 {
				log.Info().Int("removed", removed).Msg("expired idle sessions")
			}
		}
	}
}
