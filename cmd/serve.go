package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/wordmine/internal/catalog"
	"github.com/abhisek/wordmine/internal/config"
	"github.com/abhisek/wordmine/internal/llm"
	"github.com/abhisek/wordmine/internal/mastery"
	"github.com/abhisek/wordmine/internal/matcher"
	"github.com/abhisek/wordmine/internal/progress"
	"github.com/abhisek/wordmine/internal/reminder"
	"github.com/abhisek/wordmine/internal/server"
	"github.com/abhisek/wordmine/internal/session"
	"github.com/abhisek/wordmine/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the review reminder job",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, st, err := setup(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		lookup := catalog.NewSQL(st.Catalog())
		m, err := buildMatcher(ctx, cfg, lookup, st, logger)
		if err != nil {
			return err
		}

		ledger := mastery.NewLedger(st.Gems(), cfg.Ledger,
			mastery.WithCatalog(lookup),
			mastery.WithLogger(logger.WithField("component", "ledger")),
		)
		collector := session.NewCollector(session.Deps{
			Sessions: st.Sessions(),
			Catalog:  lookup,
			Matcher:  m,
			Ledger:   ledger,
			Progress: progress.NewAggregator(st.Progress()),
			Logger:   logger.WithField("component", "ingest"),
		}, cfg.Ingest)

		identity, err := server.NewIdentityResolver(cfg.Auth)
		if err != nil {
			return err
		}
		srv, err := server.New(server.Deps{
			Collector: collector,
			Sessions:  st.Sessions(),
			Ledger:    ledger,
			DB:        st,
			Identity:  identity,
		}, cfg, logger)
		if err != nil {
			return err
		}

		if cfg.Reminder.Enabled {
			remLog := logger.WithField("component", "reminder")
			job := reminder.New(st.Gems(), reminder.LogNotifier{Log: remLog}, cfg.Reminder, remLog)
			if err := job.Start(); err != nil {
				return fmt.Errorf("start reminder job: %w", err)
			}
			defer job.Stop()
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

// buildMatcher returns the configured matcher. Only the llm strategy
// needs a provider; its calls are recorded in the event log.
func buildMatcher(ctx context.Context, cfg *config.Config, lookup catalog.Lookup, st *store.Store, logger *logrus.Logger) (matcher.Matcher, error) {
	var provider llm.Provider
	if cfg.Matcher.Strategy == matcher.StrategyLLM {
		p, err := llm.NewProvider(ctx, cfg.LLM, st.Events(), logger.WithField("component", "llm"))
		if err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
		provider = p
	}
	m, err := matcher.New(cfg.Matcher, lookup, provider, logger.WithField("component", "matcher"))
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}
	return m, nil
}
