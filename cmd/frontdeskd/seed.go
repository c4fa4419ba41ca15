package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/frontdeskd/internal/config"
	"github.com/fyrsmithlabs/frontdeskd/internal/logging"
	"github.com/fyrsmithlabs/frontdeskd/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed starter knowledge and a sample help request",
	Long: `Seed the store with starter Q&A knowledge and one sample pending
help request so the dashboard has something to show.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

// seedKnowledge is the starter Q&A set for a new installation.
var seedKnowledge = []struct {
	question string
	answer   string
}{
	{
		question: "What are your hours?",
		answer:   "We're open Monday-Saturday 9AM-7PM, closed Sundays.",
	},
	{
		question: "How much is a haircut?",
		answer:   "Haircuts start at $45. Prices vary based on hair length and stylist.",
	},
	{
		question: "Do you take walk-ins?",
		answer:   "Yes, we accept walk-ins but recommend calling ahead to check availability.",
	},
	{
		question: "Where are you located?",
		answer:   "We're located at 123 Main Street in Downtown.",
	},
}

func runSeed(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logging.Sync(logger)
	}()

	st, err := store.Open(store.Config{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	for _, item := range seedKnowledge {
		id, err := st.CreateKnowledgeEntry(ctx, &store.KnowledgeEntry{
			Question: item.question,
			Answer:   item.answer,
			Source:   store.SourceSeed,
		})
		if err != nil {
			return fmt.Errorf("failed to seed knowledge %q: %w", item.question, err)
		}
		logger.Info("seeded knowledge",
			zap.String("id", id),
			zap.String("question", item.question),
		)
	}

	reqID, err := st.CreateHelpRequest(ctx, &store.HelpRequest{
		CallerID:      "sample_caller_1",
		CallerContact: "+1-555-999-0001",
		Question:      "Do you offer senior discounts?",
		Context:       "Caller asking about pricing for elderly customers",
		Status:        store.StatusPending,
	})
	if err != nil {
		return fmt.Errorf("failed to seed help request: %w", err)
	}
	logger.Info("seeded sample help request", zap.String("id", reqID))

	fmt.Printf("Seeded %d knowledge entries and 1 pending help request\n", len(seedKnowledge))
	return nil
}
