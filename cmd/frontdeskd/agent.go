package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/frontdeskd/internal/config"
	"github.com/fyrsmithlabs/frontdeskd/internal/helpreq"
	"github.com/fyrsmithlabs/frontdeskd/internal/knowledge"
	"github.com/fyrsmithlabs/frontdeskd/internal/logging"
	"github.com/fyrsmithlabs/frontdeskd/internal/oracle"
	"github.com/fyrsmithlabs/frontdeskd/internal/prompts"
	"github.com/fyrsmithlabs/frontdeskd/internal/session"
	"github.com/fyrsmithlabs/frontdeskd/internal/store"
)

var (
	agentCallerID string
	agentContact  string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run one call against the agent on stdin",
	Long: `Run a single conversation session reading caller utterances from
stdin, one per line. Replies print to stdout. EOF ends the call.

Examples:
  # Interactive call
  frontdeskd agent --contact "+1-555-0001"

  # Scripted call
  echo "do you do bridal parties" | frontdeskd agent --contact "+1-555-0001"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context())
	},
}

func init() {
	agentCmd.Flags().StringVar(&agentCallerID, "caller-id", "stdin_caller", "caller identity for the call log")
	agentCmd.Flags().StringVar(&agentContact, "contact", "", "caller contact address for follow-ups (required)")
	_ = agentCmd.MarkFlagRequired("contact")
}

func runAgent(ctx context.Context) error {
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

	index, err := knowledge.NewIndex(nil, st, logger)
	if err != nil {
		return fmt.Errorf("failed to create knowledge index: %w", err)
	}
	if err := index.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to load knowledge index: %w", err)
	}

	notifier, natsConn, err := buildNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to connect notifications: %w", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	lifecycle, err := helpreq.NewService(st, index, notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to create lifecycle service: %w", err)
	}

	oracleClient, err := buildOracle(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create oracle client: %w", err)
	}

	sess, err := session.New(session.Config{
		CallerID:      agentCallerID,
		CallerContact: agentContact,
		Business: prompts.BusinessInfo{
			Name:     cfg.Business.Name,
			Hours:    cfg.Business.Hours,
			Phone:    cfg.Business.Phone,
			Services: cfg.Business.Services,
			Pricing:  cfg.Business.Pricing,
			Location: cfg.Business.Location,
		},
		ContextWindow: cfg.Session.ContextWindow,
		MaxDuration:   cfg.Session.MaxDuration,
	}, st, index, oracleClient, lifecycle, func(_ context.Context, text string) error {
		_, err := fmt.Printf("agent> %s\n", text)
		return err
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	events := make(chan session.Event)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			select {
			case events <- session.Event{Role: oracle.RoleCaller, Text: text}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error("failed to read stdin", zap.Error(err))
		}
	}()

	return sess.Run(ctx, events)
}
