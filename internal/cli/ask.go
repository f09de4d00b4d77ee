package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harun/stockagent/internal/daemon"
	"github.com/harun/stockagent/pkg/orchestrator"
)

var askProgress bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the streamed chunks",
	Long: `Run a single query through the pipeline without starting the HTTP server.
Chunks are printed one per line as they are produced, exactly as GET /query
would stream them.`,
	Example: `  stockagent ask "What is the current price of AAPL?"
  stockagent ask --progress "How did MSFT trade in January 2024?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askProgress, "progress", false, "print stage progress chunks")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("question cannot be empty")
	}

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Keep stdout readable unless a level was asked for
	if logLevel == "" {
		cfg.Logging.Level = "warn"
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	return printEvents(cmd.OutOrStdout(), d.Pipeline().Run(ctx, query), askProgress)
}

// printEvents writes each chunk on its own line, skipping stage chunks
// unless progress is set
func printEvents(w io.Writer, events <-chan orchestrator.Event, progress bool) error {
	for ev := range events {
		if ev.Type == orchestrator.EventStage && !progress {
			continue
		}
		if _, err := fmt.Fprintln(w, ev.Text); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
