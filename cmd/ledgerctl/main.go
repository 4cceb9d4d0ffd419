package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/odyssey-erp/hotel-ledger/cmd/ledgerctl/cli"
	"github.com/odyssey-erp/hotel-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/hotel-ledger/internal/app"
)

const usage = `usage: ledgerctl <command> [args]

commands:
  trigger <job> [start end]   enqueue a job (ledger:gl_integrity)
  inspect                     show default queue counters
  archived [n]                list archived tasks
  retry <task-id>             re-run an archived task
  check-integrity [start end] build the trial balance inline (default: month to date)
`

func main() {
	if err := app.LoadEnv(); err != nil {
		slog.Default().Error("load env", slog.Any("error", err))
		os.Exit(1)
	}
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("ledgerctl", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger, command string, args []string) error {
	if command == "check-integrity" {
		rt, err := app.Open(ctx, cfg, logger, nil, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		start, end := monthToDate(time.Now().UTC())
		if len(args) == 2 {
			start, end = args[0], args[1]
		}
		return cli.CheckIntegrity(ctx, rt.Ledger.Reports, start, end, os.Stdout)
	}

	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer jobsCLI.Close()

	switch command {
	case "trigger":
		if len(args) == 0 {
			return fmt.Errorf("trigger: job name required")
		}
		info, err := jobsCLI.Trigger(ctx, args[0], args[1:]...)
		if err != nil {
			return err
		}
		logger.Info("job enqueued", slog.String("id", info.ID), slog.String("type", info.Type))
		return nil
	case "inspect":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		return printJSON(stats)
	case "archived":
		size := 10
		if len(args) > 0 {
			if size, err = strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("archived: %w", err)
			}
		}
		tasks, err := jobsCLI.ListArchived(ctx, size)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%s\t%s\t%s\t%s\n", t.ID, t.Type, t.LastFailedAt.Format(time.RFC3339), t.LastErr)
		}
		return nil
	case "retry":
		if len(args) != 1 {
			return fmt.Errorf("retry: task id required")
		}
		return jobsCLI.RunArchived(ctx, args[0])
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func monthToDate(now time.Time) (string, string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.Format(shared.DateLayout), now.Format(shared.DateLayout)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
