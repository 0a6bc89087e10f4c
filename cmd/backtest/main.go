// backtest submits a backtest run and follows it to completion.
// Usage: go run ./cmd/backtest --url http://localhost:8000 --instrument ES
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flofmatrix/console-sync/internal/api"
	"github.com/flofmatrix/console-sync/internal/model"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "backend base URL")
	instrument := flag.String("instrument", "ES", "instrument to backtest")
	profile := flag.String("profile", "futures", "execution profile")
	fillLevel := flag.Int("fill-level", 2, "fill model level")
	engine := flag.String("engine", "manual", "backtest engine")
	dataFile := flag.String("data-file", "", "override data file (optional)")
	pollInterval := flag.Duration("poll-interval", 500*time.Millisecond, "status poll interval")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupted")
		cancel()
	}()

	client := api.NewClient(*baseURL, api.WithLogger(logger))

	params := model.BacktestParams{
		Instrument: *instrument,
		Profile:    *profile,
		FillLevel:  *fillLevel,
		Engine:     *engine,
		DataFile:   *dataFile,
	}

	resp, err := client.RunBacktest(ctx, params)
	if err != nil {
		logger.Error("submit failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("job %s submitted (%s)\n", resp.JobID, resp.Status)

	ticker := time.NewTicker(*pollInterval)
	defer ticker.Stop()

	var lastProgress = -1
	for {
		job, err := client.GetBacktestStatus(ctx, resp.JobID)
		if err != nil {
			if ctx.Err() != nil {
				os.Exit(1)
			}
			logger.Warn("status poll failed", "error", err)
		} else {
			if job.Progress != lastProgress {
				fmt.Printf("  %s %d/%d bars\n", job.Status, job.Progress, job.TotalBars)
				lastProgress = job.Progress
			}
			if job.Status.IsTerminal() {
				printResult(job)
				if job.Status == model.JobFailed {
					os.Exit(1)
				}
				return
			}
		}

		select {
		case <-ctx.Done():
			os.Exit(1)
		case <-ticker.C:
		}
	}
}

func printResult(job *model.BacktestJob) {
	if job.Status == model.JobFailed {
		fmt.Printf("job %s failed: %s\n", job.JobID, job.Error)
		return
	}

	fmt.Printf("job %s completed\n", job.JobID)
	if s := job.Summary; s != nil {
		fmt.Printf("  trades:        %d\n", s.TradeCount)
		fmt.Printf("  total pnl:     %.2f\n", s.TotalPnL)
		fmt.Printf("  final equity:  %.2f\n", s.FinalEquity)
		fmt.Printf("  win rate:      %.1f%%\n", s.WinRate*100)
		fmt.Printf("  max drawdown:  %.2f (%.1f%%)\n", s.MaxDrawdown, s.MaxDrawdownPct)
	}
}
