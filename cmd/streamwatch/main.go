// streamwatch connects to the backend push channel and prints every
// update to the console.
// Usage: go run ./cmd/streamwatch --url http://localhost:8000
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flofmatrix/console-sync/internal/console"
	"github.com/flofmatrix/console-sync/internal/model"
	"github.com/flofmatrix/console-sync/internal/stream"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "backend base URL")
	verbose := flag.Bool("verbose", false, "print full payload JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	client := stream.NewClient(
		stream.DefaultConfig(stream.DeriveURL(*baseURL)),
		stream.WithLogger(logger),
	)

	client.Subscribe(console.TopicDashboard, func(data json.RawMessage) {
		var d model.DashboardSummary
		if err := json.Unmarshal(data, &d); err != nil {
			logger.Warn("bad dashboard payload", "error", err)
			return
		}
		if *verbose {
			fmt.Printf("[%s] dashboard %s\n", time.Now().Format("15:04:05.000"), data)
			return
		}
		fmt.Printf("[%s] dashboard state=%s equity=%.2f positions=%d predator=%s\n",
			time.Now().Format("15:04:05.000"),
			d.State, d.Equity, d.OpenPositions, d.PredatorState,
		)
	})

	client.Subscribe(console.TopicBacktestProgress, func(data json.RawMessage) {
		var p model.ProgressUpdate
		if err := json.Unmarshal(data, &p); err != nil {
			logger.Warn("bad progress payload", "error", err)
			return
		}
		fmt.Printf("[%s] backtest %s progress=%d/%d\n",
			time.Now().Format("15:04:05.000"),
			p.JobID, p.Progress, p.TotalBars,
		)
	})

	if err := client.Connect(ctx); err != nil {
		logger.Warn("initial connect failed, will retry", "error", err)
	}

	<-ctx.Done()
	client.Disconnect()
}
