package api

import (
	"context"
	"fmt"

	"github.com/flofmatrix/console-sync/internal/model"
)

// RunBacktest submits a backtest job and returns its acknowledgment.
func (c *Client) RunBacktest(ctx context.Context, params model.BacktestParams) (*model.RunBacktestResponse, error) {
	var resp model.RunBacktestResponse
	if err := c.post(ctx, "/backtest/run", params, &resp); err != nil {
		return nil, fmt.Errorf("run backtest: %w", err)
	}
	return &resp, nil
}

// GetBacktestStatus fetches the full descriptor of a backtest job.
func (c *Client) GetBacktestStatus(ctx context.Context, jobID string) (*model.BacktestJob, error) {
	var resp model.BacktestJob
	if err := c.get(ctx, "/backtest/status/"+jobID, &resp); err != nil {
		return nil, fmt.Errorf("get backtest status %s: %w", jobID, err)
	}
	return &resp, nil
}

// ListBacktestJobs fetches summaries of all known backtest jobs.
func (c *Client) ListBacktestJobs(ctx context.Context) ([]model.JobSummary, error) {
	var resp []model.JobSummary
	if err := c.get(ctx, "/backtest/jobs", &resp); err != nil {
		return nil, fmt.Errorf("list backtest jobs: %w", err)
	}
	return resp, nil
}
