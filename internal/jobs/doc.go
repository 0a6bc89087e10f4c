// Package jobs tracks backtest jobs from submission to terminal state.
// A running job is polled for status twice a second; its terminal
// transition triggers a one-shot refresh of the dashboard, equity
// curve, trades, and job list.
package jobs
