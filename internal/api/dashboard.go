package api

import (
	"context"
	"fmt"

	"github.com/flofmatrix/console-sync/internal/model"
)

// GetDashboard fetches the dashboard summary.
func (c *Client) GetDashboard(ctx context.Context) (*model.DashboardSummary, error) {
	var resp model.DashboardSummary
	if err := c.get(ctx, "/dashboard", &resp); err != nil {
		return nil, fmt.Errorf("get dashboard: %w", err)
	}
	return &resp, nil
}

// GetPositions fetches all open positions.
func (c *Client) GetPositions(ctx context.Context) ([]model.Position, error) {
	var resp []model.Position
	if err := c.get(ctx, "/positions", &resp); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}
	return resp, nil
}

// GetTrades fetches the trade history.
func (c *Client) GetTrades(ctx context.Context) ([]model.TradeRecord, error) {
	var resp []model.TradeRecord
	if err := c.get(ctx, "/trades", &resp); err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}
	return resp, nil
}

// GetScoring fetches the scoring report (recent trades, rejections,
// grade distribution).
func (c *Client) GetScoring(ctx context.Context) (*model.ScoringReport, error) {
	var resp model.ScoringReport
	if err := c.get(ctx, "/scoring", &resp); err != nil {
		return nil, fmt.Errorf("get scoring: %w", err)
	}
	return &resp, nil
}

// GetRisk fetches the risk report.
func (c *Client) GetRisk(ctx context.Context) (*model.RiskReport, error) {
	var resp model.RiskReport
	if err := c.get(ctx, "/risk", &resp); err != nil {
		return nil, fmt.Errorf("get risk: %w", err)
	}
	return &resp, nil
}

// GetConfig fetches the raw strategy configuration map.
func (c *Client) GetConfig(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	if err := c.get(ctx, "/config", &resp); err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return resp, nil
}

// GetToggles fetches the feature toggle list.
func (c *Client) GetToggles(ctx context.Context) ([]model.Toggle, error) {
	var resp []model.Toggle
	if err := c.get(ctx, "/config/toggles", &resp); err != nil {
		return nil, fmt.Errorf("get toggles: %w", err)
	}
	return resp, nil
}

// GetEquityCurve fetches the equity curve samples.
func (c *Client) GetEquityCurve(ctx context.Context) ([]model.EquityPoint, error) {
	var resp []model.EquityPoint
	if err := c.get(ctx, "/equity-curve", &resp); err != nil {
		return nil, fmt.Errorf("get equity curve: %w", err)
	}
	return resp, nil
}

// GetPOIs fetches the active points of interest.
func (c *Client) GetPOIs(ctx context.Context) ([]model.POI, error) {
	var resp []model.POI
	if err := c.get(ctx, "/pois", &resp); err != nil {
		return nil, fmt.Errorf("get pois: %w", err)
	}
	return resp, nil
}
