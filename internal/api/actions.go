package api

import (
	"context"
	"fmt"

	"github.com/flofmatrix/console-sync/internal/model"
)

// toggleRequest is the body for POST /api/toggles/{id}.
type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

// SetToggle enables or disables a feature toggle.
func (c *Client) SetToggle(ctx context.Context, toggleID string, enabled bool) (*model.ToggleResult, error) {
	var resp model.ToggleResult
	if err := c.post(ctx, "/toggles/"+toggleID, toggleRequest{Enabled: enabled}, &resp); err != nil {
		return nil, fmt.Errorf("set toggle %s: %w", toggleID, err)
	}
	return &resp, nil
}

// NuclearFlatten closes every open position and forces the strategy dormant.
func (c *Client) NuclearFlatten(ctx context.Context) (*model.FlattenResult, error) {
	var resp model.FlattenResult
	if err := c.post(ctx, "/nuclear-flatten", nil, &resp); err != nil {
		return nil, fmt.Errorf("nuclear flatten: %w", err)
	}
	return &resp, nil
}
