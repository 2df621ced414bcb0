package flowapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/santaclaude2025/flowsync/pkg/config"
	fshttp "github.com/santaclaude2025/flowsync/pkg/http"
	"github.com/santaclaude2025/flowsync/pkg/logger"
)

// ErrInvalidFlowID is returned for ids that cannot be used as a path segment
var ErrInvalidFlowID = errors.New("invalid flow id")

// Client reads and writes workflow definitions on the flow API
type Client struct {
	http        *fshttp.Client
	environment string
}

// NewClient creates a flow API client from configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:        fshttp.NewClient(cfg, config.DefaultHTTPTimeout),
		environment: cfg.Environment,
	}
}

// FlowPath builds the API path of a flow definition:
// /environments/{env}/flows/{id}/definition, or /flows/{id}/definition without an environment.
func FlowPath(environment, flowID string) (string, error) {
	flowID = strings.TrimSpace(flowID)
	if flowID == "" || strings.ContainsAny(flowID, "/?#") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFlowID, flowID)
	}

	path := "/flows/" + url.PathEscape(flowID) + "/definition"
	if environment != "" {
		path = "/environments/" + url.PathEscape(environment) + path
	}
	return path, nil
}

// Fetch downloads the current definition of a flow
func (c *Client) Fetch(ctx context.Context, flowID string) ([]byte, error) {
	path, err := FlowPath(c.environment, flowID)
	if err != nil {
		return nil, err
	}

	logger.Debug("Fetching flow %s", flowID)
	body, err := c.http.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flow %s: %w", flowID, err)
	}
	return body, nil
}

// Update replaces the definition of a flow
func (c *Client) Update(ctx context.Context, flowID string, doc []byte) error {
	path, err := FlowPath(c.environment, flowID)
	if err != nil {
		return err
	}

	logger.Debug("Updating flow %s (%d bytes)", flowID, len(doc))
	if _, err := c.http.Put(ctx, path, doc); err != nil {
		return fmt.Errorf("failed to update flow %s: %w", flowID, err)
	}
	return nil
}
