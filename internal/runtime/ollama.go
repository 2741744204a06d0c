package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// The runtime speaks the Ollama wire API. Loads and unloads are both
// expressed through /api/generate: a minimal one-token generate forces a
// model into memory, keep_alive=0 forces it out.

type generateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Stream    bool           `json:"stream"`
	KeepAlive any            `json:"keep_alive,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// ResidentModel is one entry from the runtime's list of loaded models.
type ResidentModel struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size"`
}

type psResponse struct {
	Models []ResidentModel `json:"models"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// TriggerLoad asks the runtime to make a model resident by generating a
// single token. Uses the long load timeout: first-token latency for a cold
// model can be minutes.
func (c *Client) TriggerLoad(ctx context.Context, model string) error {
	req := generateRequest{
		Model:     model,
		Prompt:    "",
		KeepAlive: "10m",
		Options:   map[string]any{"num_predict": 1},
	}
	if _, err := c.do(ctx, http.MethodPost, "/api/generate", req, c.loadTimeout); err != nil {
		return fmt.Errorf("load %s: %w", model, err)
	}
	return nil
}

// TriggerUnload asks the runtime to drop a model (keep_alive=0).
func (c *Client) TriggerUnload(ctx context.Context, model string) error {
	req := generateRequest{Model: model, KeepAlive: 0}
	if _, err := c.do(ctx, http.MethodPost, "/api/generate", req, c.requestTimeout); err != nil {
		return fmt.Errorf("unload %s: %w", model, err)
	}
	return nil
}

// ListLoaded returns the models the runtime currently has resident.
func (c *Client) ListLoaded(ctx context.Context) ([]ResidentModel, error) {
	out, err := c.do(ctx, http.MethodGet, "/api/ps", nil, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	var resp psResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("decode ps response: %w", err)
	}
	return resp.Models, nil
}

// ListTags returns every model name the runtime knows about.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	out, err := c.do(ctx, http.MethodGet, "/api/tags", nil, c.healthTimeout)
	if err != nil {
		return nil, err
	}
	var resp tagsResponse
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, fmt.Errorf("decode tags response: %w", err)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Health reports whether the runtime answers its tags endpoint. Uses the
// sub-second-to-seconds health timeout so polling never competes with
// user traffic.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/tags", nil, c.healthTimeout)
	return err
}
