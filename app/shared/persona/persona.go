// Package persona talks to the anonymization service ("canon"): it issues the
// opaque persona tokens shown in place of real authors during the guessing
// stage, and retires them when a round completes. When no service is
// configured the fallback issues random local tokens and everything else is a
// no-op, which amounts to no anonymity.
package persona

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Service is the contract consumed by the round and comment services.
type Service interface {
	// Verify reports whether the user is allowed to play. An unreachable
	// service denies: this is the one collaborator answer used for a security
	// decision.
	Verify(ctx context.Context, userID int64) (bool, error)

	// Issue creates a persona token for (round author, display name).
	Issue(ctx context.Context, userID int64, name string) (string, error)

	// Rename re-points an existing persona's display name.
	Rename(ctx context.Context, token string, name string) error

	// Transform rewrites comment text in the persona's voice.
	Transform(ctx context.Context, userID int64, token string, text string) (string, error)

	// Purge retires all temporary personas after a round completes.
	Purge(ctx context.Context) error
}

// Client is the HTTP client for a canon server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a canon client, or the disabled fallback when baseURL is
// empty.
func NewClient(baseURL string) Service {
	if baseURL == "" {
		return Disabled{}
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("canon request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("canon returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("canon request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("canon returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Verify(ctx context.Context, userID int64) (bool, error) {
	var body struct {
		Result bool `json:"result"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%d", userID), &body); err != nil {
		return false, err
	}
	return body.Result, nil
}

func (c *Client) Issue(ctx context.Context, userID int64, name string) (string, error) {
	var body struct {
		ID json.Number `json:"id"`
	}
	req := map[string]any{"name": name, "sudo": true, "temp": true}
	if err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/users/%d/personas", userID), req, &body); err != nil {
		return "", err
	}
	return body.ID.String(), nil
}

func (c *Client) Rename(ctx context.Context, token string, name string) error {
	req := map[string]any{"name": name, "sudo": true}
	return c.sendJSON(ctx, http.MethodPatch, "/personas/"+token, req, nil)
}

func (c *Client) Transform(ctx context.Context, userID int64, token string, text string) (string, error) {
	var body struct {
		Text string `json:"text"`
	}
	req := map[string]any{"text": text, "persona": token}
	if err := c.sendJSON(ctx, http.MethodPost, fmt.Sprintf("/users/%d/transform", userID), req, &body); err != nil {
		return "", err
	}
	return body.Text, nil
}

func (c *Client) Purge(ctx context.Context) error {
	return c.sendJSON(ctx, http.MethodPost, "/personas/purge", map[string]any{}, nil)
}

// Disabled is the fallback when no canon server is configured. Issue hands out
// random local tokens so positions still get opaque identities; nothing is
// anonymous beyond that.
type Disabled struct{}

func (Disabled) Verify(context.Context, int64) (bool, error) { return true, nil }

func (Disabled) Issue(context.Context, int64, string) (string, error) {
	return uuid.NewString(), nil
}

func (Disabled) Rename(context.Context, string, string) error { return nil }

func (Disabled) Transform(_ context.Context, _ int64, _ string, text string) (string, error) {
	return text, nil
}

func (Disabled) Purge(context.Context) error { return nil }
