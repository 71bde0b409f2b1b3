package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trustplane/trustplane/internal/controlplane"
)

// Client is the HTTP client used by the TUI.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a TUI API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListServers fetches the live server listing.
func (c *Client) ListServers() ([]controlplane.ServerStatus, error) {
	body, err := c.get("/servers")
	if err != nil {
		return nil, err
	}

	var servers []controlplane.ServerStatus
	if err := json.Unmarshal(body, &servers); err != nil {
		return nil, fmt.Errorf("parse servers: %w", err)
	}
	return servers, nil
}

// ExecuteTask runs a routed execution.
func (c *Client) ExecuteTask(capability, prompt string) (*controlplane.TaskResult, error) {
	body, err := c.post("/tasks/execute", map[string]string{
		"capability": capability,
		"prompt":     prompt,
	})
	if err != nil {
		return nil, err
	}

	var result controlplane.TaskResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return &result, nil
}

func (c *Client) get(path string) ([]byte, error) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *Client) post(path string, data interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
