package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client calls the external completion backend over its HTTP
// request/response boundary. The backend itself (model, retrieval) is
// not part of this service.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a completion client for the given backend endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

type completionResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Complete sends the user message to the backend and returns the reply
// text. Implements interfaces.Completer.
func (c *Client) Complete(ctx context.Context, userID, message string) (string, error) {
	body, err := json.Marshal(completionRequest{Message: message, UserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Error bodies are not guaranteed to be JSON (a proxy may answer
		// with HTML), so decoding them is best-effort.
		var decoded completionResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && decoded.Error != "" {
			return "", fmt.Errorf("completion backend error: %s", decoded.Error)
		}
		return "", fmt.Errorf("completion backend returned status %d", resp.StatusCode)
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	return decoded.Message, nil
}
