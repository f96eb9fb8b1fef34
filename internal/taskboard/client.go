// Package taskboard creates cards on the workshop task board for each
// incoming enquiry or quote request.
package taskboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memorial_intake_backend/platform/config"
)

const defaultEndpoint = "https://api.trello.com/1"

// CreateError is returned when the task board rejects or fails a card create.
type CreateError struct {
	StatusCode      int
	ProviderMessage string
}

func (e *CreateError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("task board returned status %d: %s", e.StatusCode, e.ProviderMessage)
	}
	return fmt.Sprintf("task board request failed: %s", e.ProviderMessage)
}

// Client creates cards via the Trello REST API. Authentication rides in
// query parameters (key/token) per the provider's scheme.
type Client struct {
	apiKey   string
	token    string
	client   *http.Client
	endpoint string
}

// NewClient creates a task board client from configuration.
func NewClient(cfg config.TaskBoardConfig) *Client {
	return &Client{
		apiKey:   cfg.GetTaskBoardAPIKey(),
		token:    cfg.GetTaskBoardToken(),
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: defaultEndpoint,
	}
}

// CreateCard adds a card with the given title and description to the list
// and returns the new card's ID.
func (c *Client) CreateCard(ctx context.Context, title, description, listID string) (string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("token", c.token)
	params.Set("idList", listID)
	params.Set("name", title)
	params.Set("desc", description)
	params.Set("pos", "top")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/cards", strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("create card request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &CreateError{ProviderMessage: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &CreateError{StatusCode: resp.StatusCode, ProviderMessage: string(body)}
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decode card response: %w", err)
	}
	return created.ID, nil
}
