// Package crm pushes submitters into the external CRM as contacts so
// follow-up happens even when every other integration is switched off.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"memorial_intake_backend/platform/config"
)

const defaultEndpoint = "https://services.leadconnectorhq.com"

// UpsertError is returned when the CRM rejects or fails a contact upsert.
type UpsertError struct {
	StatusCode      int
	ProviderMessage string
}

func (e *UpsertError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("crm returned status %d: %s", e.StatusCode, e.ProviderMessage)
	}
	return fmt.Sprintf("crm request failed: %s", e.ProviderMessage)
}

// ContactUpsert is the payload for creating or updating a CRM contact.
// Phone should already be normalized to E.164 by the caller.
type ContactUpsert struct {
	Name         string
	Email        string
	Phone        string
	Tags         []string
	CustomFields map[string]string
}

// Client talks to the CRM contact API.
type Client struct {
	apiKey     string
	locationID string
	client     *http.Client
	endpoint   string
}

// NewClient creates a CRM client from configuration.
func NewClient(cfg config.CRMConfig) *Client {
	return &Client{
		apiKey:     cfg.GetCRMAPIKey(),
		locationID: cfg.GetCRMLocationID(),
		client:     &http.Client{Timeout: 10 * time.Second},
		endpoint:   defaultEndpoint,
	}
}

type upsertRequest struct {
	LocationID   string        `json:"locationId"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	CustomFields []customField `json:"customFields,omitempty"`
}

type customField struct {
	Key   string `json:"key"`
	Value string `json:"field_value"`
}

// UpsertContact creates or updates the contact keyed by email and returns
// the provider's contact ID.
func (c *Client) UpsertContact(ctx context.Context, contact ContactUpsert) (string, error) {
	payload := upsertRequest{
		LocationID: c.locationID,
		Name:       contact.Name,
		Email:      contact.Email,
		Phone:      contact.Phone,
		Tags:       contact.Tags,
	}
	for key, value := range contact.CustomFields {
		payload.CustomFields = append(payload.CustomFields, customField{Key: key, Value: value})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal contact: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/contacts/upsert", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("upsert contact request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Version", "2021-07-28")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &UpsertError{ProviderMessage: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpsertError{StatusCode: resp.StatusCode, ProviderMessage: string(respBody)}
	}

	var result struct {
		Contact struct {
			ID string `json:"id"`
		} `json:"contact"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode contact response: %w", err)
	}
	return result.Contact.ID, nil
}
