// Package payments issues deposit invoices through the payment processor
// and verifies the processor's webhook signatures.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"memorial_intake_backend/platform/config"
)

const (
	defaultEndpoint = "https://api.stripe.com/v1"

	// Invoices fall due 30 days after issue and are never auto-advanced;
	// the workshop finalizes payment terms with the customer directly.
	invoiceDueDays = 30
)

// IssueError reports which stage of the invoice flow failed. Stage is one of
// "customer", "line_item", "invoice" or "finalize".
type IssueError struct {
	Stage           string
	StatusCode      int
	ProviderMessage string
}

func (e *IssueError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment processor %s returned status %d: %s", e.Stage, e.StatusCode, e.ProviderMessage)
	}
	return fmt.Sprintf("payment processor %s failed: %s", e.Stage, e.ProviderMessage)
}

// InvoiceResult is the outcome of a successful invoice issue.
type InvoiceResult struct {
	InvoiceID        string
	HostedInvoiceURL string
	AmountMinorUnits int64
	DueDate          time.Time
}

// LineItem is one line on the issued invoice.
type LineItem struct {
	Description      string
	AmountMinorUnits int64
}

// InvoiceRequest carries everything needed to issue one deposit invoice.
// Metadata is attached to the invoice so the webhook can correlate the
// payment back to the submission.
type InvoiceRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	LineItems     []LineItem
	Metadata      map[string]string
}

// Client talks to the payment processor's form-encoded REST API.
type Client struct {
	secretKey string
	client    *http.Client
	endpoint  string
}

// NewClient creates a payments client from configuration.
func NewClient(cfg config.PaymentsConfig) *Client {
	return &Client{
		secretKey: cfg.GetStripeSecretKey(),
		client:    &http.Client{Timeout: 15 * time.Second},
		endpoint:  defaultEndpoint,
	}
}

// IssueInvoice runs the full flow: find or create the customer, attach one
// pending line item per entry, create the invoice with metadata, finalize it.
// On success the hosted payment page URL is returned for embedding in the
// customer's confirmation email.
func (c *Client) IssueInvoice(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error) {
	customerID, err := c.findOrCreateCustomer(ctx, req.CustomerEmail, req.CustomerName, req.CustomerPhone)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, item := range req.LineItems {
		if err := c.addLineItem(ctx, customerID, item.AmountMinorUnits, item.Description); err != nil {
			return nil, err
		}
		total += item.AmountMinorUnits
	}

	invoiceID, err := c.createInvoice(ctx, customerID, req.Metadata)
	if err != nil {
		return nil, err
	}

	hostedURL, err := c.finalizeInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	return &InvoiceResult{
		InvoiceID:        invoiceID,
		HostedInvoiceURL: hostedURL,
		AmountMinorUnits: total,
		DueDate:          time.Now().AddDate(0, 0, invoiceDueDays),
	}, nil
}

func (c *Client) findOrCreateCustomer(ctx context.Context, email, name, phone string) (string, error) {
	params := url.Values{}
	params.Set("query", fmt.Sprintf("email:'%s'", email))
	params.Set("limit", "1")

	var search struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, "customer", http.MethodGet, "/customers/search?"+params.Encode(), nil, &search); err != nil {
		return "", err
	}
	if len(search.Data) > 0 {
		return search.Data[0].ID, nil
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("name", name)
	if phone != "" {
		form.Set("phone", phone)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "customer", http.MethodPost, "/customers", form, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) addLineItem(ctx context.Context, customerID string, amountMinorUnits int64, description string) error {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("amount", strconv.FormatInt(amountMinorUnits, 10))
	form.Set("currency", "gbp")
	form.Set("description", description)

	var item struct {
		ID string `json:"id"`
	}
	return c.do(ctx, "line_item", http.MethodPost, "/invoiceitems", form, &item)
}

func (c *Client) createInvoice(ctx context.Context, customerID string, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("collection_method", "send_invoice")
	form.Set("days_until_due", strconv.Itoa(invoiceDueDays))
	form.Set("auto_advance", "false")
	form.Set("pending_invoice_items_behavior", "include")
	for key, value := range metadata {
		form.Set("metadata["+key+"]", value)
	}

	var invoice struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "invoice", http.MethodPost, "/invoices", form, &invoice); err != nil {
		return "", err
	}
	return invoice.ID, nil
}

func (c *Client) finalizeInvoice(ctx context.Context, invoiceID string) (string, error) {
	var finalized struct {
		HostedInvoiceURL string `json:"hosted_invoice_url"`
	}
	if err := c.do(ctx, "finalize", http.MethodPost, "/invoices/"+invoiceID+"/finalize", url.Values{}, &finalized); err != nil {
		return "", err
	}
	return finalized.HostedInvoiceURL, nil
}

func (c *Client) do(ctx context.Context, stage, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return &IssueError{Stage: stage, ProviderMessage: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &IssueError{Stage: stage, ProviderMessage: err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &IssueError{Stage: stage, StatusCode: resp.StatusCode, ProviderMessage: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &IssueError{Stage: stage, ProviderMessage: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}
