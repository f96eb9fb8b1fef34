// Package transport defines the inbound submission payloads and responses
// for the intake endpoint.
package transport

import "strings"

// Submission kinds. Anything other than "quote" is routed as an enquiry.
const (
	KindEnquiry = "enquiry"
	KindQuote   = "quote"
)

// PaymentPreferenceInvoiceOnly selects deferred-invoice billing instead of
// an immediate deposit captured by the site's client-side payment flow.
const PaymentPreferenceInvoiceOnly = "invoice_only"

// AddonLineItem is one priced add-on from the product configurator.
// An empty price means the add-on is included, not separately priced.
type AddonLineItem struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// Product is the configured memorial product on a quote submission.
type Product struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Colour      string `json:"colour"`
	Size        string `json:"size"`
	Image       string `json:"image"`
	Inscription string `json:"inscription"`
	// Price is the grand total including installation, as a decimal string.
	Price          string          `json:"price"`
	AddonLineItems []AddonLineItem `json:"addonLineItems"`
	// Addons is the legacy fallback when priced line items are unavailable.
	Addons []string `json:"addons"`
}

// Submission is the inbound web-form payload.
type Submission struct {
	Kind              string   `json:"kind"`
	Name              string   `json:"name" validate:"required"`
	Email             string   `json:"email" validate:"required,email"`
	Phone             string   `json:"phone"`
	Message           string   `json:"message"`
	Location          string   `json:"location"`
	Product           *Product `json:"product"`
	PaymentPreference string   `json:"paymentPreference"`
}

// IsQuote reports whether the submission routes to the quote orchestrator.
func (s Submission) IsQuote() bool {
	return strings.EqualFold(strings.TrimSpace(s.Kind), KindQuote)
}

// InvoiceOnly reports whether the customer chose deferred-invoice billing.
func (s Submission) InvoiceOnly() bool {
	return s.PaymentPreference == PaymentPreferenceInvoiceOnly
}

// EnquiryResponse is the terminal payload for an enquiry submission.
type EnquiryResponse struct {
	OK bool `json:"ok"`
}

// QuoteResponse is the terminal payload for a quote submission.
type QuoteResponse struct {
	OK               bool    `json:"ok"`
	InvoiceID        *string `json:"invoiceId"`
	InvoiceOnly      bool    `json:"invoiceOnly"`
	HostedInvoiceURL *string `json:"hostedInvoiceUrl"`
}
