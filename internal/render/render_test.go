package render

import (
	"strings"
	"testing"

	"memorial_intake_backend/internal/intake/transport"
	"memorial_intake_backend/internal/money"
)

func quoteSubmission() transport.Submission {
	return transport.Submission{
		Kind:     transport.KindQuote,
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Location: "St Mary's Cemetery",
		Product: &transport.Product{
			Name:        "Classic Headstone",
			Type:        "headstone",
			Colour:      "black-granite",
			Size:        "medium",
			Inscription: "In loving memory\nForever missed",
			Price:       "1000",
			AddonLineItems: []transport.AddonLineItem{
				{Name: "Engraving", Price: "150"},
			},
		},
	}
}

func testContext() Context {
	return Context{
		BusinessName:  "Hewitt Memorials",
		DisplayColour: "Black Granite",
		SubmittedAt:   "2 March 2026, 14:05",
	}
}

func TestBusinessNotification_EscapesUserText(t *testing.T) {
	sub := quoteSubmission()
	sub.Name = `<script>alert("x")</script> & 'co'`
	b := money.Compute(sub.Product.Price, []money.AddonInput{{Name: "Engraving", Price: "150"}}, nil)

	html, err := BusinessNotification(sub, b, testContext())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if strings.Contains(html, "<script>") {
		t.Fatal("user-supplied markup must be escaped")
	}
	for _, want := range []string{"&lt;script&gt;", "&amp;", "&#34;"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected escaped sequence %q in document", want)
		}
	}
}

func TestBusinessNotification_MessageLineBreaks(t *testing.T) {
	sub := transport.Submission{
		Kind:    transport.KindEnquiry,
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Message: "Please call me\nafter 5pm",
	}
	b := money.Compute("", nil, nil)

	html, err := BusinessNotification(sub, b, testContext())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, "Please call me<br>after 5pm") {
		t.Fatal("message line breaks should render as <br>")
	}
}

func TestCustomerConfirmation_PriceBreakdown(t *testing.T) {
	sub := quoteSubmission()
	b := money.Compute("1000", []money.AddonInput{{Name: "Engraving", Price: "150"}}, nil)

	html, err := CustomerConfirmation(sub, b, testContext())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	for _, want := range []string{"£850.00", "£150.00", "£1,000.00", "Black Granite"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in confirmation document", want)
		}
	}
}

func TestCustomerConfirmation_EmbedsHostedInvoiceURL(t *testing.T) {
	sub := quoteSubmission()
	sub.PaymentPreference = transport.PaymentPreferenceInvoiceOnly
	b := money.Compute("1000", nil, nil)
	ctx := testContext()
	ctx.HostedInvoiceURL = "https://invoice.stripe.com/i/acct_123/test_abc"

	html, err := CustomerConfirmation(sub, b, ctx)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, ctx.HostedInvoiceURL) {
		t.Fatal("confirmation must embed the exact hosted invoice URL")
	}
}

func TestRender_MissingPriceShowsPlaceholder(t *testing.T) {
	sub := quoteSubmission()
	sub.Product.Price = "POA"
	b := money.Compute(sub.Product.Price, nil, nil)

	html, err := CustomerConfirmation(sub, b, testContext())
	if err != nil {
		t.Fatalf("render must not fail on unparsable price: %v", err)
	}
	if !strings.Contains(html, "—") {
		t.Fatal("expected price placeholder in document")
	}

	text := TaskDescription(sub, b, testContext())
	if !strings.Contains(text, "Total: —") {
		t.Fatalf("expected price placeholder in task description, got:\n%s", text)
	}
}

func TestRender_MissingOptionalFieldsShowPlaceholder(t *testing.T) {
	sub := transport.Submission{Kind: transport.KindEnquiry, Name: "Jane Doe", Email: "jane@example.com", Message: "Hello"}
	b := money.Compute("", nil, nil)

	html, err := BusinessNotification(sub, b, testContext())
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, "Not provided") {
		t.Fatal("expected placeholder for missing phone/location")
	}
}

func TestRender_Deterministic(t *testing.T) {
	sub := quoteSubmission()
	b := money.Compute("1000", []money.AddonInput{{Name: "Engraving", Price: "150"}}, nil)
	ctx := testContext()
	ctx.HostedInvoiceURL = "https://invoice.example/i/1"

	first, err := BusinessNotification(sub, b, ctx)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	second, err := BusinessNotification(sub, b, ctx)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if first != second {
		t.Fatal("rendering the same inputs twice must be byte-identical")
	}

	if TaskDescription(sub, b, ctx) != TaskDescription(sub, b, ctx) {
		t.Fatal("task description rendering must be deterministic")
	}
}

func TestTaskDescription_PlainTextNotEscaped(t *testing.T) {
	sub := quoteSubmission()
	sub.Message = `Quote for "John & Sons" <urgent>`
	b := money.Compute("1000", nil, nil)

	text := TaskDescription(sub, b, testContext())
	if !strings.Contains(text, `"John & Sons" <urgent>`) {
		t.Fatal("plain-text documents must not be HTML-escaped")
	}
	if !strings.Contains(text, "In loving memory\nForever missed") {
		t.Fatal("plain text must preserve literal line breaks")
	}
}
