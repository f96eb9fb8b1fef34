package intake

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"memorial_intake_backend/internal/crm"
	"memorial_intake_backend/internal/email"
	"memorial_intake_backend/internal/intake/transport"
	"memorial_intake_backend/internal/payments"
	"memorial_intake_backend/internal/recordstore"
	"memorial_intake_backend/platform/logger"
)

// callLog records adapter invocations across all fakes so step ordering
// can be asserted.
type callLog struct {
	calls []string
}

func (l *callLog) add(name string) { l.calls = append(l.calls, name) }

type sentEmail struct {
	to          string
	subject     string
	html        string
	attachments []email.Attachment
}

type fakeSender struct {
	log    *callLog
	sent   []sentEmail
	failTo string
}

func (f *fakeSender) Send(_ context.Context, to, subject, html string, attachments ...email.Attachment) error {
	f.log.add("email:" + to)
	if f.failTo != "" && to == f.failTo {
		return &email.DeliveryError{StatusCode: 500, ProviderMessage: "provider down"}
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, html: html, attachments: attachments})
	return nil
}

type fakeTasks struct {
	log   *callLog
	cards []string
	err   error
}

func (f *fakeTasks) CreateCard(_ context.Context, title, description, listID string) (string, error) {
	f.log.add("task")
	if f.err != nil {
		return "", f.err
	}
	f.cards = append(f.cards, title+"\n"+description+"\n"+listID)
	return "card-1", nil
}

type fakeRecords struct {
	log *callLog

	customers    []string
	orders       []recordstore.CreateOrderParams
	invoices     []int64
	inscriptions []string

	orderErr   error
	invoiceErr error
}

func (f *fakeRecords) UpsertCustomer(_ context.Context, name, email, phone, location string) (uuid.UUID, error) {
	f.log.add("records:customer")
	f.customers = append(f.customers, email)
	return uuid.New(), nil
}

func (f *fakeRecords) CreateOrder(_ context.Context, params recordstore.CreateOrderParams) (uuid.UUID, error) {
	f.log.add("records:order")
	if f.orderErr != nil {
		return uuid.Nil, f.orderErr
	}
	f.orders = append(f.orders, params)
	return uuid.New(), nil
}

func (f *fakeRecords) CreateInvoice(_ context.Context, orderID uuid.UUID, providerInvoiceID string, amountMinorUnits int64, status string, dueDate time.Time) (uuid.UUID, error) {
	f.log.add("records:invoice")
	if f.invoiceErr != nil {
		return uuid.Nil, f.invoiceErr
	}
	f.invoices = append(f.invoices, amountMinorUnits)
	return uuid.MustParse("7b8e1c3a-0f4d-4f6a-9b2e-5d8c1a7e4f30"), nil
}

func (f *fakeRecords) RecordInscription(_ context.Context, orderID uuid.UUID, text string) error {
	f.log.add("records:inscription")
	f.inscriptions = append(f.inscriptions, text)
	return nil
}

type fakeCRM struct {
	log      *callLog
	contacts []crm.ContactUpsert
	err      error
}

func (f *fakeCRM) UpsertContact(_ context.Context, contact crm.ContactUpsert) (string, error) {
	f.log.add("crm")
	if f.err != nil {
		return "", f.err
	}
	f.contacts = append(f.contacts, contact)
	return "contact-1", nil
}

type fakeIssuer struct {
	log      *callLog
	requests []payments.InvoiceRequest
	err      error
}

func (f *fakeIssuer) IssueInvoice(_ context.Context, req payments.InvoiceRequest) (*payments.InvoiceResult, error) {
	f.log.add("issuer")
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &payments.InvoiceResult{
		InvoiceID:        "in_123",
		HostedInvoiceURL: "https://pay.example.com/in_123",
	}, nil
}

func testBusiness() Business {
	return Business{
		Name:             "Hewitt Memorials",
		NotifyAddress:    "workshop@example.com",
		TaskListID:       "list-1",
		EnquiryOrderType: "enquiry",
		ColourNames:      defaultColourNames(),
		DefaultColour:    "Bronze",
	}
}

type harness struct {
	log     *callLog
	sender  *fakeSender
	tasks   *fakeTasks
	records *fakeRecords
	crm     *fakeCRM
	issuer  *fakeIssuer
	svc     *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := &callLog{}
	h := &harness{
		log:     log,
		sender:  &fakeSender{log: log},
		tasks:   &fakeTasks{log: log},
		records: &fakeRecords{log: log},
		crm:     &fakeCRM{log: log},
		issuer:  &fakeIssuer{log: log},
	}
	h.svc = NewService(logger.New("test"), testBusiness(), h.sender, h.tasks, h.records, h.crm, h.issuer)
	h.svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return h
}

func quoteSubmission() transport.Submission {
	return transport.Submission{
		Kind:              transport.KindQuote,
		Name:              "Ada Hewitt",
		Email:             "ada@example.com",
		Phone:             "07700 900123",
		Location:          "Highgate Cemetery",
		PaymentPreference: transport.PaymentPreferenceInvoiceOnly,
		Product: &transport.Product{
			Name:        "Classic Headstone",
			Type:        "Headstone",
			Colour:      "black",
			Size:        "30x24",
			Inscription: "In loving memory",
			Price:       "1000",
			AddonLineItems: []transport.AddonLineItem{
				{Name: "Gold lettering", Price: "150"},
			},
		},
	}
}

func TestQuoteStepOrdering(t *testing.T) {
	h := newHarness(t)

	resp, err := h.svc.Quote(context.Background(), quoteSubmission())
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok response")
	}

	want := []string{
		"issuer",
		"email:workshop@example.com",
		"email:ada@example.com",
		"task",
		"records:customer",
		"records:order",
		"records:invoice",
		"records:inscription",
		"crm",
	}
	if len(h.log.calls) != len(want) {
		t.Fatalf("call sequence %v, want %v", h.log.calls, want)
	}
	for i, call := range want {
		if h.log.calls[i] != call {
			t.Fatalf("call %d = %q, want %q (full sequence %v)", i, h.log.calls[i], call, h.log.calls)
		}
	}
}

func TestQuoteCriticalFailureHalts(t *testing.T) {
	h := newHarness(t)
	h.sender.failTo = "workshop@example.com"

	_, err := h.svc.Quote(context.Background(), quoteSubmission())
	if err == nil {
		t.Fatalf("expected error from failed business notification")
	}

	for _, call := range h.log.calls {
		switch call {
		case "task", "records:customer", "crm", "email:ada@example.com":
			t.Fatalf("step %q ran after critical failure (sequence %v)", call, h.log.calls)
		}
	}
}

func TestQuoteBestEffortFailuresInvisible(t *testing.T) {
	h := newHarness(t)
	h.issuer.err = &payments.IssueError{Stage: "finalize", ProviderMessage: "boom"}
	h.tasks.err = errors.New("board down")
	h.records.orderErr = errors.New("insert failed")
	h.crm.err = errors.New("crm down")

	resp, err := h.svc.Quote(context.Background(), quoteSubmission())
	if err != nil {
		t.Fatalf("best-effort failures must not fail the run: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok response")
	}
	if resp.HostedInvoiceURL != nil {
		t.Fatalf("hosted URL should be absent when issuance failed")
	}
	if len(h.sender.sent) != 2 {
		t.Fatalf("both emails should still send, got %d", len(h.sender.sent))
	}
}

func TestQuoteHostedURLThreading(t *testing.T) {
	h := newHarness(t)

	resp, err := h.svc.Quote(context.Background(), quoteSubmission())
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	if resp.HostedInvoiceURL == nil || *resp.HostedInvoiceURL != "https://pay.example.com/in_123" {
		t.Fatalf("hosted URL not threaded into response: %+v", resp)
	}
	if !resp.InvoiceOnly {
		t.Fatalf("invoiceOnly should be true")
	}
	if resp.InvoiceID == nil {
		t.Fatalf("invoice record id should be set")
	}

	var confirmation *sentEmail
	for i := range h.sender.sent {
		if h.sender.sent[i].to == "ada@example.com" {
			confirmation = &h.sender.sent[i]
		}
	}
	if confirmation == nil {
		t.Fatalf("no confirmation email sent")
	}
	if !strings.Contains(confirmation.html, "https://pay.example.com/in_123") {
		t.Fatalf("confirmation email missing hosted URL")
	}
	if len(confirmation.attachments) != 1 || confirmation.attachments[0].FileName != "invoice-qr.png" {
		t.Fatalf("confirmation email missing QR attachment: %+v", confirmation.attachments)
	}
}

func TestQuoteInvoiceLineItemsSumToTotal(t *testing.T) {
	h := newHarness(t)

	if _, err := h.svc.Quote(context.Background(), quoteSubmission()); err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if len(h.issuer.requests) != 1 {
		t.Fatalf("expected one issued invoice")
	}

	var sum int64
	for _, item := range h.issuer.requests[0].LineItems {
		sum += item.AmountMinorUnits
	}
	if sum != 100000 {
		t.Fatalf("line items sum to %d minor units, want 100000", sum)
	}
	if len(h.issuer.requests[0].LineItems) != 2 {
		t.Fatalf("expected base + addon line items, got %d", len(h.issuer.requests[0].LineItems))
	}
}

func TestQuoteRecordFailureDoesNotRollBack(t *testing.T) {
	h := newHarness(t)
	h.records.orderErr = errors.New("order insert failed")

	resp, err := h.svc.Quote(context.Background(), quoteSubmission())
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok response")
	}

	if len(h.records.customers) != 1 {
		t.Fatalf("customer upsert should persist despite order failure")
	}
	for _, call := range h.log.calls {
		if call == "records:invoice" {
			t.Fatalf("invoice write should not run after order failure")
		}
	}
	// The run continues past the failed step.
	if len(h.crm.contacts) != 1 {
		t.Fatalf("crm upsert should still run")
	}
}

func TestQuoteSkipsIssuerWithoutInvoicePreference(t *testing.T) {
	h := newHarness(t)
	sub := quoteSubmission()
	sub.PaymentPreference = ""

	resp, err := h.svc.Quote(context.Background(), sub)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if resp.InvoiceOnly {
		t.Fatalf("invoiceOnly should be false")
	}
	if resp.HostedInvoiceURL != nil {
		t.Fatalf("no hosted URL expected")
	}
	if len(h.issuer.requests) != 0 {
		t.Fatalf("issuer should not be called")
	}
}

func TestQuoteUnpricedSkipsInvoiceWrites(t *testing.T) {
	h := newHarness(t)
	sub := quoteSubmission()
	sub.Product.Price = "call for pricing"

	resp, err := h.svc.Quote(context.Background(), sub)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if len(h.issuer.requests) != 0 {
		t.Fatalf("unparsable price must not issue an invoice")
	}
	if len(h.records.invoices) != 0 {
		t.Fatalf("unparsable price must not create an invoice row")
	}
	if resp.InvoiceID != nil {
		t.Fatalf("no invoice record id expected")
	}
}

func TestQuoteCRMTagsAndFields(t *testing.T) {
	h := newHarness(t)

	if _, err := h.svc.Quote(context.Background(), quoteSubmission()); err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if len(h.crm.contacts) != 1 {
		t.Fatalf("expected one crm upsert")
	}

	contact := h.crm.contacts[0]
	wantTags := []string{"website-lead", "quote-request", "headstone"}
	if len(contact.Tags) != len(wantTags) {
		t.Fatalf("tags %v, want %v", contact.Tags, wantTags)
	}
	for i, tag := range wantTags {
		if contact.Tags[i] != tag {
			t.Fatalf("tag %d = %q, want %q", i, contact.Tags[i], tag)
		}
	}
	if contact.CustomFields["product_colour"] != "Black Granite" {
		t.Fatalf("colour field = %q", contact.CustomFields["product_colour"])
	}
	if contact.CustomFields["product_price"] != "£1,000.00" {
		t.Fatalf("price field = %q", contact.CustomFields["product_price"])
	}
	if contact.Phone != "+447700900123" {
		t.Fatalf("phone should be normalized to E.164, got %q", contact.Phone)
	}
}

func TestEnquiryFlow(t *testing.T) {
	h := newHarness(t)
	sub := transport.Submission{
		Kind:    transport.KindEnquiry,
		Name:    "Tom Price",
		Email:   "tom@example.com",
		Message: "Do you restore old memorials?",
	}

	resp, err := h.svc.Enquiry(context.Background(), sub)
	if err != nil {
		t.Fatalf("enquiry failed: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok response")
	}

	for _, call := range h.log.calls {
		if call == "issuer" || call == "records:invoice" {
			t.Fatalf("enquiry must not touch invoicing (sequence %v)", h.log.calls)
		}
	}
	if len(h.records.orders) != 1 || h.records.orders[0].OrderType != "enquiry" {
		t.Fatalf("order row should carry the enquiry order type: %+v", h.records.orders)
	}
	if len(h.crm.contacts) != 1 {
		t.Fatalf("expected crm upsert")
	}
	tags := h.crm.contacts[0].Tags
	if len(tags) != 2 || tags[0] != "website-lead" || tags[1] != "contact-form" {
		t.Fatalf("enquiry tags = %v", tags)
	}
}

func TestEnquiryCriticalFailure(t *testing.T) {
	h := newHarness(t)
	h.sender.failTo = "workshop@example.com"

	_, err := h.svc.Enquiry(context.Background(), transport.Submission{
		Kind:    transport.KindEnquiry,
		Name:    "Tom Price",
		Email:   "tom@example.com",
		Message: "hello",
	})
	if err == nil {
		t.Fatalf("expected error from failed business notification")
	}
	if len(h.records.customers) != 0 || len(h.crm.contacts) != 0 {
		t.Fatalf("best-effort steps ran after critical failure")
	}
}

func TestNilCapabilitiesAreSkipped(t *testing.T) {
	log := &callLog{}
	sender := &fakeSender{log: log}
	svc := NewService(logger.New("test"), testBusiness(), sender, nil, nil, nil, nil)

	resp, err := svc.Quote(context.Background(), quoteSubmission())
	if err != nil {
		t.Fatalf("quote failed with unconfigured integrations: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected ok response")
	}
	if len(sender.sent) != 2 {
		t.Fatalf("emails should still send, got %d", len(sender.sent))
	}
}
