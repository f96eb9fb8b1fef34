package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"memorial_intake_backend/internal/crm"
	"memorial_intake_backend/internal/email"
	"memorial_intake_backend/internal/intake/transport"
	"memorial_intake_backend/internal/money"
	"memorial_intake_backend/internal/payments"
	"memorial_intake_backend/internal/recordstore"
	"memorial_intake_backend/internal/render"
	"memorial_intake_backend/platform/apperr"
	"memorial_intake_backend/platform/logger"
	"memorial_intake_backend/platform/phone"
	"memorial_intake_backend/platform/sanitize"
)

// EmailSender delivers one HTML document to one recipient.
type EmailSender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...email.Attachment) error
}

// TaskCreator adds a card to the workshop task board.
type TaskCreator interface {
	CreateCard(ctx context.Context, title, description, listID string) (string, error)
}

// RecordStore persists intake bookkeeping rows.
type RecordStore interface {
	UpsertCustomer(ctx context.Context, name, email, phone, location string) (uuid.UUID, error)
	CreateOrder(ctx context.Context, params recordstore.CreateOrderParams) (uuid.UUID, error)
	CreateInvoice(ctx context.Context, orderID uuid.UUID, providerInvoiceID string, amountMinorUnits int64, status string, dueDate time.Time) (uuid.UUID, error)
	RecordInscription(ctx context.Context, orderID uuid.UUID, text string) error
}

// ContactUpserter pushes the submitter into the CRM.
type ContactUpserter interface {
	UpsertContact(ctx context.Context, contact crm.ContactUpsert) (string, error)
}

// InvoiceIssuer issues a hosted invoice through the payment processor.
type InvoiceIssuer interface {
	IssueInvoice(ctx context.Context, req payments.InvoiceRequest) (*payments.InvoiceResult, error)
}

// Service orchestrates the fan-out of one submission to the configured
// integrations. Optional integrations are nil when unconfigured and their
// steps are skipped as no-op successes.
type Service struct {
	log      *logger.Logger
	business Business

	sender  EmailSender
	tasks   TaskCreator
	records RecordStore
	crm     ContactUpserter
	issuer  InvoiceIssuer

	now func() time.Time
}

// NewService wires the orchestrator. Any of tasks, records, crmClient and
// issuer may be nil; sender may be nil too, which the handler surfaces as a
// configuration error before orchestration starts.
func NewService(log *logger.Logger, business Business, sender EmailSender, tasks TaskCreator, records RecordStore, crmClient ContactUpserter, issuer InvoiceIssuer) *Service {
	return &Service{
		log:      log,
		business: business,
		sender:   sender,
		tasks:    tasks,
		records:  records,
		crm:      crmClient,
		issuer:   issuer,
		now:      time.Now,
	}
}

// EmailConfigured reports whether an email sender is wired. Without one the
// critical notification step cannot run and no submission may proceed.
func (s *Service) EmailConfigured() bool { return s.sender != nil }

// runContext accumulates identifiers produced by earlier steps for later
// ones. Steps run strictly in order, so plain fields need no locking.
type runContext struct {
	hostedInvoiceURL  string
	providerInvoiceID string
	customerRecordID  uuid.UUID
	orderRecordID     uuid.UUID
	invoiceRecordID   uuid.UUID
}

// Quote runs the quote orchestration. The returned error is non-nil only
// when the critical business notification failed.
func (s *Service) Quote(ctx context.Context, sub transport.Submission) (transport.QuoteResponse, error) {
	breakdown := s.breakdown(sub)
	rc := &runContext{}

	steps := []step{
		{name: "issue_invoice", run: func(ctx context.Context) error {
			return s.issueInvoice(ctx, sub, breakdown, rc)
		}},
		{name: "business_notification", critical: true, run: func(ctx context.Context) error {
			return s.sendBusinessNotification(ctx, sub, breakdown, rc)
		}},
		{name: "customer_confirmation", run: func(ctx context.Context) error {
			return s.sendCustomerConfirmation(ctx, sub, breakdown, rc)
		}},
		{name: "task_card", run: func(ctx context.Context) error {
			return s.createTaskCard(ctx, sub, breakdown, rc)
		}},
		{name: "record_store", run: func(ctx context.Context) error {
			return s.writeRecords(ctx, sub, breakdown, rc)
		}},
		{name: "crm_upsert", run: func(ctx context.Context) error {
			return s.upsertContact(ctx, sub, breakdown)
		}},
	}

	if err := runSteps(ctx, s.log, steps); err != nil {
		return transport.QuoteResponse{}, apperr.Wrap(apperr.KindInternal, "Failed to send notification email", err)
	}

	resp := transport.QuoteResponse{OK: true, InvoiceOnly: sub.InvoiceOnly()}
	if rc.invoiceRecordID != uuid.Nil {
		id := rc.invoiceRecordID.String()
		resp.InvoiceID = &id
	}
	if rc.hostedInvoiceURL != "" {
		url := rc.hostedInvoiceURL
		resp.HostedInvoiceURL = &url
	}
	return resp, nil
}

// Enquiry runs the enquiry orchestration: same criticality pattern as a
// quote with a narrower fan-out and no invoice step.
func (s *Service) Enquiry(ctx context.Context, sub transport.Submission) (transport.EnquiryResponse, error) {
	breakdown := money.Breakdown{}
	rc := &runContext{}

	steps := []step{
		{name: "business_notification", critical: true, run: func(ctx context.Context) error {
			return s.sendBusinessNotification(ctx, sub, breakdown, rc)
		}},
		{name: "customer_confirmation", run: func(ctx context.Context) error {
			return s.sendCustomerConfirmation(ctx, sub, breakdown, rc)
		}},
		{name: "task_card", run: func(ctx context.Context) error {
			return s.createTaskCard(ctx, sub, breakdown, rc)
		}},
		{name: "record_store", run: func(ctx context.Context) error {
			return s.writeRecords(ctx, sub, breakdown, rc)
		}},
		{name: "crm_upsert", run: func(ctx context.Context) error {
			return s.upsertContact(ctx, sub, breakdown)
		}},
	}

	if err := runSteps(ctx, s.log, steps); err != nil {
		return transport.EnquiryResponse{}, apperr.Wrap(apperr.KindInternal, "Failed to send notification email", err)
	}
	return transport.EnquiryResponse{OK: true}, nil
}

func (s *Service) breakdown(sub transport.Submission) money.Breakdown {
	if sub.Product == nil {
		return money.Breakdown{}
	}
	lineItems := make([]money.AddonInput, 0, len(sub.Product.AddonLineItems))
	for _, item := range sub.Product.AddonLineItems {
		lineItems = append(lineItems, money.AddonInput{Name: item.Name, Price: item.Price})
	}
	return money.Compute(sub.Product.Price, lineItems, sub.Product.Addons)
}

func (s *Service) renderContext(sub transport.Submission, rc *runContext) render.Context {
	colour := ""
	if sub.Product != nil {
		colour = s.business.DisplayColour(sub.Product.Colour)
	}
	return render.Context{
		BusinessName:     s.business.Name,
		DisplayColour:    colour,
		HostedInvoiceURL: rc.hostedInvoiceURL,
		SubmittedAt:      s.now().UTC().Format("2 January 2006 15:04 MST"),
	}
}

// issueInvoice runs only for invoice-only quotes with a parseable price and
// a configured issuer. Its hosted URL feeds every later document.
func (s *Service) issueInvoice(ctx context.Context, sub transport.Submission, b money.Breakdown, rc *runContext) error {
	if !sub.InvoiceOnly() || sub.Product == nil {
		return nil
	}
	if s.issuer == nil {
		s.log.IntegrationSkipped("issue_invoice")
		return nil
	}
	if !b.Priced || money.MinorUnits(b.GrandTotal) <= 0 {
		return nil
	}

	baseDescription := sub.Product.Name
	if baseDescription == "" {
		baseDescription = "Memorial"
	}
	baseDescription += " (incl. installation)"

	var lineItems []payments.LineItem
	for _, line := range money.InvoiceLines(b, baseDescription) {
		lineItems = append(lineItems, payments.LineItem{Description: line.Description, AmountMinorUnits: line.AmountMinor})
	}

	result, err := s.issuer.IssueInvoice(ctx, payments.InvoiceRequest{
		CustomerName:  sub.Name,
		CustomerEmail: sub.Email,
		CustomerPhone: phone.NormalizeE164(sub.Phone),
		LineItems:     lineItems,
		Metadata: map[string]string{
			"customerName":  sub.Name,
			"customerEmail": sub.Email,
			"location":      sub.Location,
			"productName":   sub.Product.Name,
		},
	})
	if err != nil {
		return err
	}

	rc.hostedInvoiceURL = result.HostedInvoiceURL
	rc.providerInvoiceID = result.InvoiceID
	return nil
}

func (s *Service) sendBusinessNotification(ctx context.Context, sub transport.Submission, b money.Breakdown, rc *runContext) error {
	doc, err := render.BusinessNotification(sub, b, s.renderContext(sub, rc))
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New %s from %s", kindNoun(sub), sub.Name)
	return s.sender.Send(ctx, s.business.NotifyAddress, subject, doc)
}

func (s *Service) sendCustomerConfirmation(ctx context.Context, sub transport.Submission, b money.Breakdown, rc *runContext) error {
	doc, err := render.CustomerConfirmation(sub, b, s.renderContext(sub, rc))
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("%s has received your %s", s.business.Name, kindNoun(sub))

	var attachments []email.Attachment
	if rc.hostedInvoiceURL != "" {
		// QR of the hosted payment page, for printed copies of the email.
		if png, err := qrcode.Encode(rc.hostedInvoiceURL, qrcode.Medium, 256); err == nil {
			attachments = append(attachments, email.Attachment{
				Content:  png,
				FileName: "invoice-qr.png",
				MIMEType: "image/png",
			})
		}
	}

	return s.sender.Send(ctx, sub.Email, subject, doc, attachments...)
}

func (s *Service) createTaskCard(ctx context.Context, sub transport.Submission, b money.Breakdown, rc *runContext) error {
	if s.tasks == nil {
		s.log.IntegrationSkipped("task_card")
		return nil
	}

	title := fmt.Sprintf("%s: %s", titleNoun(sub), sub.Name)
	description := render.TaskDescription(sub, b, s.renderContext(sub, rc))

	cardID, err := s.tasks.CreateCard(ctx, title, description, s.business.TaskListID)
	if err != nil {
		return err
	}
	s.log.Debug("task card created", "card_id", cardID)
	return nil
}

// writeRecords is the at-least-once bookkeeping step. A failure partway
// leaves earlier rows in place; nothing is rolled back.
func (s *Service) writeRecords(ctx context.Context, sub transport.Submission, b money.Breakdown, rc *runContext) error {
	if s.records == nil {
		s.log.IntegrationSkipped("record_store")
		return nil
	}

	customerID, err := s.records.UpsertCustomer(ctx, sub.Name, sub.Email, phone.NormalizeE164(sub.Phone), sub.Location)
	if err != nil {
		return err
	}
	rc.customerRecordID = customerID

	params := recordstore.CreateOrderParams{
		CustomerID: customerID,
		OrderType:  s.business.EnquiryOrderType,
	}
	if sub.IsQuote() {
		params.OrderType = "quote"
	}
	if sub.Product != nil {
		params.ProductName = sanitize.Text(sub.Product.Name)
		params.ProductType = sanitize.Text(sub.Product.Type)
		params.Colour = s.business.DisplayColour(sub.Product.Colour)
		params.Size = sanitize.Text(sub.Product.Size)
		params.TotalAmount = b.GrandTotal
	}

	orderID, err := s.records.CreateOrder(ctx, params)
	if err != nil {
		return err
	}
	rc.orderRecordID = orderID

	if sub.IsQuote() && b.Priced {
		invoiceID, err := s.records.CreateInvoice(ctx, orderID, rc.providerInvoiceID,
			money.MinorUnits(b.GrandTotal), "pending", s.now().AddDate(0, 0, 30))
		if err != nil {
			return err
		}
		rc.invoiceRecordID = invoiceID
	}

	if sub.Product != nil && sub.Product.Inscription != "" {
		if err := s.records.RecordInscription(ctx, orderID, sanitize.Text(sub.Product.Inscription)); err != nil {
			return err
		}
	}

	return nil
}

func (s *Service) upsertContact(ctx context.Context, sub transport.Submission, b money.Breakdown) error {
	if s.crm == nil {
		s.log.IntegrationSkipped("crm_upsert")
		return nil
	}

	tags := []string{"website-lead"}
	customFields := map[string]string{}

	if sub.IsQuote() {
		tags = append(tags, "quote-request")
		if sub.Product != nil {
			if slug := Slugify(sub.Product.Type); slug != "" {
				tags = append(tags, slug)
			}
			customFields["product_name"] = sub.Product.Name
			customFields["product_colour"] = s.business.DisplayColour(sub.Product.Colour)
			customFields["product_size"] = sub.Product.Size
			if b.Priced {
				customFields["product_price"] = money.FormatGBP(b.GrandTotal)
			}
		}
	} else {
		tags = append(tags, "contact-form")
	}

	contactID, err := s.crm.UpsertContact(ctx, crm.ContactUpsert{
		Name:         sub.Name,
		Email:        sub.Email,
		Phone:        phone.NormalizeE164(sub.Phone),
		Tags:         tags,
		CustomFields: customFields,
	})
	if err != nil {
		return err
	}
	s.log.Debug("crm contact upserted", "contact_id", contactID)
	return nil
}

func kindNoun(sub transport.Submission) string {
	if sub.IsQuote() {
		return "quote request"
	}
	return "enquiry"
}

func titleNoun(sub transport.Submission) string {
	if sub.IsQuote() {
		return "Quote request"
	}
	return "Enquiry"
}
