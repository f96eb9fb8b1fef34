package paymenthook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"memorial_intake_backend/internal/email"
	"memorial_intake_backend/internal/money"
	"memorial_intake_backend/internal/payments"
	"memorial_intake_backend/internal/render"
	"memorial_intake_backend/platform/logger"
)

// EmailSender delivers one HTML document to one recipient.
type EmailSender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...email.Attachment) error
}

// DepositMarker flags the most recent order for an email as deposit paid.
type DepositMarker interface {
	MarkDepositPaid(ctx context.Context, email string, amountMinorUnits int64) (uuid.UUID, error)
}

// Service verifies and applies payment confirmations. Every side effect is
// best-effort; a failure is logged and the processor still gets its ack.
type Service struct {
	log           *logger.Logger
	businessName  string
	notifyAddress string
	secret        string

	sender  EmailSender
	records DepositMarker

	now func() time.Time
}

// NewService wires the webhook service. sender and records may be nil when
// the matching integrations are not configured.
func NewService(log *logger.Logger, businessName, notifyAddress, webhookSecret string, sender EmailSender, records DepositMarker) *Service {
	return &Service{
		log:           log,
		businessName:  businessName,
		notifyAddress: notifyAddress,
		secret:        webhookSecret,
		sender:        sender,
		records:       records,
		now:           time.Now,
	}
}

// Verify checks the request signature. With no secret configured the check
// is skipped entirely, an accepted reduced-security mode for environments
// where the secret has not been provisioned.
func (s *Service) Verify(payload []byte, header string) error {
	if s.secret == "" {
		return nil
	}
	return payments.VerifySignature(payload, header, s.secret, payments.DefaultTolerance)
}

// event is the subset of the processor's webhook envelope the service
// reads. Metadata is stamped onto the invoice at issue time.
type event struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			AmountPaid     int64             `json:"amount_paid"`
			AmountReceived int64             `json:"amount_received"`
			Metadata       map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func (e event) paymentSucceeded() bool {
	switch e.Type {
	case "invoice.paid", "invoice.payment_succeeded", "payment_intent.succeeded":
		return true
	}
	return false
}

func (e event) amountMinorUnits() int64 {
	if e.Data.Object.AmountPaid != 0 {
		return e.Data.Object.AmountPaid
	}
	return e.Data.Object.AmountReceived
}

// Process applies the follow-up for a verified payload. Non-payment events
// and undecodable payloads are ignored.
func (s *Service) Process(ctx context.Context, payload []byte) {
	var evt event
	if err := json.Unmarshal(payload, &evt); err != nil {
		s.log.IntegrationError("payment_hook_decode", err)
		return
	}
	if !evt.paymentSucceeded() {
		s.log.Debug("payment hook ignored", "type", evt.Type)
		return
	}

	meta := evt.Data.Object.Metadata
	deposit := render.Deposit{
		CustomerName:    meta["customerName"],
		CustomerEmail:   meta["customerEmail"],
		Location:        meta["location"],
		ProductName:     meta["productName"],
		AmountFormatted: money.FormatGBP(float64(evt.amountMinorUnits()) / 100),
	}

	if deposit.CustomerEmail == "" {
		s.log.IntegrationError("deposit_correlate", fmt.Errorf("event %s carries no customerEmail metadata", evt.Type))
		return
	}

	s.markDepositPaid(ctx, deposit, evt.amountMinorUnits())
	s.sendDepositEmails(ctx, deposit)
}

func (s *Service) markDepositPaid(ctx context.Context, deposit render.Deposit, amountMinorUnits int64) {
	if s.records == nil {
		s.log.IntegrationSkipped("deposit_record")
		return
	}
	orderID, err := s.records.MarkDepositPaid(ctx, deposit.CustomerEmail, amountMinorUnits)
	if err != nil {
		s.log.IntegrationError("deposit_record", err, "customer_email", deposit.CustomerEmail)
		return
	}
	s.log.Debug("deposit recorded", "order_id", orderID.String())
}

func (s *Service) sendDepositEmails(ctx context.Context, deposit render.Deposit) {
	if s.sender == nil {
		s.log.IntegrationSkipped("deposit_emails")
		return
	}

	renderCtx := render.Context{
		BusinessName: s.businessName,
		SubmittedAt:  s.now().UTC().Format("2 January 2006 15:04 MST"),
	}

	if doc, err := render.DepositConfirmation(deposit, renderCtx); err != nil {
		s.log.IntegrationError("deposit_confirmation", err)
	} else if err := s.sender.Send(ctx, deposit.CustomerEmail, "Your deposit has been received", doc); err != nil {
		s.log.IntegrationError("deposit_confirmation", err, "customer_email", deposit.CustomerEmail)
	}

	subject := fmt.Sprintf("Deposit received from %s", deposit.CustomerName)
	if doc, err := render.DepositReceived(deposit, renderCtx); err != nil {
		s.log.IntegrationError("deposit_received", err)
	} else if err := s.sender.Send(ctx, s.notifyAddress, subject, doc); err != nil {
		s.log.IntegrationError("deposit_received", err)
	}
}
