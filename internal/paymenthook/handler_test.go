package paymenthook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"memorial_intake_backend/internal/email"
	"memorial_intake_backend/platform/logger"
)

type sentEmail struct {
	to      string
	subject string
	html    string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, html string, _ ...email.Attachment) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, html: html})
	return nil
}

type fakeMarker struct {
	emails  []string
	amounts []int64
	err     error
}

func (f *fakeMarker) MarkDepositPaid(_ context.Context, email string, amountMinorUnits int64) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.emails = append(f.emails, email)
	f.amounts = append(f.amounts, amountMinorUnits)
	return uuid.New(), nil
}

func newHookRouter(t *testing.T, svc *Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/hooks/payments", NewHandler(svc).Receive)
	return engine
}

func signedHeader(payload []byte, secret string) string {
	now := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", now, payload)
	return fmt.Sprintf("t=%d,v1=%s", now, hex.EncodeToString(mac.Sum(nil)))
}

func paidEvent() []byte {
	return []byte(`{
		"type": "invoice.paid",
		"data": {"object": {
			"amount_paid": 25000,
			"metadata": {
				"customerName": "Ada Hewitt",
				"customerEmail": "ada@example.com",
				"location": "Highgate Cemetery",
				"productName": "Classic Headstone"
			}
		}}
	}`)
}

func postHook(t *testing.T, engine *gin.Engine, payload []byte, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/hooks/payments", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestReceiveValidSignature(t *testing.T) {
	sender := &fakeSender{}
	marker := &fakeMarker{}
	svc := NewService(logger.New("test"), "Hewitt Memorials", "workshop@example.com", "whsec_test", sender, marker)
	engine := newHookRouter(t, svc)

	payload := paidEvent()
	rec := postHook(t, engine, payload, signedHeader(payload, "whsec_test"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"received":true}` {
		t.Fatalf("body = %s", rec.Body.String())
	}

	if len(marker.emails) != 1 || marker.emails[0] != "ada@example.com" {
		t.Fatalf("deposit not marked: %+v", marker.emails)
	}
	if marker.amounts[0] != 25000 {
		t.Fatalf("amount = %d, want 25000", marker.amounts[0])
	}

	if len(sender.sent) != 2 {
		t.Fatalf("expected customer + business emails, got %d", len(sender.sent))
	}
	if sender.sent[0].to != "ada@example.com" || sender.sent[1].to != "workshop@example.com" {
		t.Fatalf("recipients = %q, %q", sender.sent[0].to, sender.sent[1].to)
	}
	if !strings.Contains(sender.sent[0].html, "£250.00") {
		t.Fatalf("confirmation missing formatted amount: %s", sender.sent[0].html)
	}
}

func TestReceiveTamperedBody(t *testing.T) {
	sender := &fakeSender{}
	marker := &fakeMarker{}
	svc := NewService(logger.New("test"), "Hewitt Memorials", "workshop@example.com", "whsec_test", sender, marker)
	engine := newHookRouter(t, svc)

	header := signedHeader(paidEvent(), "whsec_test")
	tampered := bytes.Replace(paidEvent(), []byte("25000"), []byte("1"), 1)

	rec := postHook(t, engine, tampered, header)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(marker.emails) != 0 || len(sender.sent) != 0 {
		t.Fatalf("side effects ran on a tampered payload")
	}
}

func TestReceiveMissingSignature(t *testing.T) {
	svc := NewService(logger.New("test"), "Hewitt Memorials", "workshop@example.com", "whsec_test", &fakeSender{}, &fakeMarker{})
	engine := newHookRouter(t, svc)

	rec := postHook(t, engine, paidEvent(), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReceiveNoSecretSkipsVerification(t *testing.T) {
	sender := &fakeSender{}
	marker := &fakeMarker{}
	svc := NewService(logger.New("test"), "Hewitt Memorials", "workshop@example.com", "", sender, marker)
	engine := newHookRouter(t, svc)

	rec := postHook(t, engine, paidEvent(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if len(marker.emails) != 1 {
		t.Fatalf("deposit not marked without secret configured")
	}
}

func TestReceiveIgnoresOtherEventTypes(t *testing.T) {
	sender := &fakeSender{}
	marker := &fakeMarker{}
	svc := NewService(logger.New("test"), "Hewitt Memorials", "workshop@example.com", "", sender, marker)
	engine := newHookRouter(t, svc)

	rec := postHook(t, engine, []byte(`{"type":"customer.created","data":{"object":{}}}`), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(marker.emails) != 0 || len(sender.sent) != 0 {
		t.Fatalf("non-payment event must be a no-op")
	}
}

func TestReceiveAcksDespiteInternalFailures(t *testing.T) {
	sender := &fakeSender{err: &email.DeliveryError{StatusCode: 500, ProviderMessage: "down"}}
	marker := &fakeMarker{err: fmt.Errorf("no matching order")}
	svc := NewService(logger.New("test"), "Hewitt Memorials", "workshop@example.com", "", sender, marker)
	engine := newHookRouter(t, svc)

	rec := postHook(t, engine, paidEvent(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("internal failures must still ack: status %d", rec.Code)
	}
	if rec.Body.String() != `{"received":true}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
