// Package paymenthook receives the payment processor's asynchronous
// payment confirmations, verifies their signatures and applies best-effort
// follow-up: marking the deposit paid and emailing both parties.
package paymenthook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"memorial_intake_backend/platform/httpkit"
)

const signatureHeader = "Stripe-Signature"

// Handler exposes the payment confirmation endpoint.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Receive handles POST /hooks/payments. Signature verification needs the
// raw body bytes, so the payload is read before any JSON decoding. Apart
// from a bad signature, the processor always gets 200 so it stops
// redelivering; internal failures are logged, not surfaced.
func (h *Handler) Receive(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpkit.Fail(c, http.StatusBadRequest, "unreadable body")
		return
	}

	if err := h.svc.Verify(payload, c.GetHeader(signatureHeader)); err != nil {
		httpkit.Fail(c, http.StatusBadRequest, "invalid signature")
		return
	}

	h.svc.Process(c.Request.Context(), payload)
	httpkit.OK(c, gin.H{"received": true})
}
