package intake

import (
	"strings"

	"github.com/gin-gonic/gin"

	"memorial_intake_backend/internal/intake/transport"
	"memorial_intake_backend/platform/apperr"
	"memorial_intake_backend/platform/httpkit"
	"memorial_intake_backend/platform/validator"
)

// Error strings returned to the static site's form handler. The site
// switches on these exact values, so they are part of the contract.
const (
	errInvalidJSON   = "Invalid JSON"
	errMissingFields = "Missing required fields"
	errNoEmailConfig = "Server configuration error"
)

// Handler exposes the submission endpoint.
type Handler struct {
	svc      *Service
	validate *validator.Validator
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// Submit handles POST /api/v1/submissions.
func (h *Handler) Submit(c *gin.Context) {
	// Without an email sender the critical notification step cannot run,
	// so no submission may be accepted at all.
	if !h.svc.EmailConfigured() {
		httpkit.HandleError(c, apperr.Internal(errNoEmailConfig))
		return
	}

	var sub transport.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(errInvalidJSON))
		return
	}

	if err := h.validate.Struct(sub); err != nil {
		httpkit.HandleError(c, apperr.Validation(errMissingFields))
		return
	}

	if sub.IsQuote() {
		resp, err := h.svc.Quote(c.Request.Context(), sub)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, resp)
		return
	}

	// Enquiries without a message carry nothing actionable.
	if strings.TrimSpace(sub.Message) == "" {
		httpkit.HandleError(c, apperr.Validation(errMissingFields))
		return
	}

	resp, err := h.svc.Enquiry(c.Request.Context(), sub)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
