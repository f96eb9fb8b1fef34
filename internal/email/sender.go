// Package email provides the transactional email sender used for every
// outbound notification document.
package email

import (
	"context"
	"strconv"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte // raw file bytes (base64-encoded on the wire where required)
	FileName string // e.g. "invoice-qr.png"
	MIMEType string // e.g. "image/png"
}

// Sender delivers one rendered HTML document. The from identity is part of
// the sender's configuration, not the call.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error
}

// DeliveryError is the typed failure returned when the provider rejects or
// fails a send.
type DeliveryError struct {
	StatusCode      int
	ProviderMessage string
}

func (e *DeliveryError) Error() string {
	if e.StatusCode > 0 {
		return "email delivery failed: status " + strconv.Itoa(e.StatusCode) + ": " + e.ProviderMessage
	}
	return "email delivery failed: " + e.ProviderMessage
}
