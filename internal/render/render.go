// Package render turns a submission record into the documents sent to the
// business, the customer, and the task board. Renderers are pure: the same
// submission, breakdown, and context always produce identical output, and a
// missing optional field renders a placeholder, never an error.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"memorial_intake_backend/internal/intake/transport"
	"memorial_intake_backend/internal/money"
)

//go:embed templates/*.html
var templateFS embed.FS

// Placeholders for absent optional fields.
const (
	placeholderText  = "Not provided"
	placeholderPrice = "—"
)

// Context carries values computed mid-orchestration that the documents need.
type Context struct {
	BusinessName     string
	DisplayColour    string
	HostedInvoiceURL string
	SubmittedAt      string
}

type row struct {
	Label string
	Value template.HTML
}

type emailData struct {
	Title            string
	Heading          string
	Intro            string
	BusinessName     string
	SubmittedAt      string
	Rows             []row
	Message          template.HTML
	HasProduct       bool
	ProductRows      []row
	Inscription      template.HTML
	PriceRows        []row
	HostedInvoiceURL string
}

// BusinessNotification renders the lead notification sent to the business.
func BusinessNotification(sub transport.Submission, b money.Breakdown, ctx Context) (string, error) {
	data := emailData{
		Title:            "New website " + kindLabel(sub),
		Heading:          "New " + kindLabel(sub) + " from the website",
		Intro:            "A visitor has submitted the " + kindLabel(sub) + " form.",
		BusinessName:     ctx.BusinessName,
		SubmittedAt:      ctx.SubmittedAt,
		Rows:             contactRows(sub),
		Message:          nl2br(sub.Message),
		HostedInvoiceURL: ctx.HostedInvoiceURL,
	}
	fillProduct(&data, sub, b, ctx)

	return execute("business_notification.html", data)
}

// CustomerConfirmation renders the confirmation sent back to the customer.
func CustomerConfirmation(sub transport.Submission, b money.Breakdown, ctx Context) (string, error) {
	intro := fmt.Sprintf("Dear %s, thank you for contacting %s. We have received your %s.",
		strings.TrimSpace(sub.Name), ctx.BusinessName, kindLabel(sub))

	data := emailData{
		Title:            "Thank you for your " + kindLabel(sub),
		Heading:          "Thank you for your " + kindLabel(sub),
		Intro:            intro,
		BusinessName:     ctx.BusinessName,
		SubmittedAt:      ctx.SubmittedAt,
		HostedInvoiceURL: ctx.HostedInvoiceURL,
	}
	fillProduct(&data, sub, b, ctx)

	return execute("customer_confirmation.html", data)
}

// Deposit describes a confirmed deposit payment for the deposit documents.
type Deposit struct {
	CustomerName    string
	CustomerEmail   string
	Location        string
	ProductName     string
	AmountFormatted string
}

// DepositReceived renders the deposit notification sent to the business.
func DepositReceived(d Deposit, ctx Context) (string, error) {
	data := emailData{
		Title:        "Deposit received",
		Heading:      "Deposit received",
		Intro:        fmt.Sprintf("A deposit of %s has been paid.", d.AmountFormatted),
		BusinessName: ctx.BusinessName,
		SubmittedAt:  ctx.SubmittedAt,
		Rows:         depositRows(d),
	}
	return execute("deposit_received.html", data)
}

// DepositConfirmation renders the receipt sent to the paying customer.
func DepositConfirmation(d Deposit, ctx Context) (string, error) {
	intro := fmt.Sprintf("Dear %s, thank you. Your deposit of %s has been received by %s.",
		strings.TrimSpace(d.CustomerName), d.AmountFormatted, ctx.BusinessName)
	data := emailData{
		Title:        "Deposit confirmed",
		Heading:      "Deposit confirmed",
		Intro:        intro,
		BusinessName: ctx.BusinessName,
		SubmittedAt:  ctx.SubmittedAt,
		Rows:         depositRows(d),
	}
	return execute("deposit_confirmation.html", data)
}

func depositRows(d Deposit) []row {
	return []row{
		{Label: "Name", Value: escape(textOr(d.CustomerName))},
		{Label: "Email", Value: escape(textOr(d.CustomerEmail))},
		{Label: "Memorial", Value: escape(textOr(d.ProductName))},
		{Label: "Cemetery / location", Value: escape(textOr(d.Location))},
		{Label: "Amount", Value: escape(d.AmountFormatted)},
	}
}

// TaskDescription renders the plain-text task board card body. Plain text is
// not escaped and user line breaks are preserved literally.
func TaskDescription(sub transport.Submission, b money.Breakdown, ctx Context) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Name: %s\n", textOr(sub.Name))
	fmt.Fprintf(&sb, "Email: %s\n", textOr(sub.Email))
	fmt.Fprintf(&sb, "Phone: %s\n", textOr(sub.Phone))
	fmt.Fprintf(&sb, "Location: %s\n", textOr(sub.Location))

	if sub.Message != "" {
		fmt.Fprintf(&sb, "\nMessage:\n%s\n", sub.Message)
	}

	if sub.Product != nil {
		p := sub.Product
		fmt.Fprintf(&sb, "\nProduct: %s\n", textOr(p.Name))
		fmt.Fprintf(&sb, "Type: %s\n", textOr(p.Type))
		fmt.Fprintf(&sb, "Colour: %s\n", textOr(ctx.DisplayColour))
		fmt.Fprintf(&sb, "Size: %s\n", textOr(p.Size))
		if p.Inscription != "" {
			fmt.Fprintf(&sb, "Inscription:\n%s\n", p.Inscription)
		}

		fmt.Fprintf(&sb, "\nBase price: %s\n", priceOr(b.BaseAmount, b.Priced))
		for _, line := range b.AddonLines {
			if line.Price != nil {
				fmt.Fprintf(&sb, "Add-on %s: %s\n", line.Name, money.FormatGBP(*line.Price))
			} else {
				fmt.Fprintf(&sb, "Add-on %s: included\n", line.Name)
			}
		}
		fmt.Fprintf(&sb, "Total: %s\n", priceOr(b.GrandTotal, b.Priced))
	}

	if ctx.HostedInvoiceURL != "" {
		fmt.Fprintf(&sb, "\nInvoice: %s\n", ctx.HostedInvoiceURL)
	}
	fmt.Fprintf(&sb, "\nSubmitted: %s\n", ctx.SubmittedAt)

	return sb.String()
}

func fillProduct(data *emailData, sub transport.Submission, b money.Breakdown, ctx Context) {
	if sub.Product == nil {
		return
	}
	p := sub.Product

	data.HasProduct = true
	data.ProductRows = []row{
		{Label: "Memorial", Value: escape(textOr(p.Name))},
		{Label: "Type", Value: escape(textOr(p.Type))},
		{Label: "Colour", Value: escape(textOr(ctx.DisplayColour))},
		{Label: "Size", Value: escape(textOr(p.Size))},
	}
	data.Inscription = nl2br(p.Inscription)

	priceRows := []row{
		{Label: "Base price (incl. installation)", Value: escape(priceOr(b.BaseAmount, b.Priced))},
	}
	for _, line := range b.AddonLines {
		value := "Included"
		if line.Price != nil {
			value = money.FormatGBP(*line.Price)
		}
		priceRows = append(priceRows, row{Label: line.Name, Value: escape(value)})
	}
	priceRows = append(priceRows, row{Label: "Total", Value: escape(priceOr(b.GrandTotal, b.Priced))})
	data.PriceRows = priceRows
}

func contactRows(sub transport.Submission) []row {
	return []row{
		{Label: "Name", Value: escape(textOr(sub.Name))},
		{Label: "Email", Value: escape(textOr(sub.Email))},
		{Label: "Phone", Value: escape(textOr(sub.Phone))},
		{Label: "Cemetery / location", Value: escape(textOr(sub.Location))},
	}
}

func kindLabel(sub transport.Submission) string {
	if sub.IsQuote() {
		return "quote request"
	}
	return "enquiry"
}

func textOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return placeholderText
	}
	return s
}

func priceOr(amount float64, priced bool) string {
	if !priced {
		return placeholderPrice
	}
	return money.FormatGBP(amount)
}

// escape HTML-escapes a plain string for embedding in a markup document.
func escape(s string) template.HTML {
	return template.HTML(template.HTMLEscapeString(s))
}

// nl2br escapes user text and converts line breaks to <br> so multi-line
// messages keep their shape in markup documents.
func nl2br(s string) template.HTML {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return template.HTML(escaped)
}

func execute(name string, data emailData) (string, error) {
	tmpl, err := template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
