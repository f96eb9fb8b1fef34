// Package money normalizes a product configuration into the price breakdown
// used by every rendered representation of a submission.
package money

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AddonInput is a raw add-on line as received from the form: the price is a
// decimal string and may be empty, meaning "included, not separately priced".
type AddonInput struct {
	Name  string
	Price string
}

// AddonLine is a normalized add-on line. A nil Price means the add-on is
// included in the base price.
type AddonLine struct {
	Name  string
	Price *float64
}

// Breakdown is the normalized price split for one product configuration.
// GrandTotal is the number actually billed and recorded; BaseAmount and
// AddonTotal exist purely for display and must never be used to recompute
// billed amounts.
type Breakdown struct {
	GrandTotal float64
	AddonTotal float64
	BaseAmount float64
	AddonLines []AddonLine
	// Priced is false when the product price was missing or unparsable;
	// display layers substitute a placeholder instead of £0.00.
	Priced bool
}

// InvoiceLine is a payment-processor line item in integer minor units.
type InvoiceLine struct {
	Description string
	AmountMinor int64
}

// ParseAmount parses a decimal price string, tolerating a currency symbol and
// thousands separators. An unparsable or negative value yields (0, false):
// a missing price is displayed as a placeholder, never treated as an error.
func ParseAmount(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "£")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, false
	}
	return value, true
}

// Compute builds the breakdown for a product price and its add-ons.
// lineItems takes precedence; bareAddons is the legacy fallback where add-on
// names arrive without prices.
func Compute(price string, lineItems []AddonInput, bareAddons []string) Breakdown {
	grandTotal, priced := ParseAmount(price)

	var lines []AddonLine
	if len(lineItems) > 0 {
		lines = make([]AddonLine, 0, len(lineItems))
		for _, item := range lineItems {
			line := AddonLine{Name: item.Name}
			if value, ok := ParseAmount(item.Price); ok && strings.TrimSpace(item.Price) != "" {
				price := value
				line.Price = &price
			}
			lines = append(lines, line)
		}
	} else {
		lines = make([]AddonLine, 0, len(bareAddons))
		for _, name := range bareAddons {
			lines = append(lines, AddonLine{Name: name})
		}
	}

	var addonTotal float64
	for _, line := range lines {
		if line.Price != nil {
			addonTotal += *line.Price
		}
	}

	baseAmount := grandTotal - addonTotal
	if baseAmount < 0 {
		baseAmount = 0
	}

	return Breakdown{
		GrandTotal: grandTotal,
		AddonTotal: addonTotal,
		BaseAmount: baseAmount,
		AddonLines: lines,
		Priced:     priced,
	}
}

// MinorUnits converts a major-unit amount to integer minor units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// InvoiceLines converts a breakdown to processor line items. The base line
// absorbs any rounding drift so the line-item sum always equals
// MinorUnits(GrandTotal) exactly. If priced add-ons exceed the grand total,
// the split is meaningless and a single line carries the full amount.
func InvoiceLines(b Breakdown, baseDescription string) []InvoiceLine {
	total := MinorUnits(b.GrandTotal)

	var addonLines []InvoiceLine
	var addonSum int64
	for _, line := range b.AddonLines {
		if line.Price == nil {
			continue
		}
		amount := MinorUnits(*line.Price)
		addonLines = append(addonLines, InvoiceLine{Description: line.Name, AmountMinor: amount})
		addonSum += amount
	}

	base := total - addonSum
	if base < 0 {
		return []InvoiceLine{{Description: baseDescription, AmountMinor: total}}
	}

	lines := make([]InvoiceLine, 0, len(addonLines)+1)
	lines = append(lines, InvoiceLine{Description: baseDescription, AmountMinor: base})
	lines = append(lines, addonLines...)
	return lines
}

// FormatGBP renders a major-unit amount for display, e.g. "£1,250.00".
func FormatGBP(amount float64) string {
	formatted := fmt.Sprintf("%.2f", amount)
	parts := strings.SplitN(formatted, ".", 2)
	whole := parts[0]

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	return "£" + grouped.String() + "." + parts[1]
}
