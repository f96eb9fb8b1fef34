package intake

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"memorial_intake_backend/platform/config"
)

// Business holds the stable business identity values the pipeline stamps
// into every document and record. Built once at startup; never mutated.
type Business struct {
	Name          string
	NotifyAddress string
	TaskListID    string

	// EnquiryOrderType is the order_type stored for plain enquiries.
	EnquiryOrderType string

	// ColourNames maps a stone colour slug from the product form to the
	// display name used in emails and task cards.
	ColourNames map[string]string

	// DefaultColour is used when the submitted colour has no mapping.
	DefaultColour string
}

// businessOverrides is the optional YAML file shape. Only non-zero fields
// override the built-in defaults.
type businessOverrides struct {
	Name          string            `yaml:"name"`
	ColourNames   map[string]string `yaml:"colour_names"`
	DefaultColour string            `yaml:"default_colour"`
}

// Default stone colour display names. The form sends slugs; emails and
// task cards show the full trade name.
func defaultColourNames() map[string]string {
	return map[string]string{
		"black":        "Black Granite",
		"grey":         "Light Grey Granite",
		"dark-grey":    "Dark Grey Granite",
		"blue-pearl":   "Blue Pearl Granite",
		"emerald":      "Emerald Pearl Granite",
		"ruby-red":     "Ruby Red Granite",
		"white-marble": "White Marble",
	}
}

// NewBusiness builds the business constants from configuration, applying
// the optional YAML override file when one is configured.
func NewBusiness(cfg interface {
	config.BusinessConfig
	config.EmailConfig
	config.TaskBoardConfig
}) (Business, error) {
	b := Business{
		Name:             cfg.GetBusinessName(),
		NotifyAddress:    cfg.GetBusinessNotifyAddress(),
		TaskListID:       cfg.GetTaskBoardListID(),
		EnquiryOrderType: "enquiry",
		ColourNames:      defaultColourNames(),
		DefaultColour:    "Bronze",
	}

	path := cfg.GetBusinessConfigFile()
	if path == "" {
		return b, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Business{}, fmt.Errorf("read business config %s: %w", path, err)
	}

	var overrides businessOverrides
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return Business{}, fmt.Errorf("parse business config %s: %w", path, err)
	}

	if overrides.Name != "" {
		b.Name = overrides.Name
	}
	if overrides.DefaultColour != "" {
		b.DefaultColour = overrides.DefaultColour
	}
	for slug, display := range overrides.ColourNames {
		b.ColourNames[strings.ToLower(strings.TrimSpace(slug))] = display
	}

	return b, nil
}

// DisplayColour resolves a submitted colour value to its display name.
// Unknown or empty colours fall back to the default.
func (b Business) DisplayColour(colour string) string {
	key := strings.ToLower(strings.TrimSpace(colour))
	if key == "" {
		return b.DefaultColour
	}
	if display, ok := b.ColourNames[key]; ok {
		return display
	}
	return b.DefaultColour
}

// Slugify converts a free-text value to a lowercase hyphenated tag for the
// CRM (for example "Flat Marker" becomes "flat-marker").
func Slugify(s string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
