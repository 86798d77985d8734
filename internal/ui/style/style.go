// Package style provides shared UI styling primitives including brand colors
// and icons for consistent visual presentation across the CLI.
package style

import (
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/kiln/internal/core/domain"
)

// Brand Colors.
var (
	Ember  = lipgloss.Color("#E8590C")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Stop    = "■"
)

// OutcomeIcon returns the icon and color used to present a compilation outcome.
func OutcomeIcon(o domain.Outcome) (string, lipgloss.Color) {
	switch o {
	case domain.OutcomeSuccess:
		return Check, Green
	case domain.OutcomeCancelled:
		return Stop, Yellow
	default:
		return Cross, Red
	}
}
