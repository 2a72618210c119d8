// Package pdf renders a negotiation transcript to a printable PDF document.
package pdf

import (
	"html/template"
	"regexp"
	"time"

	"github.com/procurebot/backend/internal/domain"
)

// Cleanup rules for chat text. Model replies arrive with markdown emphasis
// and soft-wrapped lines that print badly, so emphasis markers are stripped,
// blank-line runs become paragraph breaks, wrapped lines are joined, and
// numbered/bulleted list breaks are preserved.
var (
	emphasisMarkers = regexp.MustCompile(`[*#]+`)
	blankLineRuns   = regexp.MustCompile(`\n{2,}`)
	commaWrapDigit  = regexp.MustCompile(`, *\n(\d)`)
	softWrap        = regexp.MustCompile(`([^\n])\n([^\n\-•0-9])`)
	softWrapLetter  = regexp.MustCompile(`([^\n])\n([A-Za-z])`)
	numberedItem    = regexp.MustCompile(`(\n|^)(\d+\.)`)
	bulletItem      = regexp.MustCompile(`(\n|^)- `)
	remainingBreaks = regexp.MustCompile(`\n`)
)

// FormatMessage cleans a chat message for document rendering and returns
// HTML-safe markup. Emphasis markers are stripped from the raw text before
// escaping; escaping first would produce entities like &#39; whose # the
// marker strip would eat. The text is escaped before the cleanup inserts
// <br> tags, so message content can never smuggle markup into the document.
func FormatMessage(text string) template.HTML {
	if text == "" {
		return ""
	}
	clean := emphasisMarkers.ReplaceAllString(text, "")
	clean = template.HTMLEscapeString(clean)
	clean = blankLineRuns.ReplaceAllString(clean, "<br><br>")
	clean = commaWrapDigit.ReplaceAllString(clean, ",$1")
	clean = softWrap.ReplaceAllString(clean, "$1 $2")
	clean = softWrapLetter.ReplaceAllString(clean, "$1 $2")
	clean = numberedItem.ReplaceAllString(clean, "<br>$2")
	clean = bulletItem.ReplaceAllString(clean, "<br>- ")
	clean = remainingBreaks.ReplaceAllString(clean, "<br>")
	//nolint:gosec // Input was escaped above; only our own <br> tags remain.
	return template.HTML(clean)
}

// senderLabel maps a stored sender to the display label used in the
// transcript section.
func senderLabel(sender, buyerName, supplierName string) string {
	switch sender {
	case domain.SenderSupplier:
		if supplierName == "" {
			supplierName = "Supplier"
		}
		return "Supplier: " + supplierName
	case domain.SenderBot, domain.SenderBuyer:
		if buyerName == "" {
			buyerName = "AI Bot"
		}
		return buyerName + " - AI Bot"
	case domain.SenderSystem:
		return "System"
	default:
		return sender
	}
}

// formatTimestamp renders an RFC3339 timestamp for print; unparseable values
// pass through untouched.
func formatTimestamp(ts string) string {
	if ts == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("02 Jan 2006 15:04")
}
