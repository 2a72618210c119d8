package pdf

import (
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/procurebot/backend/internal/domain"
)

//go:embed template.html
var documentTemplate string

var tmpl = template.Must(template.New("negotiation").Parse(documentTemplate))

type row struct {
	Label string
	Value string
}

type itemSection struct {
	Title string
	Rows  []row
}

type chatLine struct {
	Sender    string
	Text      template.HTML
	Timestamp string
}

type documentData struct {
	Name         string
	SupplierName string
	Meta         []row
	Buyer        []row
	Items        []itemSection
	FinalTerms   []row
	Chat         []chatLine
	GeneratedAt  string
}

// nonEmptyRows drops rows with empty values so half-filled forms do not
// produce tables of blanks.
func nonEmptyRows(rows []row) []row {
	out := make([]row, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Value) != "" {
			out = append(out, r)
		}
	}
	return out
}

func itemRows(item domain.LineItem) []row {
	return nonEmptyRows([]row{
		{"Item Name", item.Name},
		{"Quantity", item.Quantity},
		{"Unit", item.Unit},
		{"Target Price", item.TargetPrice},
		{"Quoted Price", item.QuotedPrice},
		{"Payment Terms", item.PaymentTerms},
		{"Freight Terms", item.FreightTerms},
		{"Delivery Schedule", item.DeliverySchedule},
		{"Warranty Terms", item.WarrantyTerms},
		{"LD Clause", item.LDClause},
		{"Description", item.Description},
	})
}

func buildDocumentData(n *domain.Negotiation) documentData {
	target := n.TargetDetails
	if target == nil {
		target = &domain.TargetDetails{}
	}

	data := documentData{
		Name:         n.Name,
		SupplierName: target.SupplierName,
		GeneratedAt:  time.Now().Format("02 Jan 2006 15:04"),
		Meta: nonEmptyRows([]row{
			{"Buyer Email", n.BuyerEmail},
			{"Supplier Email", n.SupplierEmail},
			{"Status", n.Status},
			{"Created", n.CreatedAt.Format("02 Jan 2006 15:04")},
			{"Last Updated", n.UpdatedAt.Format("02 Jan 2006 15:04")},
		}),
		Buyer: nonEmptyRows([]row{
			{"Company", target.Company},
			{"Buyer Name", target.BuyerName},
			{"Supplier", target.SupplierName},
			{"Representative", target.Representative},
			{"Currency", target.Currency},
		}),
	}

	for i, item := range target.Items {
		data.Items = append(data.Items, itemSection{
			Title: fmt.Sprintf("Requested Item %d", i+1),
			Rows:  itemRows(item),
		})
	}

	if len(n.FinalAgreementTerms) > 0 {
		keys := make([]string, 0, len(n.FinalAgreementTerms))
		for k := range n.FinalAgreementTerms {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			data.FinalTerms = append(data.FinalTerms, row{Label: k, Value: n.FinalAgreementTerms[k]})
		}
	}

	for _, msg := range n.ChatHistory {
		data.Chat = append(data.Chat, chatLine{
			Sender:    senderLabel(msg.Sender, target.BuyerName, target.SupplierName),
			Text:      FormatMessage(msg.Text),
			Timestamp: formatTimestamp(msg.Timestamp),
		})
	}

	return data
}

// RenderHTML produces the document markup for a negotiation. The markup is
// what the headless browser prints; it is also directly testable without one.
func RenderHTML(n *domain.Negotiation) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, buildDocumentData(n)); err != nil {
		return "", fmt.Errorf("execute document template: %w", err)
	}
	return b.String(), nil
}
