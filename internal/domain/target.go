package domain

import (
	"github.com/shopspring/decimal"
)

// TargetDetails captures the buyer's objective for a negotiation. It is
// stored as an opaque JSON blob and parsed at the store boundary.
type TargetDetails struct {
	Company        string     `json:"company,omitempty"`
	BuyerName      string     `json:"buyerName,omitempty"`
	Currency       string     `json:"currency,omitempty"`
	SupplierName   string     `json:"supplierName,omitempty"`
	Representative string     `json:"representative,omitempty"`
	Items          []LineItem `json:"items,omitempty"`
}

// LineItem is one requested item within the buyer's target details. Price and
// quantity fields are free-text strings as entered by the buyer.
type LineItem struct {
	Name             string `json:"name,omitempty"`
	Quantity         string `json:"quantity,omitempty"`
	Unit             string `json:"unit,omitempty"`
	TargetPrice      string `json:"targetPrice,omitempty"`
	QuotedPrice      string `json:"quotedPrice,omitempty"`
	PaymentTerms     string `json:"paymentTerms,omitempty"`
	FreightTerms     string `json:"freightTerms,omitempty"`
	DeliverySchedule string `json:"deliverySchedule,omitempty"`
	WarrantyTerms    string `json:"warrantyTerms,omitempty"`
	LDClause         string `json:"ldClause,omitempty"`
	Description      string `json:"description,omitempty"`
}

// OrderValue estimates the total order value as the sum of quantity times
// quoted price per item, falling back to target price when no quote exists.
// Items whose quantity or price fields do not parse as numbers are skipped,
// so a partially filled form still yields a usable estimate.
func (t *TargetDetails) OrderValue() decimal.Decimal {
	total := decimal.Zero
	if t == nil {
		return total
	}
	for _, item := range t.Items {
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			continue
		}
		price := item.QuotedPrice
		if price == "" {
			price = item.TargetPrice
		}
		unit, err := decimal.NewFromString(price)
		if err != nil {
			continue
		}
		total = total.Add(qty.Mul(unit))
	}
	return total
}
