package domain

import (
	"testing"
)

func TestOrderValue(t *testing.T) {
	tests := []struct {
		name   string
		target *TargetDetails
		want   string
	}{
		{
			name: "quoted price preferred",
			target: &TargetDetails{Items: []LineItem{
				{Quantity: "100", TargetPrice: "480", QuotedPrice: "550"},
			}},
			want: "55000",
		},
		{
			name: "falls back to target price",
			target: &TargetDetails{Items: []LineItem{
				{Quantity: "10", TargetPrice: "44000"},
			}},
			want: "440000",
		},
		{
			name: "unparseable items skipped",
			target: &TargetDetails{Items: []LineItem{
				{Quantity: "approx 5", QuotedPrice: "120"},
				{Quantity: "3", QuotedPrice: "negotiable"},
				{Quantity: "2", QuotedPrice: "108.50"},
			}},
			want: "217",
		},
		{
			name:   "nil target",
			target: nil,
			want:   "0",
		},
		{
			name:   "no items",
			target: &TargetDetails{Company: "Acme"},
			want:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.target.OrderValue()
			if got.String() != tt.want {
				t.Errorf("OrderValue() = %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestIsBuyerSide(t *testing.T) {
	if !(ChatMessage{Sender: SenderBuyer}).IsBuyerSide() {
		t.Error("buyer should be buyer-side")
	}
	if !(ChatMessage{Sender: SenderBot}).IsBuyerSide() {
		t.Error("bot should be buyer-side")
	}
	if (ChatMessage{Sender: SenderSupplier}).IsBuyerSide() {
		t.Error("supplier should not be buyer-side")
	}
}
