package evidencepdf

import (
	"testing"

	"chargemind/dispute"
)

func assertBalanced(t *testing.T, inv Invoice) {
	t.Helper()
	sum := inv.Subtotal.Add(inv.Shipping).Add(inv.Tax).Sub(inv.Discounts).Add(inv.Adjustments)
	if !sum.Equal(inv.Total) {
		t.Fatalf("subtotal+shipping+tax-discounts+adjustments = %s, total = %s",
			sum.StringFixed(2), inv.Total.StringFixed(2))
	}
}

func TestBuildInvoice_Reconciles(t *testing.T) {
	d := dispute.AppDispute{
		Amount:   "118.90",
		Currency: "USD",
		Order: dispute.Order{
			TotalPrice:     "118.90",
			TotalShipping:  "9.90",
			TotalTax:       "12.00",
			TotalDiscounts: "3.00",
			LineItems: []dispute.LineItem{
				{Title: "Jacket", Quantity: 1, Price: "80.00"},
				{Title: "Gloves", Quantity: 2, Price: "10.00"},
			},
		},
	}
	inv := BuildInvoice(d, d.Order.LineItems, false)

	if got := inv.Subtotal.StringFixed(2); got != "100.00" {
		t.Fatalf("expected subtotal 100.00, got %s", got)
	}
	if inv.HasAdjustments() {
		t.Fatalf("expected no adjustments, got %s", inv.Adjustments)
	}
	if got := inv.Total.StringFixed(2); got != "118.90" {
		t.Fatalf("expected total 118.90, got %s", got)
	}
	assertBalanced(t, inv)
}

func TestBuildInvoice_AdjustmentRowMatchesOrderTotal(t *testing.T) {
	d := dispute.AppDispute{
		Order: dispute.Order{
			TotalPrice:    "60.00",
			TotalShipping: "5.00",
			LineItems:     []dispute.LineItem{{Title: "Hat", Quantity: 1, Price: "50.00"}},
		},
	}
	inv := BuildInvoice(d, d.Order.LineItems, false)

	if got := inv.Adjustments.StringFixed(2); got != "5.00" {
		t.Fatalf("expected 5.00 adjustment, got %s", got)
	}
	if got := inv.Total.StringFixed(2); got != "60.00" {
		t.Fatalf("expected invoice total to equal order total, got %s", got)
	}
	assertBalanced(t, inv)
}

func TestBuildInvoice_SynthesizedLineAbsorbsTotal(t *testing.T) {
	d := dispute.AppDispute{
		Amount: "42.10",
		Order:  dispute.Order{TotalShipping: "4.00", TotalTax: "2.00", TotalDiscounts: "1.00"},
	}
	items := []dispute.LineItem{{Title: ConsolidatedLineTitle, Quantity: 1, Price: "42.10"}}
	inv := BuildInvoice(d, items, true)

	if !inv.Shipping.IsZero() || !inv.Tax.IsZero() || !inv.Discounts.IsZero() {
		t.Fatalf("expected zeroed shipping/tax/discounts, got %+v", inv)
	}
	if got := inv.Total.StringFixed(2); got != "42.10" {
		t.Fatalf("expected total 42.10, got %s", got)
	}
	assertBalanced(t, inv)
}

func TestBuildInvoice_ProductsWithoutOrderTotalUseDisputeAmount(t *testing.T) {
	d := dispute.AppDispute{Amount: "25.00", Order: dispute.Order{TotalPrice: "0.00"}}
	items := []dispute.LineItem{{Title: "Candle", Quantity: 1, Price: "20.00"}}
	inv := BuildInvoice(d, items, false)

	if got := inv.Total.StringFixed(2); got != "25.00" {
		t.Fatalf("expected dispute amount as total, got %s", got)
	}
	assertBalanced(t, inv)
}
