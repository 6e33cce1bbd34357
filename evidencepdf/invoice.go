package evidencepdf

import (
	"github.com/shopspring/decimal"

	"chargemind/dispute"
	"chargemind/money"
)

// InvoiceLine is one row of the checkout breakdown.
type InvoiceLine struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// Invoice is the reconciled checkout breakdown. Subtotal + Shipping + Tax -
// Discounts + Adjustments always equals Total.
type Invoice struct {
	Currency    string
	Lines       []InvoiceLine
	Subtotal    decimal.Decimal
	Shipping    decimal.Decimal
	Tax         decimal.Decimal
	Discounts   decimal.Decimal
	Adjustments decimal.Decimal
	Total       decimal.Decimal
}

// HasAdjustments reports whether a reconciliation row is shown.
func (inv Invoice) HasAdjustments() bool { return !inv.Adjustments.IsZero() }

// BuildInvoice recomputes the totals from items. A synthesized line carries
// the whole dispute amount, so shipping, tax and discounts are zeroed.
// Otherwise any gap between the recomputed total and the order total is
// shown as an adjustment.
func BuildInvoice(d dispute.AppDispute, items []dispute.LineItem, synthesized bool) Invoice {
	inv := Invoice{
		Currency: d.Currency,
		Lines:    make([]InvoiceLine, 0, len(items)),
	}
	if inv.Currency == "" {
		inv.Currency = d.Order.Currency
	}

	for _, li := range items {
		qty := li.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit := money.Parse(li.Price)
		amount := unit.Mul(decimal.NewFromInt(int64(qty)))
		desc := li.Title
		if li.VariantTitle != "" {
			desc += " - " + li.VariantTitle
		}
		inv.Lines = append(inv.Lines, InvoiceLine{Description: desc, Quantity: qty, UnitPrice: unit, Amount: amount})
		inv.Subtotal = inv.Subtotal.Add(amount)
	}

	if synthesized {
		inv.Total = inv.Subtotal
		return inv
	}

	inv.Shipping = money.Parse(d.Order.TotalShipping)
	inv.Tax = money.Parse(d.Order.TotalTax)
	inv.Discounts = money.Parse(d.Order.TotalDiscounts)
	computed := inv.Subtotal.Add(inv.Shipping).Add(inv.Tax).Sub(inv.Discounts)

	target := money.Parse(d.Order.TotalPrice)
	if !target.IsPositive() {
		target = money.Parse(d.Amount)
	}
	if !target.IsPositive() {
		target = computed
	}

	inv.Adjustments = target.Sub(computed)
	inv.Total = target
	return inv
}
