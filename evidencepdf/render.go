package evidencepdf

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"chargemind/dispute"
)

// ErrRender wraps every failure while laying out or writing the document.
var ErrRender = errors.New("evidencepdf: render failed")

const (
	pageMargin = 15.0
	lineHeight = 6.0
	dateLayout = "Jan 2, 2006"
	timeLayout = "Jan 2, 2006 15:04 MST"
)

// FileName is the download name of a dispute's evidence document.
func FileName(disputeID string) string {
	return "chargemind-dispute-" + disputeID + ".pdf"
}

// Render lays out the evidence document for p and writes it to w.
func Render(w io.Writer, p Prepared) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRender, r)
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(p.GeneratedAt)
	pdf.SetModificationDate(p.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")

	r := &renderer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), p: p}
	pdf.SetTitle(r.tr("Chargeback Evidence - Dispute "+p.Dispute.ID), false)
	pdf.SetAuthor(r.tr(merchantName(p.Merchant)), false)
	pdf.SetCreator("ChargeMind", false)
	pdf.SetFooterFunc(r.footer)

	pdf.AddPage()
	r.cover()
	for _, s := range Plan(p) {
		r.heading(s)
		switch s.Key {
		case SectionSummary:
			r.summary()
		case SectionCustomer:
			r.customer()
		case SectionFulfillment:
			r.fulfillment()
		case SectionInvoice:
			r.invoice()
		case SectionPolicy:
			r.policy()
		}
	}

	if pdf.Err() {
		return fmt.Errorf("%w: %w", ErrRender, pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	return nil
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	p   Prepared
}

func (r *renderer) contentWidth() float64 {
	w, _ := r.pdf.GetPageSize()
	return w - 2*pageMargin
}

func (r *renderer) cover() {
	d := r.p.Dispute
	r.pdf.SetFont("Helvetica", "B", 20)
	r.pdf.SetTextColor(17, 24, 39)
	r.pdf.CellFormat(0, 10, r.tr("Chargeback Evidence Package"), "", 1, "L", false, 0, "")
	r.pdf.SetFont("Helvetica", "", 11)
	r.pdf.SetTextColor(75, 85, 99)
	r.pdf.CellFormat(0, lineHeight, r.tr(merchantName(r.p.Merchant)), "", 1, "L", false, 0, "")
	r.pdf.CellFormat(0, lineHeight, r.tr("Dispute "+d.ID+" | Order "+orderLabel(d.Order)), "", 1, "L", false, 0, "")
	r.pdf.CellFormat(0, lineHeight, "Prepared "+r.p.GeneratedAt.Format(dateLayout), "", 1, "L", false, 0, "")
	r.pdf.SetDrawColor(209, 213, 219)
	y := r.pdf.GetY() + 2
	r.pdf.Line(pageMargin, y, pageMargin+r.contentWidth(), y)
	r.pdf.Ln(6)
	r.pdf.SetTextColor(17, 24, 39)
}

func (r *renderer) heading(s Section) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Helvetica", "B", 13)
	r.pdf.SetFillColor(243, 244, 246)
	r.pdf.CellFormat(0, 8, r.tr(s.Heading()), "", 1, "L", true, 0, "")
	r.pdf.Ln(2)
	r.pdf.SetFont("Helvetica", "", 10)
}

func (r *renderer) row(label, value string) {
	r.pdf.SetFont("Helvetica", "B", 10)
	r.pdf.CellFormat(55, lineHeight, r.tr(label), "", 0, "L", false, 0, "")
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.MultiCell(0, lineHeight, r.tr(value), "", "L", false)
}

func (r *renderer) paragraph(text string) {
	r.pdf.SetFont("Helvetica", "", 10)
	r.pdf.MultiCell(0, 5, r.tr(text), "", "L", false)
	r.pdf.Ln(1)
}

func (r *renderer) summary() {
	d := r.p.Dispute
	r.row("Dispute ID", d.ID)
	r.row("Order", orderLabel(d.Order))
	r.row("Type", d.Type)
	r.row("Reason", orDash(d.Reason))
	if d.NetworkReasonCode != "" {
		r.row("Network reason code", d.NetworkReasonCode)
	}
	r.row("Status", string(d.Status))
	r.row("Disputed amount", amount(d.Amount, r.p.Invoice.Currency))
	r.row("Evidence due", formatDate(d.EvidenceDueBy))
	r.row("Order placed", formatDate(d.Order.CreatedAt))
	if d.Order.Gateway != "" {
		r.row("Payment gateway", d.Order.Gateway)
	}
	if r.p.DigitalOnly() {
		r.paragraph("No carrier tracking was available for this order. The evidence below relies on " +
			"payment verification, customer records and the checkout breakdown.")
	}
}

func (r *renderer) customer() {
	c := r.p.Dispute.Customer
	r.row("Customer", r.p.CustomerName)
	r.row("Email", r.p.CustomerEmail)
	if c.Phone != nil {
		r.row("Phone", *c.Phone)
	}
	if c.OrdersCount > 0 {
		r.row("Previous orders", strconv.Itoa(c.OrdersCount))
	}
	if r.p.Dispute.Order.BrowserIP != "" {
		r.row("Checkout IP", r.p.Dispute.Order.BrowserIP)
	}
	r.row("Shipping address", formatAddress(r.p.ShippingAddress))
	r.row("Billing address", formatAddress(r.p.BillingAddress))
	if r.p.AddressFallback {
		r.paragraph("The cardholder address was confirmed by the payment processor's address verification service.")
	}
}

func (r *renderer) fulfillment() {
	t := r.p.Tracking
	r.row("Carrier", t.Carrier)
	r.row("Tracking number", orDash(t.Number))
	r.row("Status", strings.ReplaceAll(string(t.Status), "_", " "))
	r.pdf.Ln(2)

	widths := []float64{45, 55, r.contentWidth() - 100}
	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.SetFillColor(229, 231, 235)
	for i, h := range []string{"Date", "Location", "Event"} {
		r.pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	r.pdf.Ln(-1)
	r.pdf.SetFont("Helvetica", "", 9)
	for _, e := range t.Events {
		when := "-"
		if !e.Time.IsZero() {
			when = e.Time.UTC().Format(timeLayout)
		}
		r.pdf.CellFormat(widths[0], 6, when, "1", 0, "L", false, 0, "")
		r.pdf.CellFormat(widths[1], 6, r.tr(truncate(orDash(e.Location), 32)), "1", 0, "L", false, 0, "")
		r.pdf.CellFormat(widths[2], 6, r.tr(truncate(e.Description, 48)), "1", 0, "L", false, 0, "")
		r.pdf.Ln(-1)
	}
}

func (r *renderer) invoice() {
	inv := r.p.Invoice
	widths := []float64{r.contentWidth() - 85, 20, 30, 35}

	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.SetFillColor(229, 231, 235)
	for i, h := range []string{"Item", "Qty", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		r.pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	r.pdf.Ln(-1)

	r.pdf.SetFont("Helvetica", "", 9)
	for _, l := range inv.Lines {
		r.pdf.CellFormat(widths[0], 6, r.tr(truncate(l.Description, 60)), "1", 0, "L", false, 0, "")
		r.pdf.CellFormat(widths[1], 6, strconv.Itoa(l.Quantity), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[2], 6, l.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[3], 6, l.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		r.pdf.Ln(-1)
	}

	r.pdf.Ln(2)
	labelWidth := widths[0] + widths[1] + widths[2]
	total := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		r.pdf.SetFont("Helvetica", style, 10)
		r.pdf.CellFormat(labelWidth, lineHeight, label, "", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[3], lineHeight, v.StringFixed(2), "", 1, "R", false, 0, "")
	}
	total("Subtotal", inv.Subtotal, false)
	total("Shipping", inv.Shipping, false)
	total("Tax", inv.Tax, false)
	total("Discounts", inv.Discounts.Neg(), false)
	if inv.HasAdjustments() {
		total("Adjustments", inv.Adjustments, false)
	}
	total("Invoice Total ("+inv.Currency+")", inv.Total, true)
}

func (r *renderer) policy() {
	m := r.p.Merchant
	r.paragraph("By completing checkout the customer accepted the store's terms of service, refund policy " +
		"and shipping policy, which were available on every page of the storefront.")
	for _, link := range []struct{ label, url string }{
		{"Refund policy", m.RefundPolicyURL},
		{"Shipping policy", m.ShippingPolicyURL},
		{"Terms of service", m.TermsURL},
	} {
		if link.url != "" {
			r.row(link.label, link.url)
		}
	}
	if m.SupportEmail != "" {
		r.row("Support contact", m.SupportEmail)
	}
	r.paragraph("The customer did not contact the merchant to request a refund or report a problem " +
		"before filing this dispute.")
}

func (r *renderer) footer() {
	r.pdf.SetY(-15)
	r.pdf.SetFont("Helvetica", "I", 8)
	r.pdf.SetTextColor(107, 114, 128)
	left := r.tr("Dispute " + r.p.Dispute.ID + " - generated by ChargeMind")
	r.pdf.CellFormat(r.contentWidth()/2, 10, left, "", 0, "L", false, 0, "")
	r.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", r.pdf.PageNo()), "", 0, "R", false, 0, "")
	r.pdf.SetTextColor(17, 24, 39)
}

func merchantName(m Merchant) string {
	if m.Name != "" {
		return m.Name
	}
	return "Merchant"
}

func orderLabel(o dispute.Order) string {
	if o.Name != "" {
		return o.Name
	}
	if o.ID != "" {
		return "#" + o.ID
	}
	return "-"
}

func amount(v, currency string) string {
	if currency == "" {
		return v
	}
	return v + " " + currency
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateLayout)
}

func formatAddress(a dispute.Address) string {
	lines := make([]string, 0, 5)
	for _, v := range []string{a.Name, a.Address1, a.Address2} {
		if v != "" {
			lines = append(lines, v)
		}
	}
	city := strings.TrimSpace(strings.Join(nonBlank(a.City, a.Province, a.Zip), ", "))
	if city != "" {
		lines = append(lines, city)
	}
	if a.Country != "" {
		lines = append(lines, a.Country)
	}
	return strings.Join(lines, "\n")
}

func nonBlank(vs ...string) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-3]) + "..."
}
