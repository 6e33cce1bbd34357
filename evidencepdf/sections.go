package evidencepdf

import "fmt"

// SectionKey identifies a document section independently of its position.
type SectionKey string

const (
	SectionSummary     SectionKey = "summary"
	SectionCustomer    SectionKey = "customer"
	SectionFulfillment SectionKey = "fulfillment"
	SectionInvoice     SectionKey = "invoice"
	SectionPolicy      SectionKey = "policy"
)

// Section is an included section with its computed display index.
type Section struct {
	Key   SectionKey
	Title string
	Index int
}

func (s Section) Heading() string { return fmt.Sprintf("%d. %s", s.Index, s.Title) }

var sectionOrder = []struct {
	key     SectionKey
	title   string
	include func(Prepared) bool
}{
	{SectionSummary, "Dispute Summary", always},
	{SectionCustomer, "Customer & Address Verification", always},
	{SectionFulfillment, "Fulfillment & Delivery History", func(p Prepared) bool { return !p.DigitalOnly() }},
	{SectionInvoice, "Checkout & Invoice Breakdown", always},
	{SectionPolicy, "Policy Acknowledgement", always},
}

func always(Prepared) bool { return true }

// Plan lists the sections included for p in document order. Indices are
// 1-based and contiguous.
func Plan(p Prepared) []Section {
	out := make([]Section, 0, len(sectionOrder))
	for _, s := range sectionOrder {
		if !s.include(p) {
			continue
		}
		out = append(out, Section{Key: s.key, Title: s.title, Index: len(out) + 1})
	}
	return out
}
