package evidencepdf

import (
	"testing"

	"chargemind/tracking"
)

func TestPlan_WithTracking(t *testing.T) {
	p := Prepared{Tracking: &Tracking{Status: tracking.StatusDelivered}}
	got := Plan(p)

	want := []SectionKey{SectionSummary, SectionCustomer, SectionFulfillment, SectionInvoice, SectionPolicy}
	if len(got) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(got))
	}
	for i, s := range got {
		if s.Key != want[i] || s.Index != i+1 {
			t.Fatalf("section %d: got %+v", i, s)
		}
	}
}

func TestPlan_DigitalOnlyShiftsIndices(t *testing.T) {
	got := Plan(Prepared{})
	for i, s := range got {
		if s.Key == SectionFulfillment {
			t.Fatal("fulfillment section must be omitted without tracking")
		}
		if s.Index != i+1 {
			t.Fatalf("expected contiguous indices, got %+v", got)
		}
	}
	last := got[len(got)-1]
	if last.Key != SectionPolicy || last.Heading() != "4. Policy Acknowledgement" {
		t.Fatalf("unexpected last section: %+v", last)
	}
}
