package hub

import (
	"fmt"

	"chargemind/tracking"
)

// Screen is a screen of the item-not-received branch.
type Screen string

const (
	// ScreenExpectation explains that the parcel is still on its way. The
	// branch ends here.
	ScreenExpectation Screen = "expectation"
	ScreenChecklist   Screen = "checklist"
	ScreenConfirm     Screen = "confirm"
)

// ItemNotReceived is the branch entered when the customer reports a missing
// parcel. It routes on the shipment status of the order.
type ItemNotReceived struct {
	Screen Screen `json:"screen"`
	Checks Checks `json:"checks"`
}

func enterNotReceived(o *Order) *ItemNotReceived {
	if o != nil && o.ShipmentStatus == tracking.StatusDelivered {
		return &ItemNotReceived{Screen: ScreenChecklist}
	}
	return &ItemNotReceived{Screen: ScreenExpectation}
}

func (f Flow) applyNotReceived(e Event) (Flow, error) {
	inr := *f.NotReceived
	next := f
	next.NotReceived = &inr

	switch {
	case inr.Screen == ScreenChecklist && e.Type == EventChecksAcknowledged:
		if !e.Checks.Complete() {
			return f, ErrChecklistIncomplete
		}
		inr.Checks = e.Checks
		inr.Screen = ScreenConfirm
		return next, nil

	case inr.Screen == ScreenConfirm && e.Type == EventFrictionConfirmed:
		next.Step = StepChooseResolution
		next.NotReceived = nil
		return next, nil
	}
	return f, fmt.Errorf("%w: %s on item-not-received %s screen", ErrInvalidTransition, e.Type, inr.Screen)
}

func (f Flow) backNotReceived() (Flow, error) {
	next := f
	switch f.NotReceived.Screen {
	case ScreenConfirm:
		next.NotReceived = &ItemNotReceived{Screen: ScreenChecklist, Checks: f.NotReceived.Checks}
	default:
		next.NotReceived = nil
		next.ProblemType = ""
	}
	return next, nil
}
