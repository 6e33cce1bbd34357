package hub

import (
	"errors"
	"fmt"
	"strings"

	"chargemind/evidence"
	"chargemind/tracking"
)

var (
	ErrInvalidTransition   = errors.New("hub: invalid transition")
	ErrChecklistIncomplete = errors.New("hub: all delivery checks must be acknowledged")
)

// Step is one of the six numbered hub screens.
type Step string

const (
	StepValidateOrder    Step = "validate_order"
	StepConfirmOrder     Step = "confirm_order"
	StepSelectProblem    Step = "select_problem"
	StepChooseResolution Step = "choose_resolution"
	StepCollectEvidence  Step = "collect_evidence"
	StepOutcome          Step = "outcome"
)

var stepNumbers = map[Step]int{
	StepValidateOrder:    1,
	StepConfirmOrder:     2,
	StepSelectProblem:    3,
	StepChooseResolution: 4,
	StepCollectEvidence:  5,
	StepOutcome:          6,
}

// Number is the 1-based position shown in the progress bar.
func (s Step) Number() int { return stepNumbers[s] }

// Resolution is what the customer asks for.
type Resolution string

const (
	ResolutionCredit Resolution = "credit"
	ResolutionRefund Resolution = "refund"
)

func (r Resolution) Valid() bool { return r == ResolutionCredit || r == ResolutionRefund }

// Order is the looked-up order the hub operates on.
type Order struct {
	Number         string          `json:"number"`
	Email          string          `json:"email"`
	ShipmentStatus tracking.Status `json:"shipmentStatus"`
}

// Checks are the delivery acknowledgements of the item-not-received flow.
type Checks struct {
	Neighbors bool `json:"neighbors"`
	Reception bool `json:"reception"`
	Mailbox   bool `json:"mailbox"`
}

func (c Checks) Complete() bool { return c.Neighbors && c.Reception && c.Mailbox }

// Flow is the hub state. It is a value: Apply returns the next state and
// leaves the receiver untouched.
type Flow struct {
	Step        Step                 `json:"step"`
	NotReceived *ItemNotReceived     `json:"itemNotReceived,omitempty"`
	Order       *Order               `json:"order,omitempty"`
	ProblemType evidence.ProblemType `json:"problemType,omitempty"`
	Resolution  Resolution           `json:"resolution,omitempty"`
	Protocol    string               `json:"protocol,omitempty"`
}

// New returns a flow at the first step.
func New() Flow { return Flow{Step: StepValidateOrder} }

// Terminal reports whether no forward transition remains.
func (f Flow) Terminal() bool {
	if f.Step == StepOutcome {
		return true
	}
	return f.NotReceived != nil && f.NotReceived.Screen == ScreenExpectation
}

// EventType names a customer action.
type EventType string

const (
	EventOrderValidated     EventType = "order_validated"
	EventOrderConfirmed     EventType = "order_confirmed"
	EventProblemSelected    EventType = "problem_selected"
	EventChecksAcknowledged EventType = "checks_acknowledged"
	EventFrictionConfirmed  EventType = "friction_confirmed"
	EventResolutionChosen   EventType = "resolution_chosen"
	EventEvidenceSubmitted  EventType = "evidence_submitted"
	EventBack               EventType = "back"
)

// Event is a customer action with the data it carries.
type Event struct {
	Type        EventType            `json:"type"`
	Order       *Order               `json:"order,omitempty"`
	ProblemType evidence.ProblemType `json:"problemType,omitempty"`
	Checks      Checks               `json:"checks"`
	Resolution  Resolution           `json:"resolution,omitempty"`
	Protocol    string               `json:"protocol,omitempty"`
}

// Apply advances the flow by one event. Forward moves are strictly linear;
// EventBack moves one step back.
func (f Flow) Apply(e Event) (Flow, error) {
	if e.Type == EventBack {
		return f.back()
	}
	if f.NotReceived != nil {
		return f.applyNotReceived(e)
	}

	next := f
	switch {
	case f.Step == StepValidateOrder && e.Type == EventOrderValidated:
		if e.Order == nil || strings.TrimSpace(e.Order.Number) == "" {
			return f, fmt.Errorf("%w: order required", ErrInvalidTransition)
		}
		o := *e.Order
		next.Order = &o
		next.Step = StepConfirmOrder

	case f.Step == StepConfirmOrder && e.Type == EventOrderConfirmed:
		next.Step = StepSelectProblem

	case f.Step == StepSelectProblem && e.Type == EventProblemSelected:
		if !e.ProblemType.Valid() {
			return f, fmt.Errorf("%w: unknown problem type %q", ErrInvalidTransition, e.ProblemType)
		}
		next.ProblemType = e.ProblemType
		if e.ProblemType == evidence.ProblemItemNotReceived {
			next.NotReceived = enterNotReceived(f.Order)
			return next, nil
		}
		next.Step = StepChooseResolution

	case f.Step == StepChooseResolution && e.Type == EventResolutionChosen:
		if !e.Resolution.Valid() {
			return f, fmt.Errorf("%w: unknown resolution %q", ErrInvalidTransition, e.Resolution)
		}
		next.Resolution = e.Resolution
		next.Step = StepCollectEvidence

	case f.Step == StepCollectEvidence && e.Type == EventEvidenceSubmitted:
		if strings.TrimSpace(e.Protocol) == "" {
			return f, fmt.Errorf("%w: protocol number required", ErrInvalidTransition)
		}
		next.Protocol = e.Protocol
		next.Step = StepOutcome

	default:
		return f, fmt.Errorf("%w: %s at %s", ErrInvalidTransition, e.Type, f.Step)
	}
	return next, nil
}

func (f Flow) back() (Flow, error) {
	if f.NotReceived != nil {
		return f.backNotReceived()
	}

	next := f
	switch f.Step {
	case StepConfirmOrder:
		next.Order = nil
		next.Step = StepValidateOrder
	case StepSelectProblem:
		next.Step = StepConfirmOrder
	case StepChooseResolution:
		if f.ProblemType == evidence.ProblemItemNotReceived {
			next.NotReceived = &ItemNotReceived{Screen: ScreenConfirm, Checks: Checks{Neighbors: true, Reception: true, Mailbox: true}}
		}
		next.Step = StepSelectProblem
	case StepCollectEvidence:
		next.Resolution = ""
		next.Step = StepChooseResolution
	default:
		return f, fmt.Errorf("%w: cannot go back from %s", ErrInvalidTransition, f.Step)
	}
	if next.Step == StepSelectProblem && next.NotReceived == nil {
		next.ProblemType = ""
	}
	return next, nil
}
