package disputerequest

import (
	"time"

	"chargemind/evidence"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusReviewed Status = "reviewed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReviewed, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Resolution string

const (
	ResolutionCredit Resolution = "credit"
	ResolutionRefund Resolution = "refund"
)

// Request is a resolution request submitted by a customer through the hub.
type Request struct {
	ID                  string               `json:"id"`
	ClientID            string               `json:"client_id"`
	ProtocolNumber      string               `json:"protocol_number"`
	OrderID             string               `json:"order_id"`
	CustomerEmail       string               `json:"customer_email"`
	ProblemType         evidence.ProblemType `json:"problem_type"`
	EvidenceData        map[string]any       `json:"evidence_data"`
	PreferredResolution Resolution           `json:"preferred_resolution"`
	Status              Status               `json:"status"`
	ReviewedBy          *string              `json:"reviewed_by"`
	ReviewedAt          *time.Time           `json:"reviewed_at"`
	ReviewNotes         *string              `json:"review_notes"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

type Filters struct {
	ClientID string
	Status   Status
	Page     int
	PageSize int
}

// OutboxMessage is a pending integration event.
type OutboxMessage struct {
	ID        string
	Topic     string
	Key       string
	Payload   []byte
	Status    string
	Attempts  int
	CreatedAt time.Time
}

const (
	TopicSubmitted     = "dispute_request.submitted"
	TopicStatusChanged = "dispute_request.status_changed"
)
