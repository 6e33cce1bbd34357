package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chargemind/disputerequest"
	"chargemind/evidence"
)

func pause(ctx context.Context, stop <-chan struct{}, base, jitter int) bool {
	d := time.Duration(base+rand.Intn(jitter)) * time.Millisecond
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-time.After(d):
		return true
	}
}

var problems = []evidence.ProblemType{
	evidence.ProblemItemNotReceived,
	evidence.ProblemDamagedItem,
	evidence.ProblemWrongItem,
}

// Submitter files hub requests for one client as fast as the jitter allows.
func Submitter(ctx context.Context, svc *disputerequest.Service, clientID string, worker int, stop <-chan struct{}) error {
	for n := 0; ; n++ {
		resolution := disputerequest.ResolutionRefund
		if n%2 == 0 {
			resolution = disputerequest.ResolutionCredit
		}
		_, err := svc.Submit(ctx, disputerequest.SubmitParams{
			ClientID:            clientID,
			OrderID:             fmt.Sprintf("#%d%04d", worker, n),
			CustomerEmail:       fmt.Sprintf("buyer%d@example.com", worker),
			ProblemType:         problems[rand.Intn(len(problems))],
			EvidenceData:        map[string]any{"description": "stress"},
			PreferredResolution: resolution,
		})
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("submit: %w", err)
		}
		if !pause(ctx, stop, 5, 15) {
			return nil
		}
	}
}

// Reviewer races other reviewers on the newest requests. Losing a race shows
// up as an invalid transition and is expected.
func Reviewer(ctx context.Context, pool *pgxpool.Pool, svc *disputerequest.Service, clientID, reviewerID string, stop <-chan struct{}) error {
	next := []disputerequest.Status{
		disputerequest.StatusReviewed,
		disputerequest.StatusApproved,
		disputerequest.StatusRejected,
	}
	for {
		var id string
		err := pool.QueryRow(ctx, `
			SELECT id FROM dispute_requests
			WHERE client_id = $1 AND status IN ('pending', 'reviewed')
			ORDER BY created_at DESC LIMIT 1`, clientID).Scan(&id)
		if err == nil {
			notes := "stress review"
			_, err = svc.Review(ctx, disputerequest.ReviewParams{
				ClientID:   clientID,
				RequestID:  id,
				ReviewerID: reviewerID,
				Status:     next[rand.Intn(len(next))],
				Notes:      &notes,
			})
			if err != nil && !errors.Is(err, disputerequest.ErrInvalidTransition) && ctx.Err() == nil {
				return fmt.Errorf("review %s: %w", id, err)
			}
		}
		if !pause(ctx, stop, 10, 30) {
			return nil
		}
	}
}

// RecordingPublisher stands in for Kafka and fails every failEvery-th publish.
type RecordingPublisher struct {
	FailEvery int

	mu      sync.Mutex
	calls   int
	byTopic map[string]int
}

func (p *RecordingPublisher) Publish(_ context.Context, topic string, payload []byte, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.FailEvery > 0 && p.calls%p.FailEvery == 0 {
		return errors.New("broker unavailable")
	}
	if p.byTopic == nil {
		p.byTopic = map[string]int{}
	}
	p.byTopic[topic]++
	return nil
}

// Published returns how many messages were accepted per topic.
func (p *RecordingPublisher) Published() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int, len(p.byTopic))
	for k, v := range p.byTopic {
		out[k] = v
	}
	return out
}

// Relay drains the outbox concurrently with the writers.
func Relay(ctx context.Context, relay *disputerequest.Relay, stop <-chan struct{}) error {
	for {
		if _, err := relay.Flush(ctx); err != nil && ctx.Err() == nil {
			return fmt.Errorf("relay flush: %w", err)
		}
		if !pause(ctx, stop, 50, 50) {
			return nil
		}
	}
}
