package disputerequest

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"chargemind/evidence"
	"chargemind/test/fakes"
)

func validSubmit() SubmitParams {
	return SubmitParams{
		ClientID:            "client-1",
		OrderID:             "#1042",
		CustomerEmail:       " Jane@Example.com ",
		ProblemType:         evidence.ProblemDamagedItem,
		EvidenceData:        map[string]any{"damage_description": "cracked"},
		PreferredResolution: ResolutionRefund,
	}
}

func TestSubmit_StoresPendingRequestWithOutbox(t *testing.T) {
	pool := &fakes.Pool{}
	repo := newFakeRepo()
	outbox := &fakeOutbox{}
	notifier := &fakeNotifier{}
	now := time.UnixMilli(1767225600000)
	svc := NewService(pool, repo, outbox, notifier, nil, nil).WithClock(func() time.Time { return now })

	req, err := svc.Submit(context.Background(), validSubmit())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != StatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
	if req.OrderID != "1042" || req.CustomerEmail != "jane@example.com" {
		t.Fatalf("expected normalized input, got %+v", req)
	}
	if !regexp.MustCompile(`^REQ-1767225600000-[A-Z0-9]{6}$`).MatchString(req.ProtocolNumber) {
		t.Fatalf("unexpected protocol number %q", req.ProtocolNumber)
	}
	if !pool.Tx.Committed {
		t.Fatal("expected commit")
	}
	if len(outbox.topics) != 1 || outbox.topics[0] != TopicSubmitted {
		t.Fatalf("expected submitted event, got %v", outbox.topics)
	}
	if notifier.bumps != 1 {
		t.Fatalf("expected one notification bump, got %d", notifier.bumps)
	}
}

func TestSubmit_NotificationFailureDoesNotFailRequest(t *testing.T) {
	pool := &fakes.Pool{}
	svc := NewService(pool, newFakeRepo(), &fakeOutbox{}, &fakeNotifier{err: errors.New("timeout")}, nil, nil)

	if _, err := svc.Submit(context.Background(), validSubmit()); err != nil {
		t.Fatalf("expected success despite notifier failure, got %v", err)
	}
	if !pool.Tx.Committed {
		t.Fatal("expected commit")
	}
}

func TestSubmit_OutboxFailureRollsBack(t *testing.T) {
	pool := &fakes.Pool{}
	notifier := &fakeNotifier{}
	svc := NewService(pool, newFakeRepo(), &fakeOutbox{err: errors.New("disk full")}, notifier, nil, nil)

	if _, err := svc.Submit(context.Background(), validSubmit()); err == nil {
		t.Fatal("expected error")
	}
	if pool.Tx.Committed || !pool.Tx.Rolled {
		t.Fatal("expected rollback without commit")
	}
	if notifier.bumps != 0 {
		t.Fatal("notification must not be bumped for a failed request")
	}
}

func TestSubmit_Validation(t *testing.T) {
	cases := map[string]func(*SubmitParams){
		"missing order":      func(p *SubmitParams) { p.OrderID = " " },
		"bad email":          func(p *SubmitParams) { p.CustomerEmail = "jane" },
		"display name email": func(p *SubmitParams) { p.CustomerEmail = "Jane <jane@example.com>" },
		"bad problem":        func(p *SubmitParams) { p.ProblemType = "changed_mind" },
		"bad resolution":     func(p *SubmitParams) { p.PreferredResolution = "exchange" },
		"missing client":     func(p *SubmitParams) { p.ClientID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			pool := &fakes.Pool{}
			svc := NewService(pool, newFakeRepo(), nil, nil, nil, nil)
			params := validSubmit()
			mutate(&params)
			if _, err := svc.Submit(context.Background(), params); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if pool.Begins != 0 {
				t.Fatal("no transaction expected for invalid input")
			}
		})
	}
}

func TestSubmit_EvidenceRejected(t *testing.T) {
	validator := fakeValidator{err: evidence.ErrRequired}
	svc := NewService(&fakes.Pool{}, newFakeRepo(), nil, nil, validator, nil)

	_, err := svc.Submit(context.Background(), validSubmit())
	if !errors.Is(err, ErrInvalidEvidence) || !errors.Is(err, evidence.ErrRequired) {
		t.Fatalf("expected wrapped evidence error, got %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusReviewed, true},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusReviewed, StatusApproved, true},
		{StatusReviewed, StatusRejected, true},
		{StatusReviewed, StatusReviewed, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusPending, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestReview_RecordsReviewer(t *testing.T) {
	pool := &fakes.Pool{}
	repo := newFakeRepo()
	repo.rows["req-1"] = Request{ID: "req-1", ClientID: "client-1", Status: StatusPending}
	outbox := &fakeOutbox{}
	svc := NewService(pool, repo, outbox, nil, nil, nil)

	notes := "  photos confirm damage "
	got, err := svc.Review(context.Background(), ReviewParams{
		ClientID: "client-1", RequestID: "req-1", ReviewerID: "user-9", Status: StatusApproved, Notes: &notes,
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if got.Status != StatusApproved || got.ReviewedBy == nil || *got.ReviewedBy != "user-9" || got.ReviewedAt == nil {
		t.Fatalf("unexpected reviewed request: %+v", got)
	}
	if got.ReviewNotes == nil || *got.ReviewNotes != "photos confirm damage" {
		t.Fatalf("expected trimmed notes, got %v", got.ReviewNotes)
	}
	if !pool.Tx.Committed || len(outbox.topics) != 1 || outbox.topics[0] != TopicStatusChanged {
		t.Fatalf("expected committed status change event, got %v", outbox.topics)
	}
}

func TestReview_InvalidTransition(t *testing.T) {
	pool := &fakes.Pool{}
	repo := newFakeRepo()
	repo.rows["req-1"] = Request{ID: "req-1", ClientID: "client-1", Status: StatusRejected}
	svc := NewService(pool, repo, &fakeOutbox{}, nil, nil, nil)

	_, err := svc.Review(context.Background(), ReviewParams{
		ClientID: "client-1", RequestID: "req-1", ReviewerID: "user-9", Status: StatusApproved,
	})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if pool.Tx.Committed {
		t.Fatal("expected no commit")
	}
}

func TestReview_OtherTenantNotFound(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["req-1"] = Request{ID: "req-1", ClientID: "client-1", Status: StatusPending}
	svc := NewService(&fakes.Pool{}, repo, nil, nil, nil, nil)

	_, err := svc.Review(context.Background(), ReviewParams{
		ClientID: "client-2", RequestID: "req-1", ReviewerID: "user-9", Status: StatusReviewed,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestList_NormalizesPaging(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(&fakes.Pool{}, repo, nil, nil, nil, nil)

	res, err := svc.List(context.Background(), Filters{ClientID: "client-1", PageSize: 500})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Page != 1 || res.PageSize != 100 || repo.lastFilters.PageSize != 100 {
		t.Fatalf("expected page size capped at 100, got %+v", res)
	}
	if _, err := svc.List(context.Background(), Filters{ClientID: "client-1", Status: "archived"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestNewProtocolNumber_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		p := NewProtocolNumber(now)
		if seen[p] {
			t.Fatalf("duplicate protocol number %s", p)
		}
		seen[p] = true
	}
}

type fakeRepo struct {
	rows        map[string]Request
	lastFilters Filters
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: make(map[string]Request)} }

func (f *fakeRepo) Create(ctx context.Context, tx pgx.Tx, req Request) (Request, error) {
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	f.rows[req.ID] = req
	return req, nil
}

func (f *fakeRepo) List(ctx context.Context, filters Filters) ([]Request, int, error) {
	f.lastFilters = filters
	var out []Request
	for _, r := range f.rows {
		if r.ClientID == filters.ClientID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(ctx context.Context, clientID, id string) (Request, error) {
	r, ok := f.rows[id]
	if !ok || r.ClientID != clientID {
		return Request{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, clientID, id string) (Request, error) {
	return f.Get(ctx, clientID, id)
}

func (f *fakeRepo) UpdateReview(ctx context.Context, tx pgx.Tx, id string, status Status, reviewerID string, notes *string) (Request, error) {
	r := f.rows[id]
	now := time.Now()
	r.Status = status
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &now
	if notes != nil {
		r.ReviewNotes = notes
	}
	f.rows[id] = r
	return r, nil
}

type fakeOutbox struct {
	topics []string
	err    error
}

func (f *fakeOutbox) Enqueue(ctx context.Context, tx pgx.Tx, topic, key string, payload map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	return nil
}

type fakeNotifier struct {
	bumps int
	err   error
}

func (f *fakeNotifier) BumpUnread(ctx context.Context, clientID string) error {
	f.bumps++
	return f.err
}

type fakeValidator struct{ err error }

func (f fakeValidator) ValidateSubmission(ctx context.Context, clientID string, problem evidence.ProblemType, data map[string]any) error {
	return f.err
}
