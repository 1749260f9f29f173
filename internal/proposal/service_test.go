package proposal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/iwvelando/mortgage-simulator/pkg/financing"
	"github.com/iwvelando/mortgage-simulator/pkg/testutil"
	"github.com/iwvelando/mortgage-simulator/pkg/validation"
)

var errUnavailable = errors.New("record store unavailable")

// memoryRepo is an in-memory Repository whose first failures inserts fail.
type memoryRepo struct {
	mu       sync.Mutex
	records  map[string]Record
	failures int
	inserts  int
}

func newMemoryRepo(failures int) *memoryRepo {
	return &memoryRepo{records: map[string]Record{}, failures: failures}
}

func (m *memoryRepo) Insert(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.inserts <= m.failures {
		return errUnavailable
	}
	m.records[r.ID] = r
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) List(_ context.Context, opts ListOptions) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if opts.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > opts.EffectiveLimit() {
		out = out[:opts.EffectiveLimit()]
	}
	return out, nil
}

func (m *memoryRepo) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0.0
	for _, r := range m.records {
		total += r.PropertyValue
	}
	return NewStats(len(m.records), total), nil
}

type stubRenderer struct {
	rendered []Record
	err      error
}

func (r *stubRenderer) Render(rec Record) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.rendered = append(r.rendered, rec)
	return []byte("%PDF-stub " + rec.ID), nil
}

func (r *stubRenderer) Filename(name string) string {
	return "proposal-" + name + ".pdf"
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func newTestService(t *testing.T, repo Repository, renderer Renderer) (*Service, *sleepRecorder) {
	t.Helper()
	svc := NewService(repo, renderer, nil, Options{MaxAttempts: 3, BaseDelay: time.Second})
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.FixedZone("BRT", -3*3600)) }
	svc.newID = func() string { return "6f1c1a52-5b8f-4d39-9d3e-2d9a3e0c1f00" }
	recorder := &sleepRecorder{}
	svc.sleep = recorder.sleep
	return svc, recorder
}

func validRequest(t *testing.T) AcceptRequest {
	return AcceptRequest{
		Parameters: testutil.ReferenceParameters(),
		Name:       "  Maria <b>da</b> Silva ",
		Email:      "Maria@Example.com",
		Phone:      "(11) 98765-4321",
		TaxID:      "123.456.789-01",
		Signature:  testutil.SignatureDataURL(t),
	}
}

func TestAcceptSavesAndRenders(t *testing.T) {
	repo := newMemoryRepo(0)
	renderer := &stubRenderer{}
	svc, recorder := newTestService(t, repo, renderer)

	outcome, err := svc.Accept(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	if !outcome.Saved || outcome.SaveErr != nil || outcome.Attempts != 1 {
		t.Errorf("unexpected save outcome saved=%v err=%v attempts=%d", outcome.Saved, outcome.SaveErr, outcome.Attempts)
	}
	if len(recorder.delays) != 0 {
		t.Errorf("expected no retries, got delays %v", recorder.delays)
	}

	rec := outcome.Record
	if rec.Name != "Maria da Silva" {
		t.Errorf("Name = %q, expected sanitized name", rec.Name)
	}
	if rec.Email != "maria@example.com" || rec.Phone != "11987654321" || rec.TaxID != "12345678901" {
		t.Errorf("unexpected normalized contact fields %+v", rec)
	}
	if rec.InterestRate != 12 || rec.LoanTerm != 30 {
		t.Errorf("InterestRate = %v, LoanTerm = %d", rec.InterestRate, rec.LoanTerm)
	}
	if rec.LoanAmount != 400000 || rec.DownPayment != 100000 {
		t.Errorf("LoanAmount = %v, DownPayment = %v", rec.LoanAmount, rec.DownPayment)
	}
	if rec.CreatedAt.Location() != time.UTC || rec.CreatedAt.Hour() != 12 {
		t.Errorf("CreatedAt = %s, expected UTC", rec.CreatedAt)
	}

	stored, err := repo.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if stored.Signature == "" {
		t.Error("expected signature to be stored")
	}

	if string(outcome.Document) != "%PDF-stub "+rec.ID {
		t.Errorf("unexpected document %q", outcome.Document)
	}
	if outcome.Filename != "proposal-Maria da Silva.pdf" {
		t.Errorf("Filename = %q", outcome.Filename)
	}
}

func TestAcceptRetriesWithLinearBackoff(t *testing.T) {
	repo := newMemoryRepo(2)
	svc, recorder := newTestService(t, repo, &stubRenderer{})

	outcome, err := svc.Accept(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if !outcome.Saved || outcome.Attempts != 3 {
		t.Errorf("expected save on third attempt, got saved=%v attempts=%d", outcome.Saved, outcome.Attempts)
	}

	expected := []time.Duration{time.Second, 2 * time.Second}
	if len(recorder.delays) != len(expected) {
		t.Fatalf("delays = %v, expected %v", recorder.delays, expected)
	}
	for i := range expected {
		if recorder.delays[i] != expected[i] {
			t.Errorf("delay %d = %s, expected %s", i, recorder.delays[i], expected[i])
		}
	}
}

func TestAcceptRendersWhenSavingFails(t *testing.T) {
	repo := newMemoryRepo(10)
	renderer := &stubRenderer{}
	svc, recorder := newTestService(t, repo, renderer)

	outcome, err := svc.Accept(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if outcome.Saved {
		t.Fatal("expected the save to fail")
	}
	if !errors.Is(outcome.SaveErr, errUnavailable) {
		t.Errorf("SaveErr = %v, expected wrapped store error", outcome.SaveErr)
	}
	if outcome.Attempts != 3 || repo.inserts != 3 {
		t.Errorf("attempts = %d, inserts = %d, expected 3", outcome.Attempts, repo.inserts)
	}
	if len(recorder.delays) != 2 {
		t.Errorf("expected 2 waits between 3 attempts, got %v", recorder.delays)
	}
	if len(outcome.Document) == 0 || len(renderer.rendered) != 1 {
		t.Error("expected the document to be rendered despite the failure")
	}
}

func TestAcceptStopsRetryingWhenCancelled(t *testing.T) {
	repo := newMemoryRepo(10)
	svc, _ := newTestService(t, repo, &stubRenderer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := svc.Accept(ctx, validRequest(t))
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if outcome.Attempts != 1 {
		t.Errorf("attempts = %d, expected 1", outcome.Attempts)
	}
	if !errors.Is(outcome.SaveErr, context.Canceled) {
		t.Errorf("SaveErr = %v, expected context.Canceled", outcome.SaveErr)
	}
	if len(outcome.Document) == 0 {
		t.Error("expected a document")
	}
}

func TestAcceptRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*AcceptRequest)
		expected error
	}{
		{"Low down payment", func(r *AcceptRequest) { r.Parameters.DownPaymentPercentage = 19.99 }, financing.ErrInvalidDownPayment},
		{"Zero term", func(r *AcceptRequest) { r.Parameters.LoanTermYears = 0 }, financing.ErrInvalidLoanTerm},
		{"Bad email", func(r *AcceptRequest) { r.Email = "maria" }, validation.ErrInvalidInput},
		{"Short tax ID", func(r *AcceptRequest) { r.TaxID = "123" }, validation.ErrInvalidInput},
		{"Missing signature", func(r *AcceptRequest) { r.Signature = "" }, validation.ErrInvalidInput},
		{"Malformed signature", func(r *AcceptRequest) { r.Signature = "data:image/png;base64,AAAA" }, validation.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo(0)
			renderer := &stubRenderer{}
			svc, _ := newTestService(t, repo, renderer)

			req := validRequest(t)
			tt.modify(&req)
			if _, err := svc.Accept(context.Background(), req); !errors.Is(err, tt.expected) {
				t.Fatalf("Accept() error = %v, expected %v", err, tt.expected)
			}
			if repo.inserts != 0 || len(renderer.rendered) != 0 {
				t.Error("rejected request must not be saved or rendered")
			}
		})
	}
}

func TestAcceptRenderFailure(t *testing.T) {
	repo := newMemoryRepo(0)
	svc, _ := newTestService(t, repo, &stubRenderer{err: errors.New("font missing")})

	outcome, err := svc.Accept(context.Background(), validRequest(t))
	if err == nil {
		t.Fatal("expected render error")
	}
	if !outcome.Saved {
		t.Error("the record should still be saved")
	}
}

func TestAdminQueries(t *testing.T) {
	repo := newMemoryRepo(0)
	svc, _ := newTestService(t, repo, &stubRenderer{})
	ctx := context.Background()

	ids := []string{"a", "b"}
	for i, id := range ids {
		svc.newID = func() string { return id }
		clock := time.Date(2025, 1, 1+i, 0, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return clock }
		req := validRequest(t)
		req.Parameters.PropertyValue = float64(200000 * (i + 1))
		if _, err := svc.Accept(ctx, req); err != nil {
			t.Fatalf("Accept() error = %v", err)
		}
	}

	records, err := svc.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 || records[0].ID != "b" {
		t.Errorf("expected newest first, got %+v", records)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalProposals != 2 || stats.TotalPropertyValue != 600000 || stats.AveragePropertyValue != 300000 {
		t.Errorf("unexpected stats %+v", stats)
	}

	doc, filename, err := svc.Render(ctx, "a")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if string(doc) != "%PDF-stub a" || filename != "proposal-Maria da Silva.pdf" {
		t.Errorf("unexpected render %q %q", doc, filename)
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := svc.Render(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
