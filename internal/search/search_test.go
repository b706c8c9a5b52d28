package search

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"clip-library/internal/library"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

type fakeStore map[string][]float32

func (f fakeStore) AllEmbeddings(_ context.Context) (map[string][]float32, error) {
	return f, nil
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0, 1, -2.5, float32(math.Pi)}
	got, err := DecodeVector(EncodeVector(v))
	if err != nil {
		t.Fatal(err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Fatalf("index %d: got %v, want %v", i, got[i], v[i])
		}
	}

	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("truncated blob decoded without error")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"dimension mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cosine(tc.a, tc.b); math.Abs(float64(got-tc.want)) > 1e-6 {
				t.Fatalf("cosine = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRankerOrdersAndThresholds(t *testing.T) {
	store := fakeStore{
		"best":     {1, 0},
		"close":    {0.9, 0.1},
		"noise":    {0.1, 0.995}, // similarity just above 0.09, below floor
		"opposite": {-1, 0},
	}
	r := NewRanker(fakeEmbedder{vec: []float32{1, 0}}, store)

	got, err := r.Search(context.Background(), "query", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2 (floor applied): %v", len(got), got)
	}
	if got[0].ClipID != "best" || got[1].ClipID != "close" {
		t.Fatalf("order = [%s %s], want [best close]", got[0].ClipID, got[1].ClipID)
	}
	if got[0].Score <= got[1].Score {
		t.Errorf("scores not descending: %v >= %v wanted", got[0].Score, got[1].Score)
	}
}

func TestRankerLimit(t *testing.T) {
	store := fakeStore{}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		store[id] = []float32{1, 0}
	}
	r := NewRanker(fakeEmbedder{vec: []float32{1, 0}}, store)

	got, err := r.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("limit not applied, got %d results", len(got))
	}
}

func TestRankerEmbedError(t *testing.T) {
	r := NewRanker(fakeEmbedder{err: errors.New("model offline")}, fakeStore{})
	if _, err := r.Search(context.Background(), "query", 0); err == nil {
		t.Fatal("embed failure not surfaced")
	}
}

// recordingBackend counts dispatches and records the queries it saw.
type recordingBackend struct {
	mu      sync.Mutex
	queries []string
	results []library.SearchResult
	err     error
	block   chan struct{} // when set, Search waits on it
}

func (b *recordingBackend) Search(_ context.Context, query string, _ int) ([]library.SearchResult, error) {
	b.mu.Lock()
	b.queries = append(b.queries, query)
	block := b.block
	results, err := b.results, b.err
	b.mu.Unlock()
	if block != nil {
		<-block
	}
	return results, err
}

func (b *recordingBackend) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

func TestDebounceCoalescesEdits(t *testing.T) {
	backend := &recordingBackend{results: []library.SearchResult{{ClipID: "a", Score: 0.5}}}
	c := NewClient(backend, nil)
	c.debounce = 100 * time.Millisecond

	// Three edits inside one debounce window.
	for _, q := range []string{"go", "goa", "goal"} {
		c.SetQuery(q)
		time.Sleep(30 * time.Millisecond)
	}

	time.Sleep(250 * time.Millisecond)
	seen := backend.seen()
	if len(seen) != 1 {
		t.Fatalf("dispatched %d times, want 1: %v", len(seen), seen)
	}
	if seen[0] != "goal" {
		t.Fatalf("dispatched %q, want the final text \"goal\"", seen[0])
	}

	results, active := c.Results()
	if !active || len(results) != 1 {
		t.Fatalf("results not installed: active=%v len=%d", active, len(results))
	}
}

func TestBlankQueryClearsSynchronously(t *testing.T) {
	backend := &recordingBackend{results: []library.SearchResult{{ClipID: "a", Score: 0.5}}}
	var updates int
	c := NewClient(backend, func() { updates++ })
	c.debounce = 50 * time.Millisecond

	c.SetQuery("goal")
	time.Sleep(150 * time.Millisecond)
	if _, active := c.Results(); !active {
		t.Fatal("search never became active")
	}

	c.SetQuery("   ")
	// No sleep: the clear must be visible immediately.
	results, active := c.Results()
	if active || results != nil {
		t.Fatalf("blank query did not clear synchronously: active=%v len=%d", active, len(results))
	}
	if updates < 2 {
		t.Errorf("onUpdate fired %d times, want at least 2", updates)
	}

	time.Sleep(120 * time.Millisecond)
	if got := backend.seen(); len(got) != 1 {
		t.Fatalf("blank query dispatched a search: %v", got)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	block := make(chan struct{})
	backend := &recordingBackend{
		results: []library.SearchResult{{ClipID: "old", Score: 0.9}},
		block:   block,
	}
	c := NewClient(backend, nil)
	c.debounce = 20 * time.Millisecond

	c.SetQuery("first")
	time.Sleep(60 * time.Millisecond) // first dispatch is now blocked in Search

	// Clearing bumps the generation while the response is in flight.
	c.SetQuery("")
	close(block)
	time.Sleep(60 * time.Millisecond)

	results, active := c.Results()
	if active || len(results) != 0 {
		t.Fatalf("stale response was installed: active=%v results=%v", active, results)
	}
}

func TestFailedSearchKeepsPriorResults(t *testing.T) {
	backend := &recordingBackend{results: []library.SearchResult{{ClipID: "a", Score: 0.5}}}
	c := NewClient(backend, nil)
	c.debounce = 20 * time.Millisecond

	c.SetQuery("good")
	time.Sleep(80 * time.Millisecond)
	if _, active := c.Results(); !active {
		t.Fatal("first search never landed")
	}

	backend.mu.Lock()
	backend.err = errors.New("model offline")
	backend.mu.Unlock()

	c.SetQuery("bad")
	time.Sleep(80 * time.Millisecond)

	results, active := c.Results()
	if !active || len(results) != 1 || results[0].ClipID != "a" {
		t.Fatalf("failure clobbered prior results: active=%v results=%v", active, results)
	}
}
