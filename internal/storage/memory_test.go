package storage

import (
	"fmt"
	"testing"

	"github.com/funnyzak/reqloop/internal/config"
	"github.com/funnyzak/reqloop/pkg/request"
)

func TestMemoryStore_DropsOldest(t *testing.T) {
	store := NewMemoryStore(2)
	for i := 0; i < 3; i++ {
		if _, err := store.RecordRun(fakeRun("s", "GET", fmt.Sprintf("https://example.com/p%d", i), intPtr(200))); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	items, total, err := store.ListRuns(ListOptions{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 records, got %d", total)
	}
	if items[0].URL != "https://example.com/p2" || items[1].URL != "https://example.com/p1" {
		t.Fatalf("unexpected order: %s, %s", items[0].URL, items[1].URL)
	}
}

func TestMemoryStore_Filters(t *testing.T) {
	store := NewMemoryStore(10)
	a := fakeRun("s1", "GET", "https://example.com/a", intPtr(200))
	a.LoopID = "l1"
	b := fakeRun("s1", "POST", "https://example.com/b", nil)
	b.Label = "error"
	c := fakeRun("s2", "GET", "https://other.org/c", intPtr(404))
	for _, run := range []*request.RunRecord{a, b, c} {
		if _, err := store.RecordRun(run); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	tests := []struct {
		name     string
		opts     ListOptions
		expected int
	}{
		{name: "All", opts: ListOptions{}, expected: 3},
		{name: "Session", opts: ListOptions{Session: "s1"}, expected: 2},
		{name: "Loop", opts: ListOptions{LoopID: "l1"}, expected: 1},
		{name: "Label", opts: ListOptions{Label: "Error"}, expected: 1},
		{name: "Method", opts: ListOptions{Method: "get"}, expected: 2},
		{name: "Search", opts: ListOptions{Search: "OTHER"}, expected: 1},
		{name: "Paged", opts: ListOptions{Limit: 1, Offset: 5}, expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := store.ListRuns(tt.opts)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if total != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, total)
			}
		})
	}

	got, err := store.GetRun(b.ID)
	if err != nil || got != b {
		t.Fatalf("expected to find record b, got %v (%v)", got, err)
	}
	missing, err := store.GetRun("nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing id, got %v (%v)", missing, err)
	}
}

func TestMemoryStore_IterateAndOutputs(t *testing.T) {
	store := NewMemoryStore(5)
	for i := 0; i < 4; i++ {
		store.RecordRun(fakeRun("s", "GET", fmt.Sprintf("https://example.com/%d", i), intPtr(200)))
	}
	count := 0
	store.IterateRuns(ListOptions{}, func(*request.RunRecord) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Fatalf("expected 2 iterations, got %d", count)
	}

	store.RecordOutput(request.NewSavedOutput("s", "/tmp/1.txt", 1))
	store.RecordOutput(request.NewSavedOutput("s", "/tmp/2.txt", 2))
	outputs, _ := store.ListOutputs("s")
	if len(outputs) != 2 || outputs[0].Path != "/tmp/2.txt" {
		t.Fatalf("unexpected outputs: %#v", outputs)
	}
}

func TestNew_MemoryDriver(t *testing.T) {
	store, err := New(&config.StorageConfig{Driver: "memory", MaxRecords: 3}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}
}
