package checkpoint

import (
	"fmt"
	"testing"
	"time"

	"github.com/lamim/talentradar/pkg/models"
)

func TestAsyncWriter_DrainsOnClose(t *testing.T) {
	store, clock := newTestStore(t)
	w := NewAsyncWriter(store, 2)

	var ids []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("task_20251030_14300%d_0000000%d", i, i)
		ids = append(ids, id)
		if err := w.Enqueue(sampleState(id, clock.Now())); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, id := range ids {
		if !store.Exists(id) {
			t.Errorf("Expected %s to be written", id)
		}
	}
}

func TestAsyncWriter_WritesSnapshot(t *testing.T) {
	store, clock := newTestStore(t)
	w := NewAsyncWriter(store, 10)

	taskID := NewTaskID(clock.Now())
	state := sampleState(taskID, clock.Now())
	if err := w.Enqueue(state); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// Mutations after Enqueue must not leak into the queued copy
	state.Pos = 3
	state.Candidates = append(state.Candidates, models.CandidateProfile{Name: "Late"})

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	loaded, ok := store.Load(taskID)
	if !ok {
		t.Fatal("Expected checkpoint to be written")
	}
	if loaded.Pos != 2 {
		t.Errorf("Expected pos 2, got %d", loaded.Pos)
	}
	if len(loaded.Candidates) != 2 {
		t.Errorf("Expected 2 candidates, got %d", len(loaded.Candidates))
	}
}

func TestAsyncWriter_ReportsFailure(t *testing.T) {
	store, clock := newTestStore(t)
	w := NewAsyncWriter(store, 10)

	bad := sampleState("not-a-task", clock.Now())
	if err := w.Enqueue(bad); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := w.Close(); err == nil {
		t.Error("Expected Close to report the failed write")
	}
}

func TestAsyncWriter_EnqueueAfterClose(t *testing.T) {
	store, clock := newTestStore(t)
	w := NewAsyncWriter(store, 1)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}

	if err := w.Enqueue(sampleState(NewTaskID(clock.Now()), clock.Now())); err == nil {
		t.Error("Expected Enqueue after Close to fail")
	}
}

func TestAsyncWriter_FullQueueWaitsAndKeepsOrder(t *testing.T) {
	store, clock := newTestStore(t)
	taskID := NewTaskID(clock.Now())

	// Not started yet, so the queue stays full
	w := &AsyncWriter{
		store:      store,
		writeChan:  make(chan *models.TaskState, 1),
		stopWriter: make(chan struct{}),
	}

	older := sampleState(taskID, clock.Now())
	older.Pos = 1
	if err := w.Enqueue(older); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	newer := sampleState(taskID, clock.Now())
	newer.Pos = 3
	done := make(chan error, 1)
	go func() { done <- w.Enqueue(newer) }()

	select {
	case err := <-done:
		t.Fatalf("Expected Enqueue to wait for queue space, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	if store.Exists(taskID) {
		t.Fatal("Expected no write before the writer runs")
	}

	w.start()
	if err := <-done; err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	loaded, ok := store.Load(taskID)
	if !ok {
		t.Fatal("Expected checkpoint to be written")
	}
	if loaded.Pos != 3 {
		t.Errorf("Expected newest snapshot with pos 3, got pos %d", loaded.Pos)
	}
}

func TestAsyncWriter_SameTaskLastEnqueueWins(t *testing.T) {
	store, clock := newTestStore(t)
	w := NewAsyncWriter(store, 1)
	taskID := NewTaskID(clock.Now())

	for pos := 0; pos <= 20; pos++ {
		state := sampleState(taskID, clock.Now())
		state.Terms = make([]string, 20)
		state.Pos = pos
		if err := w.Enqueue(state); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	loaded, ok := store.Load(taskID)
	if !ok {
		t.Fatal("Expected checkpoint to be written")
	}
	if loaded.Pos != 20 {
		t.Errorf("Expected pos 20, got %d", loaded.Pos)
	}
}
