package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/lamim/talentradar/internal/checkpoint"
	"github.com/lamim/talentradar/pkg/models"
)

var resumeNow = time.Date(2025, 10, 30, 14, 30, 0, 0, time.UTC)

func newResumeStore(t *testing.T, now *time.Time) *checkpoint.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := checkpoint.NewStore(t.TempDir(), 24*time.Hour, logger,
		checkpoint.WithClock(func() time.Time { return *now }))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func savedTask(t *testing.T, store *checkpoint.Store, status models.TaskStatus) string {
	t.Helper()
	spec := models.QuerySpec{TopN: 3, Keywords: []string{"retrieval"}, Venues: []string{"ACL"}}
	taskID := checkpoint.NewTaskID(resumeNow)
	state := models.NewTaskState(taskID, spec, []string{"t1", "t2"}, resumeNow)
	state.Pos = 1
	state.RoundsCompleted = 1
	state.Status = status
	if !store.Save(state) {
		t.Fatalf("Save failed for %s", taskID)
	}
	return taskID
}

// freshFromFlags builds the fresh-task spec through the resume command's
// query flags, counting how often it is asked for
func freshFromFlags(t *testing.T, calls *int, args ...string) func() (models.QuerySpec, error) {
	cmd, q := newQueryCommand(t, args...)
	base := models.QuerySpec{TopN: 10, Venues: []string{"ICML"}}
	return func() (models.QuerySpec, error) {
		*calls++
		return q.apply(cmd, base)
	}
}

func TestPlanResume_MissingTaskStartsFresh(t *testing.T) {
	now := resumeNow
	store := newResumeStore(t, &now)
	missing := checkpoint.NewTaskID(resumeNow)

	calls := 0
	target, err := planResume(store, missing, true, freshFromFlags(t, &calls, "--keywords", "graph learning", "--top-n", "4"), resumeNow)
	if err != nil {
		t.Fatalf("planResume failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected the query flags to be read once, got %d", calls)
	}
	if target.State != nil {
		t.Error("Expected a fresh task without saved state")
	}
	if target.TaskID == missing {
		t.Error("Expected a new task id for the fresh task")
	}
	if err := checkpoint.ValidateTaskID(target.TaskID); err != nil {
		t.Errorf("Expected a valid task id, got %q: %v", target.TaskID, err)
	}
	if target.Spec.TopN != 4 || len(target.Spec.Keywords) != 1 || target.Spec.Keywords[0] != "graph learning" {
		t.Errorf("Expected spec from the query flags, got %+v", target.Spec)
	}
	if len(target.Spec.Venues) != 1 || target.Spec.Venues[0] != "ICML" {
		t.Errorf("Expected venues from the [query] config, got %v", target.Spec.Venues)
	}
}

func TestPlanResume_NoRestartFails(t *testing.T) {
	now := resumeNow
	store := newResumeStore(t, &now)

	calls := 0
	_, err := planResume(store, checkpoint.NewTaskID(resumeNow), false, freshFromFlags(t, &calls, "--keywords", "x"), resumeNow)
	if err == nil {
		t.Fatal("Expected an error for a missing task without restart")
	}
	if calls != 0 {
		t.Errorf("Expected the query flags to be ignored, got %d reads", calls)
	}
}

func TestPlanResume_PausedTaskResumes(t *testing.T) {
	now := resumeNow
	store := newResumeStore(t, &now)
	taskID := savedTask(t, store, models.StatusPaused)

	calls := 0
	target, err := planResume(store, taskID, true, freshFromFlags(t, &calls, "--keywords", "x"), resumeNow)
	if err != nil {
		t.Fatalf("planResume failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no fresh spec for a saved task, got %d reads", calls)
	}
	if target.State == nil || target.TaskID != taskID {
		t.Fatalf("Expected to resume %s, got %+v", taskID, target)
	}
	if target.State.Pos != 1 || target.Spec.TopN != 3 {
		t.Errorf("Expected the saved state and spec, got pos %d top_n %d", target.State.Pos, target.Spec.TopN)
	}
}

func TestPlanResume_FinishedTaskRejected(t *testing.T) {
	now := resumeNow
	store := newResumeStore(t, &now)
	taskID := savedTask(t, store, models.StatusFinished)

	calls := 0
	if _, err := planResume(store, taskID, true, freshFromFlags(t, &calls, "--keywords", "x"), resumeNow); err == nil {
		t.Error("Expected a finished task to be rejected")
	}
	if calls != 0 {
		t.Errorf("Expected no fresh task for a finished task, got %d reads", calls)
	}
}

func TestPlanResume_ExpiredTaskStartsFresh(t *testing.T) {
	now := resumeNow
	store := newResumeStore(t, &now)
	taskID := savedTask(t, store, models.StatusPaused)

	now = now.Add(48 * time.Hour)

	calls := 0
	target, err := planResume(store, taskID, true, freshFromFlags(t, &calls, "--keywords", "x"), now)
	if err != nil {
		t.Fatalf("planResume failed: %v", err)
	}
	if target.State != nil || target.TaskID == taskID {
		t.Errorf("Expected a fresh task for an expired checkpoint, got %+v", target)
	}
}

func TestPlanResume_CorruptCheckpointStartsFresh(t *testing.T) {
	now := resumeNow
	store := newResumeStore(t, &now)
	taskID := checkpoint.NewTaskID(resumeNow)
	if err := os.WriteFile(store.Path(taskID), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	calls := 0
	target, err := planResume(store, taskID, true, freshFromFlags(t, &calls, "--keywords", "x"), resumeNow)
	if err != nil {
		t.Fatalf("planResume failed: %v", err)
	}
	if target.State != nil || calls != 1 {
		t.Errorf("Expected a fresh task for a corrupt checkpoint, got %+v after %d reads", target, calls)
	}
}

func TestPlanResume_InvalidFreshQuery(t *testing.T) {
	now := resumeNow
	store := newResumeStore(t, &now)

	wantErr := errors.New("no keywords")
	_, err := planResume(store, checkpoint.NewTaskID(resumeNow), true, func() (models.QuerySpec, error) {
		return models.QuerySpec{}, wantErr
	}, resumeNow)
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected the query error to be reported, got %v", err)
	}
}
