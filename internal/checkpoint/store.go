package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lamim/talentradar/internal/metrics"
	"github.com/lamim/talentradar/pkg/models"
)

const (
	// DefaultExpiry is how long a checkpoint stays valid after its last update
	DefaultExpiry = 24 * time.Hour

	fileExt = ".json"
)

// Store persists task checkpoints as one JSON file per task
type Store struct {
	dir     string
	expiry  time.Duration
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time

	writeMu sync.Mutex // Serializes disk writes
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithClock overrides the time source used for UpdatedAt and expiry checks
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithMetrics records checkpoint operations
func WithMetrics(m *metrics.Collector) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates the checkpoint directory if needed
func NewStore(dir string, expiry time.Duration, logger *slog.Logger, opts ...StoreOption) (*Store, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	s := &Store{
		dir:    dir,
		expiry: expiry,
		logger: logger.With("component", "checkpoint"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the checkpoint directory
func (s *Store) Dir() string {
	return s.dir
}

// Expiry returns the configured expiry window
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Path returns the checkpoint file path for a task
func (s *Store) Path(taskID string) string {
	return filepath.Join(s.dir, taskID+fileExt)
}

// Save refreshes UpdatedAt and writes the state atomically.
// Failures are logged and reported as false.
func (s *Store) Save(state *models.TaskState) bool {
	if err := ValidateTaskID(state.TaskID); err != nil {
		s.logger.Error("Refusing to save checkpoint", "task_id", state.TaskID, "error", err)
		s.metrics.RecordCheckpoint("save", false)
		return false
	}

	state.UpdatedAt = s.now()
	if err := s.write(state); err != nil {
		s.logger.Error("Failed to save checkpoint", "task_id", state.TaskID, "error", err)
		s.metrics.RecordCheckpoint("save", false)
		return false
	}

	s.metrics.RecordCheckpoint("save", true)
	s.logger.Debug("Checkpoint saved",
		"task_id", state.TaskID,
		"status", state.Status,
		"pos", state.Pos,
		"candidates", len(state.Candidates))
	return true
}

// write performs the actual disk write: temp file, then rename
func (s *Store) write(state *models.TaskState) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	path := s.Path(state.TaskID)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint. Missing, corrupt and expired checkpoints are all
// reported as absent; an expired one is deleted.
func (s *Store) Load(taskID string) (*models.TaskState, bool) {
	if err := ValidateTaskID(taskID); err != nil {
		s.logger.Warn("Invalid task id", "task_id", taskID, "error", err)
		return nil, false
	}

	state, info, err := s.read(s.Path(taskID))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to load checkpoint", "task_id", taskID, "error", err)
		}
		s.metrics.RecordCheckpoint("load", false)
		return nil, false
	}

	if s.expired(state, info) {
		s.logger.Info("Checkpoint expired, deleting", "task_id", taskID, "updated_at", state.UpdatedAt)
		s.Delete(taskID)
		s.metrics.RecordCheckpoint("load", false)
		return nil, false
	}

	s.metrics.RecordCheckpoint("load", true)
	s.logger.Info("Checkpoint loaded",
		"task_id", state.TaskID,
		"status", state.Status,
		"pos", state.Pos,
		"terms", len(state.Terms),
		"rounds_completed", state.RoundsCompleted)
	return state, true
}

func (s *Store) read(path string) (*models.TaskState, fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var state models.TaskState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, info, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &state, info, nil
}

func (s *Store) expired(state *models.TaskState, info fs.FileInfo) bool {
	last := state.UpdatedAt
	if last.IsZero() && info != nil {
		last = info.ModTime()
	}
	return s.now().Sub(last) > s.expiry
}

// Exists reports whether a checkpoint file is present, expired or not
func (s *Store) Exists(taskID string) bool {
	if ValidateTaskID(taskID) != nil {
		return false
	}
	_, err := os.Stat(s.Path(taskID))
	return err == nil
}

// Delete removes a checkpoint. Deleting a missing checkpoint succeeds.
func (s *Store) Delete(taskID string) bool {
	if err := ValidateTaskID(taskID); err != nil {
		s.logger.Warn("Invalid task id", "task_id", taskID, "error", err)
		return false
	}
	if err := os.Remove(s.Path(taskID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Error("Failed to delete checkpoint", "task_id", taskID, "error", err)
		s.metrics.RecordCheckpoint("delete", false)
		return false
	}
	s.metrics.RecordCheckpoint("delete", true)
	return true
}

// taskFiles lists task ids with a checkpoint file, sorted
func (s *Store) taskFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, taskIDPrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

// ListActive returns the ids of unexpired, readable checkpoints.
// Expired entries are skipped but left on disk.
func (s *Store) ListActive() []string {
	ids, err := s.taskFiles()
	if err != nil {
		s.logger.Error("Failed to list checkpoints", "error", err)
		return nil
	}

	active := make([]string, 0, len(ids))
	for _, id := range ids {
		state, info, err := s.read(s.Path(id))
		if err != nil || s.expired(state, info) {
			continue
		}
		active = append(active, id)
	}
	return active
}

// CleanupExpired removes expired checkpoints and unreadable ones whose file
// is older than the expiry window. It returns the number removed.
func (s *Store) CleanupExpired() int {
	ids, err := s.taskFiles()
	if err != nil {
		s.logger.Error("Failed to list checkpoints", "error", err)
		return 0
	}

	removed := 0
	for _, id := range ids {
		path := s.Path(id)
		state, info, err := s.read(path)
		switch {
		case err == nil && !s.expired(state, info):
			continue
		case err != nil && (info == nil || s.now().Sub(info.ModTime()) <= s.expiry):
			continue
		}
		if s.Delete(id) {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("Removed expired checkpoints", "count", removed)
	}
	return removed
}

// Summary describes a stored checkpoint for listing
type Summary struct {
	TaskID     string
	Status     models.TaskStatus
	Pos        int
	Terms      int
	Rounds     int
	Candidates int
	UpdatedAt  time.Time
	Expired    bool
}

// Summaries describes every readable checkpoint, expired ones included
func (s *Store) Summaries() []Summary {
	ids, err := s.taskFiles()
	if err != nil {
		s.logger.Error("Failed to list checkpoints", "error", err)
		return nil
	}

	var out []Summary
	for _, id := range ids {
		state, info, err := s.read(s.Path(id))
		if err != nil {
			continue
		}
		out = append(out, Summary{
			TaskID:     state.TaskID,
			Status:     state.Status,
			Pos:        state.Pos,
			Terms:      len(state.Terms),
			Rounds:     state.RoundsCompleted,
			Candidates: len(state.Candidates),
			UpdatedAt:  state.UpdatedAt,
			Expired:    s.expired(state, info),
		})
	}
	return out
}
