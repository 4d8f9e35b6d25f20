package writer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/lamim/talentradar/pkg/models"
)

// CandidateRecord is one line of candidates.jsonl
type CandidateRecord struct {
	Rank        int  `json:"rank"`
	Recommended bool `json:"recommended"`
	models.CandidateProfile
}

// ResultWriter writes task results into the task output directory
type ResultWriter struct {
	sessionMgr *SessionManager
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewResultWriter creates a result writer
func NewResultWriter(sessionMgr *SessionManager, logger *slog.Logger) *ResultWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultWriter{
		sessionMgr: sessionMgr,
		logger:     logger.With("component", "writer"),
	}
}

// WriteFinal writes results.json and candidates.jsonl. Candidates are
// ranked recommended first, then additional. A stale partial.json is removed.
func (w *ResultWriter) WriteFinal(result models.FinalResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := writeJSONFile(w.sessionMgr.GetResultsPath(), result); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	records := CandidateRecords(result)
	if err := writeJSONLines(w.sessionMgr.GetCandidatesPath(), records); err != nil {
		return fmt.Errorf("failed to write candidates: %w", err)
	}

	if err := os.Remove(w.sessionMgr.GetPartialPath()); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("Failed to remove partial result", "error", err)
	}

	w.logger.Info("Wrote final results",
		"task_id", result.TaskID,
		"path", w.sessionMgr.GetResultsPath(),
		"candidates", len(records),
		"papers", len(result.Papers))
	return nil
}

// WritePartial writes partial.json, replacing the previous snapshot
func (w *ResultWriter) WritePartial(partial models.PartialResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := writeJSONFile(w.sessionMgr.GetPartialPath(), partial); err != nil {
		return fmt.Errorf("failed to write partial result: %w", err)
	}

	w.logger.Info("Wrote partial result",
		"task_id", partial.TaskID,
		"path", w.sessionMgr.GetPartialPath(),
		"candidates", partial.TotalCandidatesFound)
	return nil
}

// CandidateRecords flattens a final result into ranked records
func CandidateRecords(result models.FinalResult) []CandidateRecord {
	records := make([]CandidateRecord, 0, len(result.Recommended)+len(result.Additional))
	for _, c := range result.Recommended {
		records = append(records, CandidateRecord{Rank: len(records) + 1, Recommended: true, CandidateProfile: c})
	}
	for _, c := range result.Additional {
		records = append(records, CandidateRecord{Rank: len(records) + 1, CandidateProfile: c})
	}
	return records
}

// writeJSONFile writes indented JSON through a temp file and a rename so a
// reader never sees a half-written file
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	return writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(append(data, '\n'))
		return err
	})
}

func writeJSONLines(path string, records []CandidateRecord) error {
	return writeAtomic(path, func(f *os.File) error {
		buf := bufio.NewWriter(f)
		enc := json.NewEncoder(buf)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return buf.Flush()
	})
}

func writeAtomic(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
