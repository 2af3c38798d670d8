// Package resume persists point-in-time run snapshots to disk. Writes are
// append-only: every checkpoint creates a new timestamp-named file, so a
// crash mid-write can only lose the in-progress snapshot, never a prior one.
package resume

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"tokendrip/internal/model"
)

const (
	snapshotPrefix = "snapshot-"
	snapshotExt    = ".json"

	// Lexicographic order on this layout matches temporal order.
	timestampLayout = "20060102-150405.000000000"
)

// Store manages the snapshot directory for a run.
type Store struct {
	dir    string
	logger *zap.Logger

	// now is a test seam for deterministic filenames.
	now func() time.Time
}

func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger, now: time.Now}
}

// Checkpoint writes a new snapshot of the full record sequence, summary, and
// cursor. Prior snapshots are never touched.
func (s *Store) Checkpoint(records []*model.DistributionRecord, summary *model.DistributionSummary, lastIndex int, sourceFile string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	ts := s.now().UTC()
	snap := model.ResumeSnapshot{
		Records:            records,
		Summary:            summary,
		LastProcessedIndex: lastIndex,
		Timestamp:          ts,
		SourceFile:         sourceFile,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	name := snapshotPrefix + ts.Format(timestampLayout) + snapshotExt
	path := filepath.Join(s.dir, name)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	s.logger.Debug("snapshot written", zap.String("file", name), zap.Int("cursor", lastIndex))
	return nil
}

// List returns snapshot identifiers, newest first. A missing directory is an
// empty list, not an error.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		ids = append(ids, name)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// LoadLatest returns the most recent snapshot, or nil when none exist. A
// snapshot that fails to parse is logged and treated as absent rather than
// halting a resume attempt.
func (s *Store) LoadLatest() (*model.ResumeSnapshot, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	snap, err := s.Load(ids[0])
	if err != nil {
		s.logger.Warn("latest snapshot unreadable", zap.String("id", ids[0]), zap.Error(err))
		return nil, nil
	}
	return snap, nil
}

// Load reads one snapshot by identifier. Unlike LoadLatest, failures here
// propagate: the caller asked for this snapshot by name.
func (s *Store) Load(id string) (*model.ResumeSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap model.ResumeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}

// Clear removes every snapshot. Called after a run fully completes, when
// there is nothing left to resume.
func (s *Store) Clear() error {
	ids, err := s.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := os.Remove(filepath.Join(s.dir, id)); err != nil {
			return fmt.Errorf("remove snapshot %s: %w", id, err)
		}
	}
	return nil
}

// Prune deletes all but the newest keep snapshots.
func (s *Store) Prune(keep int) error {
	if keep < 0 {
		keep = 0
	}
	ids, err := s.List()
	if err != nil {
		return err
	}
	if len(ids) <= keep {
		return nil
	}
	for _, id := range ids[keep:] {
		if err := os.Remove(filepath.Join(s.dir, id)); err != nil {
			return fmt.Errorf("remove snapshot %s: %w", id, err)
		}
	}
	return nil
}
