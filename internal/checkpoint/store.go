// Package checkpoint persists run records as JSON files so that a run which
// stopped before its frontier drained (step limit, timeout, interrupt) can be
// resumed later against the same graph.
package checkpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/stepgraph/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/logging"
	"github.com/AbdelazizMoustafa10m/stepgraph/internal/pregel"
)

// DefaultDir is the store directory used when none is configured, relative
// to the working directory.
const DefaultDir = ".stepgraph/runs"

const fileExt = ".json"

// ErrNotFound is returned when no checkpoint exists for a run ID.
var ErrNotFound = errors.New("checkpoint: not found")

// runIDPattern restricts run IDs to names that are safe as file names.
var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidRunID reports whether id can be used as a checkpoint name.
func ValidRunID(id string) bool {
	return runIDPattern.MatchString(id)
}

// Checkpoint is one persisted run together with the graph it belongs to.
type Checkpoint struct {
	// GraphPath is the graph file the run was started from.
	GraphPath string `json:"graph_path"`

	// Fingerprint is the plan fingerprint at the time of the run. A resume
	// against a plan with a different fingerprint is refused.
	Fingerprint string `json:"fingerprint"`

	Run     *pregel.RunState `json:"run"`
	SavedAt time.Time        `json:"saved_at"`
}

// Resumable reports whether the run has work left to do.
func (c *Checkpoint) Resumable() bool {
	return c.Run != nil && c.Run.Status != pregel.StatusCompleted && len(c.Run.Frontier) > 0
}

// Summary is the listing form of a checkpoint.
type Summary struct {
	ID        string        `json:"id"`
	Graph     string        `json:"graph"`
	GraphPath string        `json:"graph_path"`
	Status    pregel.Status `json:"status"`
	Step      int           `json:"step"`
	Frontier  []string      `json:"frontier"`
	SavedAt   time.Time     `json:"saved_at"`
}

// Store reads and writes checkpoints in a directory, one file per run.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *log.Logger
}

// NewStore opens (creating if needed) the checkpoint directory dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: creating %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logging.New(logging.ComponentStore)}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Save writes cp atomically, replacing any earlier checkpoint of the same
// run.
func (s *Store) Save(cp *Checkpoint) error {
	if cp == nil || cp.Run == nil {
		return errors.New("checkpoint: nil run")
	}
	if !ValidRunID(cp.Run.ID) {
		return fmt.Errorf("checkpoint: invalid run ID %q", cp.Run.ID)
	}
	cp.SavedAt = time.Now()

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: encoding run %s: %w", cp.Run.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+cp.Run.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: writing run %s: %w", cp.Run.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: writing run %s: %w", cp.Run.ID, err)
	}
	if err := os.Rename(tmpName, s.path(cp.Run.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: saving run %s: %w", cp.Run.ID, err)
	}
	s.logger.Debug("checkpoint saved", "run", cp.Run.ID, "step", cp.Run.Step, "status", cp.Run.Status)
	return nil
}

// Load reads the checkpoint of run id. State values are normalized the same
// way run input is, so whole numbers come back as int64.
func (s *Store) Load(id string) (*Checkpoint, error) {
	if !ValidRunID(id) {
		return nil, fmt.Errorf("checkpoint: invalid run ID %q", id)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("checkpoint: reading run %s: %w", id, err)
	}
	return decode(data)
}

func decode(data []byte) (*Checkpoint, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var cp Checkpoint
	if err := dec.Decode(&cp); err != nil {
		return nil, fmt.Errorf("checkpoint: decoding: %w", err)
	}
	if cp.Run == nil {
		return nil, errors.New("checkpoint: missing run record")
	}
	cp.Run.Values = jsonutil.NormalizeMap(cp.Run.Values)
	return &cp, nil
}

// List returns a summary of every readable checkpoint, most recently saved
// first. Files that fail to decode are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: listing %s: %w", s.dir, err)
	}

	var out []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		cp, err := s.Load(strings.TrimSuffix(name, fileExt))
		if err != nil {
			s.logger.Warn("skipping unreadable checkpoint", "file", name, "error", err)
			continue
		}
		out = append(out, Summary{
			ID:        cp.Run.ID,
			Graph:     cp.Run.Graph,
			GraphPath: cp.GraphPath,
			Status:    cp.Run.Status,
			Step:      cp.Run.Step,
			Frontier:  cp.Run.Frontier,
			SavedAt:   cp.SavedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Latest returns the most recently saved checkpoint that can be resumed, or
// ErrNotFound.
func (s *Store) Latest() (*Checkpoint, error) {
	summaries, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, sum := range summaries {
		cp, err := s.Load(sum.ID)
		if err != nil {
			continue
		}
		if cp.Resumable() {
			return cp, nil
		}
	}
	return nil, fmt.Errorf("no resumable run in %s: %w", s.dir, ErrNotFound)
}

// Delete removes the checkpoint of run id.
func (s *Store) Delete(id string) error {
	if !ValidRunID(id) {
		return fmt.Errorf("checkpoint: invalid run ID %q", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("checkpoint: deleting run %s: %w", id, err)
	}
	return nil
}

// Hook returns an engine step hook that saves the run after every committed
// superstep.
func (s *Store) Hook(graphPath, fingerprint string) func(*pregel.RunState) error {
	return func(rs *pregel.RunState) error {
		return s.Save(&Checkpoint{GraphPath: graphPath, Fingerprint: fingerprint, Run: rs})
	}
}
