// Package runstore persists pipeline output as immutable, timestamp-keyed
// run directories on disk. Each run holds a fetched partition with every
// extracted article and a shortlisted partition with the flagged subset.
package runstore

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

	"NewsWatch/internal/domain"
)

// ErrRunExists means a run directory for the requested timestamp is already
// on disk. The caller retries with a later timestamp.
var ErrRunExists = errors.New("run already exists")

// ErrRunClosed means a write arrived through a handle whose run was already
// finalized. Closed runs are immutable.
var ErrRunClosed = errors.New("run is closed")

const (
	runPrefix    = "run_"
	runStampFmt  = "2006-01-02_15-04-05"
	fetchedDir   = "fetched"
	shortlistDir = "shortlisted"
	metaFile     = "meta.json"
)

// Store manages the runs directory. One store serves many sequential runs;
// at most one run is open at a time.
type Store struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	current *Run
}

// Run is a handle to the single open run. It stays valid until Close.
type Run struct {
	store *Store
	id    string
	dir   string
	began time.Time
}

// New builds a store rooted at dir, creating it if missing.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create runs dir: %w", err)
	}
	return &Store{root: dir, logger: logger}, nil
}

// Begin opens a new run keyed by the given start time (UTC, second
// precision). A same-second collision returns ErrRunExists unwrapped for the
// caller to detect.
func (s *Store) Begin(start time.Time) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := runPrefix + start.UTC().Format(runStampFmt)
	dir := filepath.Join(s.root, id)

	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrRunExists
		}
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	for _, sub := range []string{fetchedDir, shortlistDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create run partition: %w", err)
		}
	}

	run := &Run{store: s, id: id, dir: dir, began: start.UTC()}
	s.current = run
	if s.logger != nil {
		s.logger.Info("run started", "component", "runstore", "run_id", id)
	}
	return run, nil
}

// ID returns the run key, e.g. run_2026-05-04_09-30-00.
func (r *Run) ID() string { return r.id }

// SaveFetched writes one extracted article into the fetched partition.
func (r *Run) SaveFetched(art domain.Article) error {
	return r.save(fetchedDir, art)
}

// SaveShortlisted writes a flagged article into the shortlisted partition.
// Only articles with the shortlisted flag set may land here.
func (r *Run) SaveShortlisted(art domain.Article) error {
	if !art.Shortlisted {
		return fmt.Errorf("article %s is not shortlisted", art.ID)
	}
	return r.save(shortlistDir, art)
}

func (r *Run) save(partition string, art domain.Article) error {
	if !r.open() {
		return ErrRunClosed
	}
	art.RunID = r.id

	dir := filepath.Join(r.dir, partition, safeSegment(art.Country), safeSegment(art.SourceSlug))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create article dir: %w", err)
	}

	raw, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}
	return atomicWrite(filepath.Join(dir, art.ID+".json"), append(raw, '\n'))
}

// Close finalizes the run with its summary metadata. After Close the handle
// rejects every write.
func (r *Run) Close(summary domain.RunSummary) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.store.current != r {
		return ErrRunClosed
	}

	summary.RunID = r.id
	summary.CreatedAt = r.began
	raw, err := json.MarshalIndent(runMeta{
		RunID:             summary.RunID,
		CreatedAt:         summary.CreatedAt,
		Discovered:        summary.Discovered,
		Fetched:           summary.Fetched,
		Shortlisted:       summary.Shortlisted,
		FailedExtractions: summary.FailedExtractions,
		EndpointFailures:  summary.EndpointFailures,
		Note:              summary.Note,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run meta: %w", err)
	}
	if err := atomicWrite(filepath.Join(r.dir, metaFile), append(raw, '\n')); err != nil {
		return err
	}

	r.store.current = nil
	if r.store.logger != nil {
		r.store.logger.Info("run closed", "component", "runstore",
			"run_id", r.id, "fetched", summary.Fetched, "shortlisted", summary.Shortlisted)
	}
	return nil
}

func (r *Run) open() bool {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.current == r
}

type runMeta struct {
	RunID             string    `json:"run_id"`
	CreatedAt         time.Time `json:"created_at"`
	Discovered        int       `json:"discovered"`
	Fetched           int       `json:"fetched"`
	Shortlisted       int       `json:"shortlisted"`
	FailedExtractions int       `json:"failed_extractions"`
	EndpointFailures  int       `json:"endpoint_failures"`
	Note              string    `json:"note,omitempty"`
}

// ListRuns returns the run IDs present on disk, newest first.
func (s *Store) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), runPrefix) {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// LoadMeta reads a closed run's summary metadata.
func (s *Store) LoadMeta(runID string) (domain.RunSummary, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, runID, metaFile))
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("read run meta: %w", err)
	}
	var meta runMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return domain.RunSummary{}, fmt.Errorf("parse run meta: %w", err)
	}
	return domain.RunSummary{
		RunID:             meta.RunID,
		CreatedAt:         meta.CreatedAt,
		Discovered:        meta.Discovered,
		Fetched:           meta.Fetched,
		Shortlisted:       meta.Shortlisted,
		FailedExtractions: meta.FailedExtractions,
		EndpointFailures:  meta.EndpointFailures,
		Note:              meta.Note,
	}, nil
}

// LoadFetched reads every article in a run's fetched partition.
func (s *Store) LoadFetched(runID string) ([]domain.Article, error) {
	return s.loadPartition(runID, fetchedDir)
}

// LoadShortlisted reads every article in a run's shortlisted partition.
func (s *Store) LoadShortlisted(runID string) ([]domain.Article, error) {
	return s.loadPartition(runID, shortlistDir)
}

func (s *Store) loadPartition(runID, partition string) ([]domain.Article, error) {
	root := filepath.Join(s.root, runID, partition)
	var arts []domain.Article
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var art domain.Article
		if err := json.Unmarshal(raw, &art); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		arts = append(arts, art)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load run %s/%s: %w", runID, partition, err)
	}
	return arts, nil
}

// atomicWrite lands the file through a temp sibling plus rename so readers
// never observe a half-written article.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit file: %w", err)
	}
	return nil
}

var segmentReplacer = strings.NewReplacer("/", "-", "\\", "-", " ", "-", "..", "-")

func safeSegment(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = segmentReplacer.Replace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
