// Package memory provides in-memory implementations of the metadata store
// ports. Used by service tests and dry runs; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// MetadataStore is an in-memory counterpart of the SQLite store. It exposes
// the same sub-store accessors so callers can swap the two freely.
type MetadataStore struct {
	mu          sync.RWMutex
	nextConvID  int64
	nextRunID   int64
	conversions map[string]*domain.ConversionRecord
	states      map[int64]map[string]*domain.ProcessingState
	hashIndex   map[string]map[string]time.Time
	runs        map[int64]*domain.Run
}

// NewMetadataStore creates an empty in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		conversions: make(map[string]*domain.ConversionRecord),
		states:      make(map[int64]map[string]*domain.ProcessingState),
		hashIndex:   make(map[string]map[string]time.Time),
		runs:        make(map[int64]*domain.Run),
	}
}

// Conversions returns a ConversionStore backed by this store.
func (m *MetadataStore) Conversions() driven.ConversionStore { return &conversionStore{m} }

// States returns a StateStore backed by this store.
func (m *MetadataStore) States() driven.StateStore { return &stateStore{m} }

// HashIndex returns a HashIndexStore backed by this store.
func (m *MetadataStore) HashIndex() driven.HashIndexStore { return &hashIndexStore{m} }

// Runs returns a RunStore backed by this store.
func (m *MetadataStore) Runs() driven.RunStore { return &runStore{m} }

// ==================== Conversion Store ====================

type conversionStore struct {
	m *MetadataStore
}

var _ driven.ConversionStore = (*conversionStore)(nil)

func (s *conversionStore) RecordConversion(_ context.Context, rec *domain.ConversionRecord, state *domain.ProcessingState) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	id := s.m.upsertLocked(rec)
	if state != nil {
		s.m.upsertStateLocked(state)
	}
	s.m.indexLocked(rec.ContentHash, rec.OriginalPath)
	return id, nil
}

func (s *conversionStore) RecordFailure(_ context.Context, rec *domain.ConversionRecord, state *domain.ProcessingState) (int64, error) {
	if rec.OriginalPath == "" {
		return 0, domain.ErrInvalidInput
	}
	rec.Status = domain.StatusFailed
	if rec.FailedAt.IsZero() {
		rec.FailedAt = time.Now().UTC()
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	id := s.m.upsertLocked(rec)
	if state != nil {
		s.m.upsertStateLocked(state)
	}
	return id, nil
}

// upsertLocked stores a copy of rec, preserving an existing record's ID.
func (m *MetadataStore) upsertLocked(rec *domain.ConversionRecord) int64 {
	if existing, ok := m.conversions[rec.OriginalPath]; ok {
		rec.ID = existing.ID
	} else {
		m.nextConvID++
		rec.ID = m.nextConvID
	}
	clone := *rec
	m.conversions[rec.OriginalPath] = &clone
	return rec.ID
}

func (m *MetadataStore) upsertStateLocked(state *domain.ProcessingState) {
	if state.ProcessedAt.IsZero() {
		state.ProcessedAt = time.Now().UTC()
	}
	byPath, ok := m.states[state.RunID]
	if !ok {
		byPath = make(map[string]*domain.ProcessingState)
		m.states[state.RunID] = byPath
	}
	clone := *state
	byPath[state.FilePath] = &clone
}

func (m *MetadataStore) indexLocked(hash, path string) {
	byPath, ok := m.hashIndex[hash]
	if !ok {
		byPath = make(map[string]time.Time)
		m.hashIndex[hash] = byPath
	}
	if _, ok := byPath[path]; !ok {
		byPath[path] = time.Now().UTC()
	}
}

func (s *conversionStore) MarkDuplicate(_ context.Context, path string, canonical *domain.ConversionRecord) error {
	if canonical == nil || canonical.ID == 0 {
		return domain.ErrInvalidInput
	}

	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	rec, ok := s.m.conversions[path]
	if !ok {
		return domain.ErrNotFound
	}
	canonicalID := canonical.ID
	rec.Status = domain.StatusDuplicateReferenced
	rec.DuplicateOfID = &canonicalID
	rec.DuplicateOfPath = canonical.OriginalPath
	rec.BlobPath = canonical.BlobPath
	rec.BlobURL = canonical.BlobURL
	return nil
}

func (s *conversionStore) GetByPath(_ context.Context, path string) (*domain.ConversionRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	rec, ok := s.m.conversions[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *conversionStore) CanonicalForHash(_ context.Context, hash string) (*domain.ConversionRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var oldest *domain.ConversionRecord
	for _, rec := range s.m.conversions {
		if rec.ContentHash != hash || rec.Status != domain.StatusCompleted {
			continue
		}
		if oldest == nil || rec.ID < oldest.ID {
			oldest = rec
		}
	}
	if oldest == nil {
		return nil, domain.ErrNotFound
	}
	clone := *oldest
	return &clone, nil
}

func (s *conversionStore) List(_ context.Context, status domain.ConversionStatus, limit int) ([]*domain.ConversionRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var records []*domain.ConversionRecord
	for _, rec := range s.m.conversions {
		if status != "" && rec.Status != status {
			continue
		}
		clone := *rec
		records = append(records, &clone)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *conversionStore) Statistics(_ context.Context) (*domain.AggregateStats, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	stats := &domain.AggregateStats{
		ByStatus:  make(map[domain.ConversionStatus]int),
		TotalRuns: len(s.m.runs),
	}
	for _, rec := range s.m.conversions {
		stats.TotalConversions++
		stats.ByStatus[rec.Status]++
		if rec.Status == domain.StatusCompleted {
			stats.OriginalBytes += rec.OriginalSize
			stats.COGBytes += rec.COGSize
		}
	}
	stats.UniqueHashes = len(s.m.hashIndex)
	return stats, nil
}

// ==================== State Store ====================

type stateStore struct {
	m *MetadataStore
}

var _ driven.StateStore = (*stateStore)(nil)

func (s *stateStore) Upsert(_ context.Context, state *domain.ProcessingState) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.upsertStateLocked(state)
	return nil
}

func (s *stateStore) Latest(_ context.Context, path string) (*domain.ProcessingState, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var latest *domain.ProcessingState
	for _, byPath := range s.m.states {
		st, ok := byPath[path]
		if !ok {
			continue
		}
		if latest == nil || st.RunID > latest.RunID {
			latest = st
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

// ==================== Hash Index Store ====================

type hashIndexStore struct {
	m *MetadataStore
}

var _ driven.HashIndexStore = (*hashIndexStore)(nil)

func (s *hashIndexStore) Add(_ context.Context, hash, path string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.indexLocked(hash, path)
	return nil
}

func (s *hashIndexStore) HasOther(_ context.Context, hash, exclude string) (bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	for path := range s.m.hashIndex[hash] {
		if path != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (s *hashIndexStore) Paths(_ context.Context, hash string) ([]string, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var paths []string
	for path := range s.m.hashIndex[hash] {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// ==================== Run Store ====================

type runStore struct {
	m *MetadataStore
}

var _ driven.RunStore = (*runStore)(nil)

func (s *runStore) Begin(_ context.Context, inputDir, configSnapshot string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if configSnapshot == "" {
		configSnapshot = "{}"
	}
	s.m.nextRunID++
	s.m.runs[s.m.nextRunID] = &domain.Run{
		ID:             s.m.nextRunID,
		StartedAt:      time.Now().UTC(),
		InputDir:       inputDir,
		ConfigSnapshot: configSnapshot,
	}
	return s.m.nextRunID, nil
}

func (s *runStore) End(_ context.Context, runID int64, stats domain.RunStats) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	run, ok := s.m.runs[runID]
	if !ok {
		return domain.ErrNotFound
	}
	run.EndedAt = time.Now().UTC()
	run.Stats = stats
	return nil
}

func (s *runStore) Get(_ context.Context, runID int64) (*domain.Run, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	run, ok := s.m.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *run
	return &clone, nil
}

func (s *runStore) List(_ context.Context, limit int) ([]*domain.Run, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var runs []*domain.Run
	for _, run := range s.m.runs {
		clone := *run
		runs = append(runs, &clone)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
