package epgrepo

import (
	"context"
	"sync"

	"github.com/yanqian/epg-server/internal/domain/epg"
)

type recordKey struct {
	channel string
	date    string
}

// MemoryRepository keeps records in process memory for tests and demos.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[recordKey]epg.ProgramRecord
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[recordKey]epg.ProgramRecord)}
}

// Upsert stores rec, replacing any row for the same channel and date.
func (r *MemoryRepository) Upsert(_ context.Context, rec epg.ProgramRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[recordKey{channel: rec.Channel, date: rec.Date}] = rec
	return nil
}

// FindBest implements epg.Repository.
func (r *MemoryRepository) FindBest(_ context.Context, date, channel string) (epg.MatchCandidate, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := make([]epg.ProgramRecord, 0, len(r.records))
	for _, rec := range r.records {
		rows = append(rows, rec)
	}
	cand, ok := epg.SelectBest(rows, date, channel)
	return cand, ok, nil
}

var _ epg.Repository = (*MemoryRepository)(nil)
