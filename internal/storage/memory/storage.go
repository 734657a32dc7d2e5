package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/storage"
)

// Storage is an in-memory implementation of the transcript store.
type Storage struct {
	mu sync.RWMutex

	days map[string][]*model.ChatRecord
}

// New creates a new in-memory transcript store.
func New() *Storage {
	return &Storage{
		days: make(map[string][]*model.ChatRecord),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) AppendChat(ctx context.Context, record *model.ChatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storage.DayKey(record.Time)
	s.days[key] = append(s.days[key], record)
	return nil
}

func (s *Storage) ChatForDay(ctx context.Context, day time.Time) ([]*model.ChatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.days[storage.DayKey(day)]
	if !ok {
		return nil, model.ErrNoTranscript
	}
	result := make([]*model.ChatRecord, len(records))
	copy(result, records)
	return result, nil
}
