package storage

import (
	"context"
	"time"

	"github.com/mcoot/flightlobby/internal/model"
)

// Storage defines the interface for the chat transcript store. Entries are
// grouped by calendar day, matching the server's day-rollover behavior.
type Storage interface {
	// AppendChat appends a record to the transcript for its day.
	AppendChat(ctx context.Context, record *model.ChatRecord) error

	// ChatForDay returns the transcript for the given day in append
	// order. It returns model.ErrNoTranscript when the day has none.
	ChatForDay(ctx context.Context, day time.Time) ([]*model.ChatRecord, error)
}

// DayKey normalizes a time to the transcript's per-day grouping key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
