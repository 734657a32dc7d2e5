package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/flightlobby/internal/model"
)

func TestAppendAndReadBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.AppendChat(ctx, &model.ChatRecord{Time: day, Room: "Lobby", Message: "first"}))
	require.NoError(t, s.AppendChat(ctx, &model.ChatRecord{Time: day.Add(time.Minute), Room: "Foo Bar", Message: "second"}))

	records, err := s.ChatForDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].Message)
	assert.Equal(t, "second", records[1].Message)
}

func TestDaysAreSeparate(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)

	require.NoError(t, s.AppendChat(ctx, &model.ChatRecord{Time: day, Room: "Lobby", Message: "late night"}))
	require.NoError(t, s.AppendChat(ctx, &model.ChatRecord{Time: day.Add(2 * time.Minute), Room: "Lobby", Message: "past midnight"}))

	first, err := s.ChatForDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "late night", first[0].Message)

	second, err := s.ChatForDay(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "past midnight", second[0].Message)
}

func TestEmptyDay(t *testing.T) {
	s := New()
	_, err := s.ChatForDay(context.Background(), time.Now())
	assert.ErrorIs(t, err, model.ErrNoTranscript)
}

func TestReadBackIsACopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendChat(ctx, &model.ChatRecord{Time: day, Room: "Lobby", Message: "one"}))

	records, err := s.ChatForDay(ctx, day)
	require.NoError(t, err)
	records[0] = &model.ChatRecord{Message: "mutated"}

	again, err := s.ChatForDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "one", again[0].Message)
}
