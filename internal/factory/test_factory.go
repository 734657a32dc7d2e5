package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/flightlobby/internal/config"
	"github.com/mcoot/flightlobby/internal/dependencies/mocks"
	"github.com/mcoot/flightlobby/internal/services/games"
	"github.com/mcoot/flightlobby/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// The game factory may be nil to use the built-in session.
func NewTestApp(gameFactory games.Factory) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	cfg := config.Default()
	// No real listeners in tests; ticks are driven directly.
	cfg.Ports = nil

	app := newWithDependencies(cfg, store, mockClock, mockRandom, gameFactory, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
