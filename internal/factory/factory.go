package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/mcoot/flightlobby/internal/config"
	"github.com/mcoot/flightlobby/internal/dependencies/clock"
	"github.com/mcoot/flightlobby/internal/dependencies/random"
	"github.com/mcoot/flightlobby/internal/server"
	"github.com/mcoot/flightlobby/internal/services/games"
	"github.com/mcoot/flightlobby/internal/services/rooms"
	"github.com/mcoot/flightlobby/internal/storage"
	"github.com/mcoot/flightlobby/internal/storage/memory"
	redisstorage "github.com/mcoot/flightlobby/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	RoomService *rooms.Service
	Server      *server.Server
}

// Config holds configuration for the application factory
type Config struct {
	// Server holds the lobby server configuration
	// If zero value, defaults to config.Default()
	Server config.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the transcript storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// GameFactory overrides the built-in game session (optional, used in tests)
	GameFactory games.Factory
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	serverCfg := cfg.Server
	if len(serverCfg.Ports) == 0 {
		serverCfg = config.Default()
	}

	return newWithDependencies(serverCfg, store, clk, rnd, cfg.GameFactory, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	serverCfg config.Config,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	gameFactory games.Factory,
	logger *slog.Logger,
) *App {
	roomService := rooms.New(rnd, logger)
	srv := server.New(serverCfg, store, roomService, clk, rnd, gameFactory, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		RoomService: roomService,
		Server:      srv,
	}
}
