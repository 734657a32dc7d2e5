// Package games bridges the lobby to running game sessions: it owns the game
// directory and the transfer of players out of the registry. Game completion
// is reported on a channel the tick loop drains, rather than by callback
// subscription, so there is no unsubscription lifecycle to get wrong.
package games

import (
	"log/slog"

	"github.com/mcoot/flightlobby/internal/dependencies/random"
	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/services/rooms"
)

// ReturnFunc hands a player back toward the lobby. It must be safe to call
// from a game's own goroutine; the server implements it by staging onto the
// pending-join queue.
type ReturnFunc func(tag string, p *model.Player, keepOnServer bool)

// Factory builds a game session. Tests substitute this to observe bridge
// behavior without real sessions.
type Factory func(id string, typ GameType, ret ReturnFunc, finished func(id string)) Game

// finishedBuffer bounds pending finished notifications between ticks.
const finishedBuffer = 128

// Bridge owns the game directory. Like the room directory it is mutated only
// inside the tick loop's critical section; the finished channel is the only
// cross-thread signal.
type Bridge struct {
	logger  *slog.Logger
	random  random.Random
	ret     ReturnFunc
	factory Factory

	games map[string]Game
	order []string

	finished chan string
}

// New creates a Bridge. A nil factory uses the built-in session.
func New(rnd random.Random, ret ReturnFunc, factory Factory, logger *slog.Logger) *Bridge {
	b := &Bridge{
		logger:   logger,
		random:   rnd,
		ret:      ret,
		factory:  factory,
		games:    make(map[string]Game),
		finished: make(chan string, finishedBuffer),
	}
	if b.factory == nil {
		b.factory = func(id string, typ GameType, ret ReturnFunc, finished func(id string)) Game {
			return newSession(id, typ, ret, finished)
		}
	}
	return b
}

// Finished exposes the game-completion notifications. The tick loop drains it
// and calls Remove for each id.
func (b *Bridge) Finished() <-chan string {
	return b.finished
}

// Create allocates an id, instantiates a game, and registers it. When creator
// is non-nil the caller must already have removed them from the registry; the
// creator becomes the game's host.
func (b *Bridge) Create(creator *model.Player, typ GameType) Game {
	id := b.newID()
	g := b.factory(id, typ, b.ret, b.notifyFinished)
	b.games[id] = g
	b.order = append(b.order, id)
	if creator != nil {
		creator.Host = true
		g.Add(creator)
		b.logger.Debug("game created",
			slog.String("id", id),
			slog.String("creator", creator.Tag))
	} else {
		b.logger.Debug("game created", slog.String("id", id))
	}
	return g
}

// CreateFreeForAll creates the always-open FFA game. Called once at
// bootstrap.
func (b *Bridge) CreateFreeForAll() Game {
	return b.Create(nil, GameTypeFreeForAll)
}

// Join validates the target game and transfers the player into it. The
// caller removes the player from the registry only on success.
func (b *Bridge) Join(p *model.Player, id string) (Game, error) {
	g, ok := b.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	if !g.IsOpen(p.Tag, p.EntryMode) {
		return nil, model.ErrGameClosed
	}
	g.Add(p)
	return g, nil
}

// JoinFreeForAll transfers the player into the FFA game.
func (b *Bridge) JoinFreeForAll(p *model.Player) (Game, error) {
	for _, id := range b.order {
		g := b.games[id]
		if g.Type() == GameTypeFreeForAll {
			g.Add(p)
			return g, nil
		}
	}
	return nil, model.ErrNoFreeForAll
}

// OpenGames returns the joinable games for the given player: every non-FFA
// game currently open to them, in creation order.
func (b *Bridge) OpenGames(tag string) []Game {
	var result []Game
	for _, id := range b.order {
		g := b.games[id]
		if g.Type() == GameTypeFreeForAll || !g.IsOpen(tag, 0) {
			continue
		}
		result = append(result, g)
	}
	return result
}

// Get returns the game with the given id.
func (b *Bridge) Get(id string) (Game, bool) {
	g, ok := b.games[id]
	return g, ok
}

// Remove deletes a finished game from the directory.
func (b *Bridge) Remove(id string) {
	if _, ok := b.games[id]; !ok {
		return
	}
	delete(b.games, id)
	for i, o := range b.order {
		if o == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.logger.Debug("game finished", slog.String("id", id))
}

// Count returns the number of live games.
func (b *Bridge) Count() int {
	return len(b.games)
}

// QueueCriticalMessage relays a critical notice into every live game.
func (b *Bridge) QueueCriticalMessage(message string) {
	for _, g := range b.games {
		g.QueueCriticalMessage(message)
	}
}

// ForceEndAll tells every game to end. Used while draining for shutdown.
func (b *Bridge) ForceEndAll(reason string) {
	for _, id := range append([]string(nil), b.order...) {
		b.games[id].SetForceGameEnd(reason)
	}
}

func (b *Bridge) notifyFinished(id string) {
	select {
	case b.finished <- id:
	default:
		// The channel is drained every tick; overflow here means the
		// loop has stopped, and the id will be cleaned up with the
		// directory.
		b.logger.Warn("finished channel full", slog.String("id", id))
	}
}

// newID generates a short alphanumeric id not already in the directory.
func (b *Bridge) newID() string {
	for {
		id := b.random.String(1+b.random.Intn(9), rooms.IDAlphabet)
		if id == "" {
			continue
		}
		if _, exists := b.games[id]; !exists {
			return id
		}
	}
}
