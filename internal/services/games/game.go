package games

import (
	"sync"

	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/protocol"
)

// GameType identifies the kind of match a game hosts. Values are part of the
// wire contract.
type GameType int32

const (
	GameTypeFreeForAll GameType = iota
	GameTypeOneOnOne
	GameTypeTeamDeath
)

// Title returns the human-readable description used in lobby notices.
func (t GameType) Title() string {
	switch t {
	case GameTypeFreeForAll:
		return "free for all"
	case GameTypeOneOnOne:
		return "one on one match"
	case GameTypeTeamDeath:
		return "team death match"
	default:
		return "match"
	}
}

// Game is the bridge's view of a running game session. The lobby core does
// not own game-internal state; it only adds players, checks openness, relays
// critical messages, and reacts to the finished notification.
type Game interface {
	ID() string
	Type() GameType
	Title() string

	// Add transfers a player into the game. The player is no longer in
	// the registry when this is called.
	Add(p *model.Player)

	// IsOpen reports whether the game currently accepts this player under
	// its entry-mode policy.
	IsOpen(tag string, entryMode int32) bool

	// QueueCriticalMessage relays a critical server notice to everyone in
	// the game.
	QueueCriticalMessage(message string)

	// SetForceGameEnd ends the game, sending reason to its players when
	// non-empty. The game must eventually report finished and return its
	// players through the bridge's return function.
	SetForceGameEnd(reason string)
}

// session is the built-in game session. It holds members and implements the
// open/closed policy per game type; there is no simulation here.
type session struct {
	id  string
	typ GameType

	returnPlayer ReturnFunc
	finished     func(id string)

	mu      sync.Mutex
	members map[string]*model.Player
	ended   bool
}

var _ Game = (*session)(nil)

func newSession(id string, typ GameType, ret ReturnFunc, finished func(id string)) *session {
	return &session{
		id:           id,
		typ:          typ,
		returnPlayer: ret,
		finished:     finished,
		members:      make(map[string]*model.Player),
	}
}

func (g *session) ID() string {
	return g.id
}

func (g *session) Type() GameType {
	return g.typ
}

func (g *session) Title() string {
	return g.typ.Title()
}

func (g *session) Add(p *model.Player) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[p.Tag] = p
}

func (g *session) IsOpen(tag string, entryMode int32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ended {
		return false
	}
	if _, already := g.members[tag]; already {
		return false
	}
	switch g.typ {
	case GameTypeFreeForAll:
		return true
	case GameTypeOneOnOne:
		return len(g.members) < 2
	default:
		return true
	}
}

func (g *session) QueueCriticalMessage(message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	frame := protocol.BuildChat(protocol.MessageCritical, message)
	for _, p := range g.members {
		_ = p.Conn.WriteFrame(frame)
	}
}

func (g *session) SetForceGameEnd(reason string) {
	g.mu.Lock()
	if g.ended {
		g.mu.Unlock()
		return
	}
	g.ended = true
	members := make([]*model.Player, 0, len(g.members))
	for _, p := range g.members {
		members = append(members, p)
	}
	g.members = make(map[string]*model.Player)
	g.mu.Unlock()

	if reason != "" {
		frame := protocol.BuildChat(protocol.MessageCritical, reason)
		for _, p := range members {
			_ = p.Conn.WriteFrame(frame)
		}
	}
	for _, p := range members {
		g.returnPlayer(p.Tag, p, true)
	}
	g.finished(g.id)
}
