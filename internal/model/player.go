package model

import (
	"time"

	"github.com/mcoot/flightlobby/internal/transport"
)

// TeamColor is a player's team assignment inside a game.
type TeamColor int32

const (
	TeamNone TeamColor = iota - 1
	TeamBlue
	TeamGreen
	TeamRed
	TeamYellow
)

// PointsField selects a stats counter for UpdatePoints.
type PointsField int

const (
	PointsWins PointsField = iota
	PointsLosses
	PointsValor
)

// WinValorAward is the valor granted to the winner of a match.
const WinValorAward = 10

// Player is one authenticated connection. It is owned exclusively by the
// session registry except while staged on the pending-join queue.
type Player struct {
	// Tag is the server-assigned unique identifier for this session.
	Tag string
	// Name is the call sign supplied at handshake.
	Name string
	// Admin is granted by external policy and immutable for the session.
	Admin bool

	// Conn is the exclusively owned transport handle; closing it
	// terminates the session.
	Conn transport.Conn

	Team TeamColor
	// ChatRoomID is the id of the occupied chat room, or "" when the
	// player is in the lobby or in a game.
	ChatRoomID string
	// EntryMode is the flag supplied when requesting a game join,
	// interpreted by the game's entry policy.
	EntryMode int32
	// Host is true while the player is hosting a game they created.
	Host bool

	Wins   int32
	Losses int32
	Valor  int32

	// FirstTick and LogOnTime drive the one-time message-of-the-day send
	// shortly after logon.
	FirstTick bool
	LogOnTime time.Time
}

// NewPlayer creates a player for a freshly authenticated connection.
func NewPlayer(tag, name string, admin bool, conn transport.Conn, logOnTime time.Time) *Player {
	return &Player{
		Tag:       tag,
		Name:      name,
		Admin:     admin,
		Conn:      conn,
		Team:      TeamNone,
		FirstTick: true,
		LogOnTime: logOnTime,
	}
}

// Power is the wins/losses ratio as float32 division. With zero losses this
// yields +Inf (or NaN for a fresh 0/0 record); that boundary is part of the
// wire contract and is deliberately not clamped.
func (p *Player) Power() float32 {
	return float32(p.Wins) / float32(p.Losses)
}

// UpdatePoints adjusts the selected counter by delta and returns the new
// value.
func (p *Player) UpdatePoints(field PointsField, delta int32) int32 {
	switch field {
	case PointsWins:
		p.Wins += delta
		return p.Wins
	case PointsLosses:
		p.Losses += delta
		return p.Losses
	default:
		p.Valor += delta
		return p.Valor
	}
}

// RecordWin books a win for p and a loss for loser, returning the valor
// awarded to the winner.
func (p *Player) RecordWin(loser *Player) int32 {
	p.UpdatePoints(PointsValor, WinValorAward)
	p.UpdatePoints(PointsWins, 1)
	loser.UpdatePoints(PointsLosses, 1)
	return WinValorAward
}
