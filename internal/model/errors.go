package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Room errors
	ErrRoomNotFound  = errors.New("chat room not found")
	ErrWrongPassword = errors.New("wrong room password")
	ErrNotInRoom     = errors.New("player is not in a chat room")

	// Game errors
	ErrGameNotFound = errors.New("game not found")
	ErrGameClosed   = errors.New("game is not open to this player")
	ErrNoFreeForAll = errors.New("no free-for-all game exists")

	// Transcript errors
	ErrNoTranscript = errors.New("no transcript for that day")
)
