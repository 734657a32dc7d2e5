package server

import (
	"fmt"
	"log/slog"

	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/protocol"
)

// tick runs one pass of the authoritative loop. It reports whether the pass
// was idle (no structural change, so the caller should sleep) and whether the
// server has fully drained and the loop should stop.
func (s *Server) tick() (idle bool, done bool) {
	s.drainPending()

	s.mu.Lock()
	s.rolloverDay()
	s.drainFinishedGames()

	// Scan until a full pass completes with no structural mutation.
	// Iteration order is not stable across removal, so any mutation
	// forces a rescan from the top.
	mutated := false
	for {
		s.structChanged = false
		s.scanRegistry()
		if !s.structChanged {
			break
		}
		mutated = true
	}

	draining := s.state >= StateDraining
	registryEmpty := len(s.registry) == 0
	s.mu.Unlock()

	if draining && registryEmpty && s.pendingEmpty() {
		return false, true
	}
	return !mutated, false
}

// scanRegistry walks every player once, stopping early on the first
// structural mutation. An unexpected fault here cannot be told apart from
// state corruption, so it flags a drain rather than continuing. Callers hold
// mu.
func (s *Server) scanRegistry() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick loop fault, draining",
				slog.String("panic", fmt.Sprint(r)))
			s.rebooting = false
			s.beginDrain()
		}
	}()

	if s.advanceReboot() {
		s.beginDrain()
	}
	for _, tag := range s.order {
		p := s.registry[tag]
		if p == nil {
			continue
		}
		if s.state >= StateDraining || !p.Conn.IsLive() {
			s.removePlayer(tag)
		} else {
			s.dispatch(p)
		}
		if s.structChanged {
			return
		}
	}
}

// drainPending moves staged players into the registry. The queue lock is
// released before the registry is touched.
func (s *Server) drainPending() {
	s.pendingMu.Lock()
	staged := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	if len(staged) == 0 {
		return
	}
	s.mu.Lock()
	for _, p := range staged {
		s.addPlayer(p)
	}
	s.mu.Unlock()
}

// addPlayer inserts a player into the registry. Callers hold mu.
func (s *Server) addPlayer(p *model.Player) {
	if _, exists := s.registry[p.Tag]; exists {
		s.logger.Warn("duplicate tag staged, dropping",
			slog.String("tag", p.Tag))
		return
	}
	s.registry[p.Tag] = p
	s.order = append(s.order, p.Tag)
}

// removePlayer closes the player's connection and removes them from the
// server, announcing the departure. Unknown tags are a no-op. Callers hold
// mu.
func (s *Server) removePlayer(tag string) {
	p, ok := s.registry[tag]
	if !ok {
		return
	}
	if p.Conn.IsLive() {
		_ = p.Conn.Close()
	}
	s.leaveRoom(p, false)
	delete(s.registry, tag)
	for i, o := range s.order {
		if o == tag {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.sendChatFromServer("", p.Name+" has left the server.", protocol.MessageLeaveRoom)
	s.logger.Debug("player disconnected",
		slog.String("tag", tag),
		slog.String("name", p.Name))
	s.structChanged = true
}

// drainFinishedGames removes completed games from the directory. Callers
// hold mu.
func (s *Server) drainFinishedGames() {
	for {
		select {
		case id := <-s.games.Finished():
			s.games.Remove(id)
		default:
			return
		}
	}
}

// rolloverDay notes calendar day changes. The transcript store keys by day on
// its own; this exists for the operator log. Callers hold mu.
func (s *Server) rolloverDay() {
	now := s.clock.Now()
	if now.Day() == s.currentDay.Day() {
		return
	}
	s.currentDay = now
	s.logger.Info("day rollover", slog.String("day", now.Format("2006-01-02")))
}

// advanceReboot advances the armed-shutdown countdown, broadcasting one
// warning per elapsed whole minute, and reports whether the deadline has
// passed. Callers hold mu.
func (s *Server) advanceReboot() bool {
	if s.state != StateRebootArmed {
		return false
	}
	if s.elapsedReboot == -1 {
		s.elapsedReboot = 0
		return false
	}
	elapsed := int(s.clock.Now().Sub(s.rebootAt).Minutes())
	if elapsed < rebootCountdownMinutes && elapsed != s.elapsedReboot {
		remaining := rebootCountdownMinutes - elapsed
		unit := "minutes."
		if remaining == 1 {
			unit = "minute."
		}
		s.sendCritical(fmt.Sprintf("Server shutting down in %d %s", remaining, unit))
		s.elapsedReboot = elapsed
	}
	return elapsed >= rebootCountdownMinutes
}
