package server

import (
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/protocol"
	"github.com/mcoot/flightlobby/internal/transport"
)

// acceptLoop accepts connections on one listener until it is closed. Each
// connection is handshaken on its own goroutine so a stalled client cannot
// block the listener.
func (s *Server) acceptLoop(l net.Listener) {
	for {
		c, err := l.Accept()
		if err != nil {
			// Listener closed during shutdown.
			s.logger.Debug("accept loop stopped", slog.String("error", err.Error()))
			return
		}
		go s.handshake(transport.NewTCPConn(c))
	}
}

// handshake performs the logon exchange: the client sends its call sign, the
// server replies with the login flags, assigned tag, and message of the day,
// and the player is staged for the next tick. Handshake failures close the
// connection and are otherwise harmless.
func (s *Server) handshake(conn transport.Conn) {
	frame, err := conn.ReadFrame(s.HandshakeTimeout())
	if err != nil {
		s.logger.Warn("no call sign received, closing",
			slog.String("remote", conn.RemoteAddr()),
			slog.String("error", err.Error()))
		_ = conn.Close()
		return
	}
	r := protocol.NewReader(frame)
	callSign := r.String()
	if r.Err() != nil || callSign == "" {
		s.logger.Warn("bad call sign frame, closing",
			slog.String("remote", conn.RemoteAddr()))
		_ = conn.Close()
		return
	}

	admin := s.adminPolicy(callSign)
	tag := uuid.NewString()
	s.logger.Info("player connected",
		slog.String("remote", conn.RemoteAddr()),
		slog.String("callSign", callSign),
		slog.String("tag", tag),
		slog.Bool("admin", admin))

	s.mu.Lock()
	if s.state >= StateDraining {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.sendChatFromServer("", callSign+" has logged on.", protocol.MessageEnterRoom)
	dayMsg := s.dayMsg
	s.mu.Unlock()

	flags := protocol.LoginServerAssignedTag
	// The day message string is always present on the wire; the flag tells
	// the client whether to show it.
	if dayMsg != "" {
		flags |= protocol.LoginMessageOfTheDay
	}
	if err := conn.WriteFrame(protocol.BuildConnectResponse(flags, tag, dayMsg)); err != nil {
		s.logger.Warn("failed to send connect response",
			slog.String("tag", tag),
			slog.String("error", err.Error()))
		_ = conn.Close()
		return
	}

	conn.Start()

	p := model.NewPlayer(tag, callSign, admin, conn, s.clock.Now())
	s.pendingMu.Lock()
	s.pending = append(s.pending, p)
	s.pendingMu.Unlock()
}
