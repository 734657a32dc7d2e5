package server

import (
	"context"
	"log/slog"

	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/protocol"
	"github.com/mcoot/flightlobby/internal/transport"
)

// lobbyRoomName is the transcript room label for lobby-wide messages.
const lobbyRoomName = "Lobby"

// Every function in this file assumes the caller holds mu.

// propagate fans a frame out to every player currently in the lobby (no chat
// room), optionally excluding one connection.
func (s *Server) propagate(frame []byte, exclude transport.Conn) {
	for _, tag := range s.order {
		p := s.registry[tag]
		if p.Conn != exclude && p.ChatRoomID == "" {
			_ = p.Conn.WriteFrame(frame)
		}
	}
}

// sendMessage broadcasts a server message to the lobby, excluding one
// connection when given.
func (s *Server) sendMessage(message string, exclude transport.Conn) {
	s.logger.Debug("server message", slog.String("message", message))
	s.propagate(protocol.BuildServerMessage(message), exclude)
}

// sendChatFromPlayer routes a player's chat message to their current scope:
// their room when they occupy one, otherwise the lobby. If the room has
// vanished underneath them the player is told to leave instead.
func (s *Server) sendChatFromPlayer(p *model.Player, message string, mt protocol.MessageType) {
	message = p.Name + ": " + message

	if p.ChatRoomID == "" {
		s.propagate(protocol.BuildChat(mt, message), p.Conn)
		s.appendTranscript(p, lobbyRoomName, message)
		return
	}

	room, ok := s.rooms.Get(p.ChatRoomID)
	if !ok {
		_ = p.Conn.WriteFrame(protocol.BuildCommand(protocol.CmdLeaveChatRoom, nil))
		return
	}
	frame := protocol.BuildChat(mt, message)
	for _, tag := range room.Members() {
		if tag == p.Tag {
			continue
		}
		if member, found := s.registry[tag]; found {
			_ = member.Conn.WriteFrame(frame)
		}
	}
	s.appendTranscript(p, room.FriendlyName, message)
}

// sendChatFromServer routes a server-originated notice to a room, or to the
// lobby when roomID is empty.
func (s *Server) sendChatFromServer(roomID, message string, mt protocol.MessageType) {
	if roomID == "" {
		s.propagate(protocol.BuildChat(mt, message), nil)
		s.appendTranscript(nil, lobbyRoomName, message)
		return
	}
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	frame := protocol.BuildChat(mt, message)
	for _, tag := range room.Members() {
		if member, found := s.registry[tag]; found {
			_ = member.Conn.WriteFrame(frame)
		}
	}
	s.appendTranscript(nil, room.FriendlyName, message)
}

// sendToRoom fans a raw frame out to every member of a room.
func (s *Server) sendToRoom(roomID string, frame []byte) {
	s.sendToRoomExcept(roomID, frame, "")
}

// sendToRoomExcept fans a raw frame out to every member of a room except the
// given tag.
func (s *Server) sendToRoomExcept(roomID string, frame []byte, exceptTag string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	for _, tag := range room.Members() {
		if tag == exceptTag {
			continue
		}
		if member, found := s.registry[tag]; found {
			_ = member.Conn.WriteFrame(frame)
		}
	}
}

// announceToRoom sends a server-originated chat notice to a room, optionally
// excluding one member, and records it in the transcript.
func (s *Server) announceToRoom(roomID, message string, mt protocol.MessageType, exceptTag string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	s.sendToRoomExcept(roomID, protocol.BuildChat(mt, message), exceptTag)
	s.appendTranscript(nil, room.FriendlyName, message)
}

// sendPrivate delivers a message to a single player. A vanished recipient is
// a silent no-op.
func (s *Server) sendPrivate(targetTag, message string) {
	p, ok := s.registry[targetTag]
	if !ok {
		return
	}
	_ = p.Conn.WriteFrame(protocol.BuildChat(protocol.MessagePrivate, message))
	s.appendTranscript(nil, "Private", message)
}

// sendCritical delivers a critical notice everywhere: the lobby, every chat
// room, and every live game.
func (s *Server) sendCritical(message string) {
	s.logger.Info("critical message", slog.String("message", message))
	s.sendChatFromServer("", message, protocol.MessageCritical)
	for _, room := range s.rooms.List() {
		s.sendChatFromServer(room.ID, message, protocol.MessageCritical)
	}
	s.games.QueueCriticalMessage(message)
}

// appendTranscript records a delivered chat line. Transcript failures are
// logged, never allowed to block delivery.
func (s *Server) appendTranscript(sender *model.Player, roomName, message string) {
	record := &model.ChatRecord{
		Time:    s.clock.Now(),
		Room:    roomName,
		Message: message,
	}
	if sender != nil {
		record.SenderTag = sender.Tag
		record.SenderName = sender.Name
	}
	if err := s.chatlog.AppendChat(context.Background(), record); err != nil {
		s.logger.Warn("transcript append failed", slog.String("error", err.Error()))
	}
}
