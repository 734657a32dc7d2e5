package server

import (
	"log/slog"
	"time"

	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/protocol"
	"github.com/mcoot/flightlobby/internal/services/games"
)

// dayMessageDelay is how long after logon the message of the day is sent. The
// client is still loading its UI immediately after the handshake.
const dayMessageDelay = 10 * time.Second

// dispatch runs one round of command processing for a player: the one-time
// message-of-the-day send, then every inbound frame buffered since the last
// tick. Callers hold mu; dispatch returns early once a command mutates the
// registry or room membership structurally.
func (s *Server) dispatch(p *model.Player) {
	s.deliverDayMessage(p)

	for _, frame := range p.Conn.PollFrames() {
		s.handleFrame(p, frame)
		if s.structChanged {
			return
		}
	}
}

// deliverDayMessage sends the message of the day once, shortly after logon.
func (s *Server) deliverDayMessage(p *model.Player) {
	if !p.FirstTick || s.clock.Now().Sub(p.LogOnTime) < dayMessageDelay {
		return
	}
	p.FirstTick = false
	if s.dayMsg == "" {
		return
	}
	_ = p.Conn.WriteFrame(protocol.BuildChat(protocol.MessageNormal, "[Message of the day]: "+s.dayMsg))
}

// handleFrame decodes and executes every command record in one frame. A
// decode failure means the stream is corrupt, and the only safe recovery is
// dropping the connection.
func (s *Server) handleFrame(p *model.Player, frame []byte) {
	r := protocol.NewReader(frame)
	for r.More() {
		if r.Byte() != protocol.MarkerCommand {
			// Keep-alive padding.
			continue
		}
		code := r.Byte()
		s.handleCommand(p, code, r)
		if r.Err() != nil || s.structChanged {
			break
		}
	}
	if err := r.Err(); err != nil {
		s.logger.Warn("malformed frame, dropping connection",
			slog.String("tag", p.Tag),
			slog.String("error", err.Error()))
		s.removePlayer(p.Tag)
	}
}

func (s *Server) handleCommand(p *model.Player, code byte, r *protocol.Reader) {
	switch code {
	case protocol.CmdRequestAdmin:
		_ = p.Conn.WriteFrame(protocol.BuildBoolResponse(p.Admin))

	case protocol.CmdSetMessage:
		// The payload is consumed either way to keep the record stream in
		// sync.
		msg := r.String()
		if p.Admin {
			s.dayMsg = msg
		}

	case protocol.CmdReboot:
		// Reserved; shutdown is an operator action.

	case protocol.CmdViewChatRooms:
		s.handleViewChatRooms(p)

	case protocol.CmdJoinChatRoom:
		s.handleJoinChatRoom(p, r)

	case protocol.CmdLeaveChatRoom:
		s.leaveRoom(p, true)

	case protocol.CmdCreateChatRoom:
		s.handleCreateChatRoom(p, r)

	case protocol.CmdGetStats:
		_ = p.Conn.WriteFrame(protocol.BuildResponse(func(w *protocol.Writer) {
			w.PutInt32(p.Valor)
			w.PutFloat32(p.Power())
			w.PutInt32(p.Wins)
			w.PutInt32(p.Losses)
		}))

	case protocol.CmdWhois:
		s.handleWhois(p)

	case protocol.CmdCreateGame:
		s.handleCreateGame(p, r)

	case protocol.CmdRequestGameList:
		s.handleGameList(p)

	case protocol.CmdJoinFreeForAll:
		s.handleJoinFreeForAll(p, r)

	case protocol.CmdJoinGame:
		s.handleJoinGame(p, r)

	case protocol.CmdServerMessage:
		s.propagate(protocol.BuildServerMessage(r.String()), p.Conn)

	case protocol.CmdChat:
		s.handleChat(p, r)

	case protocol.CmdDisconnectMe:
		s.removePlayer(p.Tag)

	default:
		s.logger.Warn("unknown command",
			slog.String("tag", p.Tag),
			slog.Int("code", int(code)))
	}
}

// handleViewChatRooms responds with the visible room directory. Closed
// two-party rooms are never listed.
func (s *Server) handleViewChatRooms(p *model.Player) {
	var visible []*model.ChatRoom
	for _, room := range s.rooms.List() {
		if room.Type != model.RoomClosed {
			visible = append(visible, room)
		}
	}
	_ = p.Conn.WriteFrame(protocol.BuildResponse(func(w *protocol.Writer) {
		w.PutInt16(int16(len(visible)))
		for _, room := range visible {
			w.PutString(room.ID)
			w.PutString(room.FriendlyName)
			w.PutBool(room.Type == model.RoomPassword)
		}
	}))
}

// handleJoinChatRoom validates and performs a room join. Existing members are
// told about the joiner before the joiner's success response, which carries
// the membership list they are joining.
func (s *Server) handleJoinChatRoom(p *model.Player, r *protocol.Reader) {
	id := r.String()
	var password string
	if s.rooms.IsPassworded(id) {
		password = r.String()
	}
	if r.Err() != nil {
		return
	}

	if err := s.rooms.Join(p, id, password); err != nil {
		_ = p.Conn.WriteFrame(protocol.BuildBoolResponse(false))
		return
	}

	s.announceToRoom(id, p.Name+" has joined the room!", protocol.MessageEnterRoom, p.Tag)
	s.sendToRoomExcept(id, protocol.BuildCommand(protocol.CmdAddMember, func(w *protocol.Writer) {
		w.PutString(p.Tag)
		w.PutString(p.Name)
	}), p.Tag)

	room, _ := s.rooms.Get(id)
	var tags, names []string
	for _, tag := range room.Members() {
		if tag == p.Tag {
			continue
		}
		if member, ok := s.registry[tag]; ok {
			tags = append(tags, member.Tag)
			names = append(names, member.Name)
		}
	}
	_ = p.Conn.WriteFrame(protocol.BuildResponse(func(w *protocol.Writer) {
		w.PutBool(true)
		w.PutInt16(int16(len(tags)))
		for i := range tags {
			w.PutString(tags[i])
			w.PutString(names[i])
		}
	}))
}

func (s *Server) handleCreateChatRoom(p *model.Player, r *protocol.Reader) {
	passworded := r.Byte() != 0
	name := r.String()
	var password string
	if passworded {
		password = r.String()
	}
	if r.Err() != nil {
		return
	}

	room, err := s.rooms.Create(name, p, password)
	if err != nil {
		s.logger.Error("failed to create chat room",
			slog.String("tag", p.Tag),
			slog.String("error", err.Error()))
		return
	}
	s.announceToRoom(room.ID, "Room created", protocol.MessageEnterRoom, "")
}

func (s *Server) handleWhois(p *model.Player) {
	_ = p.Conn.WriteFrame(protocol.BuildResponse(func(w *protocol.Writer) {
		w.PutInt16(int16(len(s.order)))
		for _, tag := range s.order {
			member := s.registry[tag]
			name := member.Name
			if member.Admin {
				name += " (GM)"
			}
			w.PutString(member.Tag)
			w.PutString(name)
		}
	}))
}

// handleCreateGame moves the creator out of the lobby into a fresh game. A
// one-argument payload carries only the game type; otherwise a team
// assignment follows.
func (s *Server) handleCreateGame(p *model.Player, r *protocol.Reader) {
	argc := r.Byte()
	typ := games.GameType(r.Int32())
	if argc == 1 {
		p.Team = model.TeamNone
	} else {
		p.Team = model.TeamColor(r.Int32())
	}
	if r.Err() != nil {
		return
	}

	name := p.Name
	s.transferOut(p.Tag)
	g := s.games.Create(p, typ)
	s.sendMessage(name+" Has created a new "+g.Title()+". The game is open to new players.", p.Conn)
}

func (s *Server) handleGameList(p *model.Player) {
	open := s.games.OpenGames(p.Tag)
	_ = p.Conn.WriteFrame(protocol.BuildResponse(func(w *protocol.Writer) {
		w.PutInt16(int16(len(open)))
		for _, g := range open {
			w.PutString(g.ID())
			w.PutString(g.Title())
			w.PutInt32(int32(g.Type()))
		}
	}))
}

// handleJoinFreeForAll announces the join before attempting it, like every
// other game notice, then transfers the player out of the registry.
func (s *Server) handleJoinFreeForAll(p *model.Player, r *protocol.Reader) {
	p.EntryMode = r.Int32()
	if r.Err() != nil {
		return
	}
	s.sendMessage(p.Name+" has joined F F A", p.Conn)
	if _, err := s.games.JoinFreeForAll(p); err != nil {
		s.logger.Error("free-for-all missing", slog.String("tag", p.Tag))
		return
	}
	s.transferOut(p.Tag)
}

// handleJoinGame validates the target and responds with a success boolean; on
// success the player is transferred out and the join is announced. A
// two-argument payload omits the team assignment.
func (s *Server) handleJoinGame(p *model.Player, r *protocol.Reader) {
	argc := r.Byte()
	id := r.String()
	if argc == 2 {
		p.Team = model.TeamNone
	} else {
		p.Team = model.TeamColor(r.Int32())
	}
	p.EntryMode = r.Int32()
	if r.Err() != nil {
		return
	}

	name := p.Name
	g, err := s.games.Join(p, id)
	if err != nil {
		_ = p.Conn.WriteFrame(protocol.BuildBoolResponse(false))
		return
	}
	_ = p.Conn.WriteFrame(protocol.BuildBoolResponse(true))
	s.sendMessage(name+" has joined a "+g.Title(), p.Conn)
	s.transferOut(p.Tag)
}

func (s *Server) handleChat(p *model.Player, r *protocol.Reader) {
	if r.Bool() {
		recipient := r.String()
		message := p.Name + " (private): " + r.String()
		if r.Err() != nil {
			return
		}
		s.sendPrivate(recipient, message)
		return
	}
	message := r.String()
	if r.Err() != nil {
		return
	}
	s.sendChatFromPlayer(p, message, protocol.MessageNormal)
}

// leaveRoom takes the player out of their current room: membership is removed
// first (deleting an emptied ephemeral room), the leaver is told to close
// their room UI when still connected, and the remaining members are notified.
// A player with no room is a silent no-op. Callers hold mu.
func (s *Server) leaveRoom(p *model.Player, notifyLeaver bool) {
	roomID := p.ChatRoomID
	if _, err := s.rooms.Leave(p); err != nil {
		return
	}
	if notifyLeaver {
		_ = p.Conn.WriteFrame(protocol.BuildCommand(protocol.CmdLeaveChatRoom, nil))
	}
	s.announceToRoom(roomID, p.Name+" has left the room!", protocol.MessageLeaveRoom, "")
	s.sendToRoom(roomID, protocol.BuildCommand(protocol.CmdRemoveMember, func(w *protocol.Writer) {
		w.PutString(p.Tag)
	}))
}

// transferOut removes a player from the registry without closing their
// connection, for hand-off into a game session. Callers hold mu.
func (s *Server) transferOut(tag string) {
	if _, ok := s.registry[tag]; !ok {
		return
	}
	delete(s.registry, tag)
	for i, o := range s.order {
		if o == tag {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.structChanged = true
}
