package server

import (
	"math"

	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/protocol"
	"github.com/mcoot/flightlobby/internal/services/games"
	"github.com/mcoot/flightlobby/internal/testutil"
)

// command queues a command frame on the connection and runs a tick.
func (s *ServerSuite) command(conn *testutil.FakeConn, code byte, build func(w *protocol.Writer)) {
	conn.QueueFrame(protocol.BuildCommand(code, build))
	s.srv.tick()
}

// fooBarID returns the id of the seeded open room.
func (s *ServerSuite) fooBarID() string {
	return s.srv.rooms.List()[0].ID
}

func (s *ServerSuite) adminsID() string {
	return s.srv.rooms.List()[2].ID
}

func (s *ServerSuite) TestRequestAdmin() {
	_, conn := s.join("Maverick")

	s.command(conn, protocol.CmdRequestAdmin, nil)

	written := conn.Written()
	s.Require().Len(written, 1)
	s.Equal(protocol.BuildBoolResponse(false), written[0])
}

func (s *ServerSuite) TestSetMessageStoresDayMessageForAdmins() {
	p, conn := s.join("Viper")
	p.Admin = true

	s.command(conn, protocol.CmdSetMessage, func(w *protocol.Writer) {
		w.PutString("new pilots welcome")
	})

	s.Equal("new pilots welcome", s.srv.DayMessage())
}

func (s *ServerSuite) TestSetMessageIgnoredForNonAdmins() {
	_, conn := s.join("Maverick")

	s.command(conn, protocol.CmdSetMessage, func(w *protocol.Writer) {
		w.PutString("free valor at my website")
	})

	s.Empty(s.srv.DayMessage())
	s.Equal(1, s.srv.Snapshot().Players, "sender stays connected")
}

func (s *ServerSuite) TestViewChatRoomsExcludesClosedRooms() {
	first, _ := s.join("Alice")
	second, _ := s.join("Bob")
	s.srv.rooms.CreateClosed(first, second)

	_, conn := s.join("Carol")
	s.command(conn, protocol.CmdViewChatRooms, nil)

	written := conn.Written()
	s.Require().Len(written, 1)
	r := protocol.NewReader(written[0])
	count := r.Int16()
	s.Equal(int16(3), count, "only the seeded rooms are listed")

	names := map[string]bool{}
	for i := int16(0); i < count; i++ {
		_ = r.String() // id
		names[r.String()] = r.Bool()
	}
	s.Require().NoError(r.Err())
	s.False(names["Foo Bar"])
	s.False(names["For Your Kids"])
	s.True(names["Admins"], "Admins is password-gated")
}

func (s *ServerSuite) TestJoinChatRoomSuccess() {
	resident, residentConn := s.join("Goose")
	s.srv.mu.Lock()
	s.Require().NoError(s.srv.rooms.Join(resident, s.fooBarID(), ""))
	s.srv.mu.Unlock()

	_, conn := s.join("Maverick")
	s.command(conn, protocol.CmdJoinChatRoom, func(w *protocol.Writer) {
		w.PutString(s.fooBarID())
	})

	// The joiner's response carries the membership they joined.
	written := conn.Written()
	s.Require().Len(written, 1)
	r := protocol.NewReader(written[0])
	s.True(r.Bool())
	s.Require().Equal(int16(1), r.Int16())
	s.Equal(resident.Tag, r.String())
	s.Equal("Goose", r.String())
	s.Require().NoError(r.Err())

	// The resident hears about the joiner.
	s.Contains(s.chatFrames(residentConn), "Maverick has joined the room!")
	var sawAddMember bool
	for _, frame := range residentConn.Written() {
		rr := protocol.NewReader(frame)
		if rr.Byte() == protocol.MarkerCommand && rr.Byte() == protocol.CmdAddMember {
			_ = rr.String() // tag
			s.Equal("Maverick", rr.String())
			sawAddMember = true
		}
	}
	s.True(sawAddMember)
}

func (s *ServerSuite) TestJoinChatRoomWrongPassword() {
	p, conn := s.join("Maverick")

	s.command(conn, protocol.CmdJoinChatRoom, func(w *protocol.Writer) {
		w.PutString(s.adminsID())
		w.PutString("wrong")
	})

	written := conn.Written()
	s.Require().Len(written, 1)
	s.Equal(protocol.BuildBoolResponse(false), written[0])
	s.Empty(p.ChatRoomID)
}

func (s *ServerSuite) TestJoinChatRoomMissingRoom() {
	_, conn := s.join("Maverick")

	s.command(conn, protocol.CmdJoinChatRoom, func(w *protocol.Writer) {
		w.PutString("ZZZ")
	})

	written := conn.Written()
	s.Require().Len(written, 1)
	s.Equal(protocol.BuildBoolResponse(false), written[0])
}

func (s *ServerSuite) TestRoomChatScoping() {
	roomie, roomieConn := s.join("Goose")
	bystander, bystanderConn := s.join("Iceman")
	sender, senderConn := s.join("Maverick")

	s.srv.mu.Lock()
	s.Require().NoError(s.srv.rooms.Join(roomie, s.fooBarID(), ""))
	s.Require().NoError(s.srv.rooms.Join(sender, s.fooBarID(), ""))
	s.srv.mu.Unlock()

	s.command(senderConn, protocol.CmdChat, func(w *protocol.Writer) {
		w.PutBool(false)
		w.PutString("talk to me")
	})

	s.Contains(s.chatFrames(roomieConn), "Maverick: talk to me")
	s.Empty(s.chatFrames(bystanderConn), "lobby must not hear room chat")
	s.Empty(s.chatFrames(senderConn), "sender must not echo")
	_ = bystander
}

func (s *ServerSuite) TestLobbyChatExcludesSenderAndIsTranscribed() {
	_, listenerConn := s.join("Goose")
	sender, senderConn := s.join("Maverick")

	s.command(senderConn, protocol.CmdChat, func(w *protocol.Writer) {
		w.PutBool(false)
		w.PutString("anyone up for a match?")
	})

	s.Contains(s.chatFrames(listenerConn), "Maverick: anyone up for a match?")
	s.Empty(s.chatFrames(senderConn))

	records, err := s.store.ChatForDay(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	last := records[len(records)-1]
	s.Equal("Lobby", last.Room)
	s.Equal(sender.Tag, last.SenderTag)
	s.Equal("Maverick: anyone up for a match?", last.Message)
}

func (s *ServerSuite) TestPrivateChat() {
	target, targetConn := s.join("Goose")
	_, bystanderConn := s.join("Iceman")
	_, senderConn := s.join("Maverick")

	s.command(senderConn, protocol.CmdChat, func(w *protocol.Writer) {
		w.PutBool(true)
		w.PutString(target.Tag)
		w.PutString("rendezvous at angels 20")
	})

	s.Equal([]string{"Maverick (private): rendezvous at angels 20"}, s.chatFrames(targetConn))
	s.Empty(s.chatFrames(bystanderConn))
	s.Empty(s.chatFrames(senderConn))
}

func (s *ServerSuite) TestPrivateChatToUnknownTagIsANoOp() {
	_, senderConn := s.join("Maverick")

	s.command(senderConn, protocol.CmdChat, func(w *protocol.Writer) {
		w.PutBool(true)
		w.PutString("ghost-tag")
		w.PutString("hello?")
	})

	s.Empty(senderConn.Written())
	s.Equal(1, s.srv.Snapshot().Players)
}

func (s *ServerSuite) TestCreateChatRoomMovesCreator() {
	p, conn := s.join("Maverick")

	s.command(conn, protocol.CmdCreateChatRoom, func(w *protocol.Writer) {
		w.PutByte(0)
		w.PutString("Danger Zone")
	})

	s.Require().NotEmpty(p.ChatRoomID)
	room, ok := s.srv.rooms.Get(p.ChatRoomID)
	s.Require().True(ok)
	s.Equal("Danger Zone", room.FriendlyName)
	s.Contains(s.chatFrames(conn), "Room created")
}

func (s *ServerSuite) TestCreatePasswordedChatRoom() {
	p, conn := s.join("Maverick")

	s.command(conn, protocol.CmdCreateChatRoom, func(w *protocol.Writer) {
		w.PutByte(1)
		w.PutString("Officers")
		w.PutString("topgun")
	})

	room, ok := s.srv.rooms.Get(p.ChatRoomID)
	s.Require().True(ok)
	s.Equal(model.RoomPassword, room.Type)
	s.True(s.srv.rooms.IsPassworded(room.ID))
}

func (s *ServerSuite) TestLeaveChatRoomNotifiesEveryone() {
	roomie, roomieConn := s.join("Goose")
	leaver, leaverConn := s.join("Maverick")
	s.srv.mu.Lock()
	s.Require().NoError(s.srv.rooms.Join(roomie, s.fooBarID(), ""))
	s.Require().NoError(s.srv.rooms.Join(leaver, s.fooBarID(), ""))
	s.srv.mu.Unlock()

	s.command(leaverConn, protocol.CmdLeaveChatRoom, nil)

	s.Empty(leaver.ChatRoomID)
	s.Require().NotEmpty(leaverConn.Written())
	s.Equal(protocol.BuildCommand(protocol.CmdLeaveChatRoom, nil), leaverConn.Written()[0])
	s.Contains(s.chatFrames(roomieConn), "Maverick has left the room!")
}

func (s *ServerSuite) TestLeaveChatRoomWithoutRoomIsHarmless() {
	_, conn := s.join("Maverick")
	s.command(conn, protocol.CmdLeaveChatRoom, nil)
	s.Empty(conn.Written())
	s.Equal(1, s.srv.Snapshot().Players)
}

func (s *ServerSuite) TestGetStats() {
	p, conn := s.join("Maverick")
	p.Wins = 4
	p.Losses = 2
	p.Valor = 40

	s.command(conn, protocol.CmdGetStats, nil)

	written := conn.Written()
	s.Require().Len(written, 1)
	r := protocol.NewReader(written[0])
	s.Equal(int32(40), r.Int32())
	s.Equal(float32(2), r.Float32())
	s.Equal(int32(4), r.Int32())
	s.Equal(int32(2), r.Int32())
	s.Require().NoError(r.Err())
}

func (s *ServerSuite) TestGetStatsFreshRecordIsNaN() {
	_, conn := s.join("Maverick")

	s.command(conn, protocol.CmdGetStats, nil)

	r := protocol.NewReader(conn.Written()[0])
	r.Int32()
	s.True(math.IsNaN(float64(r.Float32())))
}

func (s *ServerSuite) TestWhoisMarksAdmins() {
	s.srv.SetAdminPolicy(func(callSign string) bool { return callSign == "Viper" })

	// Admin flag is derived at handshake time.
	adminConn := testutil.NewFakeConn()
	w := protocol.NewWriter()
	w.PutString("Viper")
	adminConn.QueueFrame(w.Bytes())
	s.srv.handshake(adminConn)
	s.srv.tick()

	_, conn := s.join("Maverick")
	s.command(conn, protocol.CmdWhois, nil)

	written := conn.Written()
	s.Require().Len(written, 1)
	r := protocol.NewReader(written[0])
	count := r.Int16()
	s.Equal(int16(2), count)
	names := map[string]bool{}
	for i := int16(0); i < count; i++ {
		_ = r.String() // tag
		names[r.String()] = true
	}
	s.Require().NoError(r.Err())
	s.True(names["Viper (GM)"])
	s.True(names["Maverick"])
}

func (s *ServerSuite) TestCreateGameTransfersCreator() {
	p, conn := s.join("Maverick")
	_, watcherConn := s.join("Goose")

	s.command(conn, protocol.CmdCreateGame, func(w *protocol.Writer) {
		w.PutByte(1)
		w.PutInt32(int32(games.GameTypeOneOnOne))
	})

	s.Equal(1, s.srv.Snapshot().Players, "creator left the lobby")
	s.Equal(2, s.srv.Snapshot().Games)
	s.True(p.Host)
	s.Equal(model.TeamNone, p.Team)

	var serverMessages []string
	for _, frame := range watcherConn.Written() {
		r := protocol.NewReader(frame)
		if r.Byte() == protocol.MarkerCommand && r.Byte() == protocol.CmdServerMessage {
			serverMessages = append(serverMessages, r.String())
		}
	}
	s.Contains(serverMessages, "Maverick Has created a new one on one match. The game is open to new players.")
}

func (s *ServerSuite) TestCreateTeamGameReadsTeam() {
	p, conn := s.join("Maverick")

	s.command(conn, protocol.CmdCreateGame, func(w *protocol.Writer) {
		w.PutByte(2)
		w.PutInt32(int32(games.GameTypeTeamDeath))
		w.PutInt32(int32(model.TeamRed))
	})

	s.Equal(model.TeamRed, p.Team)
	s.Equal(2, s.srv.Snapshot().Games)
}

func (s *ServerSuite) TestRequestGameListShowsOpenGames() {
	creator, creatorConn := s.join("Goose")
	s.command(creatorConn, protocol.CmdCreateGame, func(w *protocol.Writer) {
		w.PutByte(1)
		w.PutInt32(int32(games.GameTypeOneOnOne))
	})
	_ = creator

	_, conn := s.join("Maverick")
	s.command(conn, protocol.CmdRequestGameList, nil)

	written := conn.Written()
	s.Require().Len(written, 1)
	r := protocol.NewReader(written[0])
	s.Require().Equal(int16(1), r.Int16(), "free-for-all is never listed")
	s.NotEmpty(r.String())
	s.Equal("one on one match", r.String())
	s.Equal(int32(games.GameTypeOneOnOne), r.Int32())
	s.Require().NoError(r.Err())
}

func (s *ServerSuite) TestJoinFreeForAll() {
	p, conn := s.join("Maverick")
	_, watcherConn := s.join("Goose")

	s.command(conn, protocol.CmdJoinFreeForAll, func(w *protocol.Writer) {
		w.PutInt32(7)
	})

	s.Equal(1, s.srv.Snapshot().Players)
	s.Equal(int32(7), p.EntryMode)

	var serverMessages []string
	for _, frame := range watcherConn.Written() {
		r := protocol.NewReader(frame)
		if r.Byte() == protocol.MarkerCommand && r.Byte() == protocol.CmdServerMessage {
			serverMessages = append(serverMessages, r.String())
		}
	}
	s.Contains(serverMessages, "Maverick has joined F F A")
}

func (s *ServerSuite) TestJoinGameById() {
	creator, creatorConn := s.join("Goose")
	s.command(creatorConn, protocol.CmdCreateGame, func(w *protocol.Writer) {
		w.PutByte(1)
		w.PutInt32(int32(games.GameTypeOneOnOne))
	})
	_ = creator
	var gameID string
	for _, g := range s.srv.games.OpenGames("outsider") {
		gameID = g.ID()
	}
	s.Require().NotEmpty(gameID)

	p, conn := s.join("Maverick")
	s.command(conn, protocol.CmdJoinGame, func(w *protocol.Writer) {
		w.PutByte(2)
		w.PutString(gameID)
		w.PutInt32(0)
	})

	written := conn.Written()
	s.Require().NotEmpty(written)
	s.Equal(protocol.BuildBoolResponse(true), written[0])
	s.Equal(model.TeamNone, p.Team)
	s.Zero(s.srv.Snapshot().Players)
}

func (s *ServerSuite) TestJoinFullGameFails() {
	creator, creatorConn := s.join("Goose")
	s.command(creatorConn, protocol.CmdCreateGame, func(w *protocol.Writer) {
		w.PutByte(1)
		w.PutInt32(int32(games.GameTypeOneOnOne))
	})
	_ = creator
	var gameID string
	for _, g := range s.srv.games.OpenGames("outsider") {
		gameID = g.ID()
	}

	_, secondConn := s.join("Iceman")
	s.command(secondConn, protocol.CmdJoinGame, func(w *protocol.Writer) {
		w.PutByte(2)
		w.PutString(gameID)
		w.PutInt32(0)
	})

	_, thirdConn := s.join("Maverick")
	s.command(thirdConn, protocol.CmdJoinGame, func(w *protocol.Writer) {
		w.PutByte(2)
		w.PutString(gameID)
		w.PutInt32(0)
	})

	written := thirdConn.Written()
	s.Require().NotEmpty(written)
	s.Equal(protocol.BuildBoolResponse(false), written[0])
	s.Equal(1, s.srv.Snapshot().Players, "rejected player stays in the lobby")
}

func (s *ServerSuite) TestServerMessageBroadcast() {
	_, listenerConn := s.join("Goose")
	_, senderConn := s.join("Maverick")

	s.command(senderConn, protocol.CmdServerMessage, func(w *protocol.Writer) {
		w.PutString("tower, this is ghost rider")
	})

	s.Empty(senderConn.Written())
	var messages []string
	for _, frame := range listenerConn.Written() {
		r := protocol.NewReader(frame)
		if r.Byte() == protocol.MarkerCommand && r.Byte() == protocol.CmdServerMessage {
			messages = append(messages, r.String())
		}
	}
	s.Equal([]string{"tower, this is ghost rider"}, messages)
}

func (s *ServerSuite) TestDisconnectMe() {
	_, watcherConn := s.join("Goose")
	_, conn := s.join("Maverick")

	s.command(conn, protocol.CmdDisconnectMe, nil)

	s.Equal(1, s.srv.Snapshot().Players)
	s.False(conn.IsLive())
	s.Contains(s.chatFrames(watcherConn), "Maverick has left the server.")
}

func (s *ServerSuite) TestKeepAliveRecordsAreSkipped() {
	_, conn := s.join("Maverick")

	conn.QueueFrame([]byte{protocol.MarkerKeepAlive})
	s.srv.tick()

	s.Empty(conn.Written())
	s.Equal(1, s.srv.Snapshot().Players)
}

func (s *ServerSuite) TestMalformedFrameDropsConnection() {
	_, conn := s.join("Maverick")

	// A chat command whose string runs past the end of the frame.
	conn.QueueFrame([]byte{protocol.MarkerCommand, protocol.CmdChat, 0, 0xff})
	s.srv.tick()

	s.Zero(s.srv.Snapshot().Players)
	s.False(conn.IsLive())
}
