package rooms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/flightlobby/internal/dependencies/mocks"
	"github.com/mcoot/flightlobby/internal/model"
	"github.com/mcoot/flightlobby/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	random  *mocks.MockRandom
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.random = mocks.NewMockRandom()
	s.service = New(s.random, testutil.NopLogger())
}

func (s *ServiceSuite) createPlayer(tag, name string) *model.Player {
	return model.NewPlayer(tag, name, false, nil, time.Time{})
}

// Seed tests

func (s *ServiceSuite) TestSeedCreatesPermanentRooms() {
	s.service.Seed()

	rooms := s.service.List()
	s.Require().Len(rooms, 3)
	s.Equal("Foo Bar", rooms[0].FriendlyName)
	s.Equal("For Your Kids", rooms[1].FriendlyName)
	s.Equal("Admins", rooms[2].FriendlyName)

	s.True(rooms[0].AlwaysOpen())
	s.Equal(model.RoomOpen, rooms[0].Type)
	s.Equal(model.RoomPassword, rooms[2].Type)
	s.True(s.service.IsPassworded(rooms[2].ID))
}

func (s *ServiceSuite) TestSeededAdminsPasswordMatches() {
	s.service.Seed()

	admins := s.service.List()[2]
	s.NoError(bcrypt.CompareHashAndPassword([]byte(admins.PasswordHash), []byte("adminsrule")))
}

// Create tests

func (s *ServiceSuite) TestCreateMovesCreatorIn() {
	s.random.QueueIntn(2)
	s.random.QueueString("AB3")
	creator := s.createPlayer("p1", "Alice")

	room, err := s.service.Create("Hangar", creator, "")
	s.Require().NoError(err)

	s.Equal("AB3", room.ID)
	s.Equal("AB3", creator.ChatRoomID)
	s.True(room.Has("p1"))
	s.False(room.AlwaysOpen())
}

func (s *ServiceSuite) TestCreateWithPasswordHashesIt() {
	creator := s.createPlayer("p1", "Alice")

	room, err := s.service.Create("Secret", creator, "hunter2")
	s.Require().NoError(err)

	s.Equal(model.RoomPassword, room.Type)
	s.NotEqual("hunter2", room.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte("hunter2")))
}

func (s *ServiceSuite) TestCreateClosedMovesBothPlayersIn() {
	first := s.createPlayer("p1", "Alice")
	second := s.createPlayer("p2", "Bob")

	room := s.service.CreateClosed(first, second)

	s.Equal(model.RoomClosed, room.Type)
	s.Equal(room.ID, first.ChatRoomID)
	s.Equal(room.ID, second.ChatRoomID)
}

func (s *ServiceSuite) TestIDsAreUnique() {
	// Force a collision on the first draw for the second room.
	s.random.QueueIntn(0, 0, 0)
	s.random.QueueString("AA", "AA", "BB")

	first, err := s.service.Create("One", nil, "")
	s.Require().NoError(err)
	second, err := s.service.Create("Two", nil, "")
	s.Require().NoError(err)

	s.Equal("AA", first.ID)
	s.Equal("BB", second.ID)
}

// Join tests

func (s *ServiceSuite) TestJoinOpenRoom() {
	s.service.Seed()
	fooBar := s.service.List()[0]
	p := s.createPlayer("p1", "Alice")

	s.Require().NoError(s.service.Join(p, fooBar.ID, ""))
	s.Equal(fooBar.ID, p.ChatRoomID)
	s.True(fooBar.Has("p1"))
}

func (s *ServiceSuite) TestJoinWrongPassword() {
	s.service.Seed()
	admins := s.service.List()[2]
	p := s.createPlayer("p1", "Alice")

	err := s.service.Join(p, admins.ID, "wrong")
	s.ErrorIs(err, model.ErrWrongPassword)
	s.Empty(p.ChatRoomID)
	s.False(admins.Has("p1"))
}

func (s *ServiceSuite) TestJoinRightPassword() {
	s.service.Seed()
	admins := s.service.List()[2]
	p := s.createPlayer("p1", "Alice")

	s.Require().NoError(s.service.Join(p, admins.ID, "adminsrule"))
	s.True(admins.Has("p1"))
}

func (s *ServiceSuite) TestJoinMissingRoom() {
	p := s.createPlayer("p1", "Alice")
	s.ErrorIs(s.service.Join(p, "nope", ""), model.ErrRoomNotFound)
}

// Leave tests

func (s *ServiceSuite) TestLeaveWithNoRoomIsANoOp() {
	p := s.createPlayer("p1", "Alice")
	_, err := s.service.Leave(p)
	s.ErrorIs(err, model.ErrNotInRoom)
}

func (s *ServiceSuite) TestLeaveDeletesEmptiedRoom() {
	creator := s.createPlayer("p1", "Alice")
	room, err := s.service.Create("Hangar", creator, "")
	s.Require().NoError(err)

	left, err := s.service.Leave(creator)
	s.Require().NoError(err)
	s.Equal(room.ID, left.ID)
	s.Empty(creator.ChatRoomID)

	_, ok := s.service.Get(room.ID)
	s.False(ok, "emptied ephemeral room must be deleted")
}

func (s *ServiceSuite) TestLeaveKeepsAlwaysOpenRoom() {
	s.service.Seed()
	fooBar := s.service.List()[0]
	p := s.createPlayer("p1", "Alice")
	s.Require().NoError(s.service.Join(p, fooBar.ID, ""))

	_, err := s.service.Leave(p)
	s.Require().NoError(err)

	_, ok := s.service.Get(fooBar.ID)
	s.True(ok, "seeded room must survive emptying")
}

func (s *ServiceSuite) TestClosedRoomLifecycle() {
	first := s.createPlayer("p1", "Alice")
	second := s.createPlayer("p2", "Bob")
	room := s.service.CreateClosed(first, second)

	_, err := s.service.Leave(first)
	s.Require().NoError(err)
	_, ok := s.service.Get(room.ID)
	s.True(ok, "closed room survives until both have left")

	_, err = s.service.Leave(second)
	s.Require().NoError(err)
	_, ok = s.service.Get(room.ID)
	s.False(ok)
}
