// Package rooms owns the chat room directory: creation, password gating,
// membership, and lifecycle. The service holds no lock of its own; all
// mutation happens inside the server tick loop's critical section.
package rooms

import (
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/flightlobby/internal/dependencies/random"
	"github.com/mcoot/flightlobby/internal/model"
)

// IDAlphabet is the characters used in room and game ids.
const IDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Seeded permanent rooms, created at bootstrap with no members.
var seedRooms = []struct {
	name     string
	password string
}{
	{name: "Foo Bar"},
	{name: "For Your Kids"},
	{name: "Admins", password: "adminsrule"},
}

// Service manages the chat room directory.
type Service struct {
	logger *slog.Logger
	random random.Random

	rooms map[string]*model.ChatRoom
	order []string
}

// New creates a new room Service.
func New(rnd random.Random, logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
		random: rnd,
		rooms:  make(map[string]*model.ChatRoom),
	}
}

// Seed creates the permanent always-open rooms. Called once at bootstrap.
func (s *Service) Seed() {
	for _, seed := range seedRooms {
		room, err := s.Create(seed.name, nil, seed.password)
		if err != nil {
			s.logger.Error("failed to seed room",
				slog.String("room", seed.name),
				slog.String("error", err.Error()))
			continue
		}
		s.logger.Info("seeded chat room",
			slog.String("id", room.ID),
			slog.String("name", room.FriendlyName))
	}
}

// Create registers a new room. With a creator the room is ephemeral and the
// creator is moved into it; with a non-empty password it is password-gated.
func (s *Service) Create(friendlyName string, creator *model.Player, password string) (*model.ChatRoom, error) {
	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hash = string(h)
	}

	creatorTag := ""
	if creator != nil {
		creatorTag = creator.Tag
	}

	room := model.NewChatRoom(s.newID(), friendlyName, creatorTag, "", hash)
	s.register(room)
	if creator != nil {
		creator.ChatRoomID = room.ID
	}
	return room, nil
}

// CreateClosed registers an anonymous two-party room for exactly the two
// given players and moves both into it.
func (s *Service) CreateClosed(first, second *model.Player) *model.ChatRoom {
	room := model.NewChatRoom(s.newID(), "", first.Tag, second.Tag, "")
	s.register(room)
	first.ChatRoomID = room.ID
	second.ChatRoomID = room.ID
	return room
}

// Get returns the room with the given id.
func (s *Service) Get(id string) (*model.ChatRoom, bool) {
	room, ok := s.rooms[id]
	return room, ok
}

// IsPassworded reports whether the room exists and requires a password. A
// missing room reports false so callers can fall through to a join failure.
func (s *Service) IsPassworded(id string) bool {
	room, ok := s.rooms[id]
	return ok && room.Type == model.RoomPassword
}

// Join validates the room and password and adds the player as a member. On a
// wrong password or missing room, membership is untouched.
func (s *Service) Join(p *model.Player, id, password string) error {
	room, ok := s.rooms[id]
	if !ok {
		return model.ErrRoomNotFound
	}
	if room.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				return model.ErrWrongPassword
			}
			return err
		}
	}
	room.Add(p.Tag)
	p.ChatRoomID = id
	return nil
}

// Leave removes the player from their current room, deleting the room when it
// empties (unless always open). Leaving with no current room is a no-op so a
// double-pressed leave control stays harmless. It returns the vacated room.
func (s *Service) Leave(p *model.Player) (*model.ChatRoom, error) {
	if p.ChatRoomID == "" {
		return nil, model.ErrNotInRoom
	}
	room, ok := s.rooms[p.ChatRoomID]
	if !ok {
		p.ChatRoomID = ""
		return nil, model.ErrRoomNotFound
	}
	if room.Remove(p.Tag) {
		s.remove(room.ID)
		s.logger.Debug("chat room deleted", slog.String("id", room.ID))
	}
	p.ChatRoomID = ""
	return room, nil
}

// List returns all rooms in creation order.
func (s *Service) List() []*model.ChatRoom {
	result := make([]*model.ChatRoom, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.rooms[id])
	}
	return result
}

// Count returns the number of rooms in the directory.
func (s *Service) Count() int {
	return len(s.rooms)
}

func (s *Service) register(room *model.ChatRoom) {
	s.rooms[room.ID] = room
	s.order = append(s.order, room.ID)
}

func (s *Service) remove(id string) {
	delete(s.rooms, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// newID generates a short alphanumeric id not already in the directory.
func (s *Service) newID() string {
	for {
		id := s.random.String(1+s.random.Intn(9), IDAlphabet)
		if id == "" {
			continue
		}
		if _, exists := s.rooms[id]; !exists {
			return id
		}
	}
}
