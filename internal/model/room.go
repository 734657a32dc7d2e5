package model

// RoomType classifies a chat room. It is derived from how the room was
// constructed and never changes afterwards.
type RoomType int

const (
	// RoomOpen rooms accept anyone.
	RoomOpen RoomType = iota
	// RoomClosed rooms were created for exactly two participants and are
	// deleted once both have left. They never appear in room listings.
	RoomClosed
	// RoomPassword rooms accept anyone presenting the matching secret.
	RoomPassword
)

// ChatRoom is a chat room directory entry. Rooms are mutated only inside the
// tick loop's critical section, so the struct carries no lock.
type ChatRoom struct {
	// ID is a short alphanumeric code unique within the directory.
	ID string
	// FriendlyName is the display label; empty for host-created anonymous
	// two-party rooms.
	FriendlyName string
	Type         RoomType
	// PasswordHash is the bcrypt hash of the room secret, present only
	// for RoomPassword rooms.
	PasswordHash string

	members    []string
	alwaysOpen bool
}

// NewChatRoom creates a room. creatorTag may be empty for an always-open room
// seeded with no members; secondTag makes the room a two-party closed room;
// passwordHash makes it password-gated.
func NewChatRoom(id, friendlyName, creatorTag, secondTag, passwordHash string) *ChatRoom {
	r := &ChatRoom{
		ID:           id,
		FriendlyName: friendlyName,
		alwaysOpen:   true,
	}
	if creatorTag != "" {
		r.alwaysOpen = false
		r.members = append(r.members, creatorTag)
	}
	if secondTag != "" {
		r.members = append(r.members, secondTag)
		r.Type = RoomClosed
	}
	if passwordHash != "" {
		r.PasswordHash = passwordHash
		r.Type = RoomPassword
	}
	return r
}

// Add appends a member. Join order is preserved.
func (r *ChatRoom) Add(tag string) {
	r.members = append(r.members, tag)
}

// Remove deletes a member and reports whether the room should now be removed
// from the directory: true when a non-always-open room has emptied.
func (r *ChatRoom) Remove(tag string) bool {
	for i, m := range r.members {
		if m == tag {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	return !r.alwaysOpen && len(r.members) == 0
}

// Members returns the member tags in join order. The slice is shared; callers
// must not mutate it.
func (r *ChatRoom) Members() []string {
	return r.members
}

// Has reports whether tag is a member.
func (r *ChatRoom) Has(tag string) bool {
	for _, m := range r.members {
		if m == tag {
			return true
		}
	}
	return false
}

// AlwaysOpen reports whether the room survives emptying.
func (r *ChatRoom) AlwaysOpen() bool {
	return r.alwaysOpen
}
