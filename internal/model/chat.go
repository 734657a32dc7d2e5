package model

import "time"

// ChatRecord is one line of the chat transcript. Transcript writes are a side
// effect of delivery, never a blocking dependency of it.
type ChatRecord struct {
	Time       time.Time `json:"time"`
	SenderTag  string    `json:"sender_tag,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	// Room is the friendly name of the room the message was scoped to, or
	// "Lobby" when it was lobby-wide.
	Room    string `json:"room"`
	Message string `json:"message"`
}
