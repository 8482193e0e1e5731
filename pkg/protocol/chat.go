package protocol

import "time"

// Role identifies the author of a chat log entry.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// ChatMessage is one entry in a conversation log as shown to the user.
// Only the most recent model entry changes after it is appended, while
// its response is still streaming.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
