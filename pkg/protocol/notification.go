package protocol

import "time"

// Notification is a human-readable event message, shown to the user as a toast.
type Notification struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}
