package chat

import "errors"

var (
	// ErrBusy is returned when a send is already in flight.
	ErrBusy = errors.New("chat: a message is already being sent")
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrConfigMissing means no credential was configured for the chat service.
	ErrConfigMissing = errors.New("API key is missing. Please ensure it's configured in your environment.")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("chat: shell is closed")
)

// errorPrefix is prepended to every failure shown in the conversation log.
const errorPrefix = "Sorry, I encountered an issue. "
