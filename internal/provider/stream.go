package provider

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

// DecodeFunc turns one SSE data payload into a text fragment. done reports
// that the provider signalled the end of the response.
type DecodeFunc func(event string, data []byte) (text string, done bool, err error)

// Stream is an incremental sequence of text fragments read from a
// server-sent events response.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	decode  DecodeFunc
	event   string
	done    bool

	closeOnce sync.Once
}

// PlainText treats every data payload as a literal fragment.
func PlainText(_ string, data []byte) (string, bool, error) {
	return string(data), false, nil
}

// NewStream wraps an SSE body. Providers outside this package use it to
// adapt other transports.
func NewStream(body io.ReadCloser, decode DecodeFunc) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Stream{body: body, scanner: sc, decode: decode}
}

// Next returns the next non-empty fragment, or io.EOF once the stream has ended.
func (s *Stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		switch {
		case len(line) == 0:
			s.event = ""
		case bytes.HasPrefix(line, []byte("event:")):
			s.event = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := bytes.TrimSpace(line[len("data:"):])
			text, done, err := s.decode(s.event, data)
			if err != nil {
				s.done = true
				return "", err
			}
			if done {
				s.done = true
				if text != "" {
					return text, nil
				}
				return "", io.EOF
			}
			if text != "" {
				return text, nil
			}
		}
	}
	s.done = true
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the underlying response body. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
