package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/river-app/river/internal/provider"
)

func newChatCmd(c *client) *cobra.Command {
	var (
		conversation string
		reset        bool
	)
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with River (interactive without a message)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/chat/" + url.PathEscape(conversation)
			out := cmd.OutOrStdout()

			if reset {
				if _, err := c.do(http.MethodDelete, path, nil); err != nil {
					return err
				}
			}
			if len(args) > 0 {
				return streamChat(c, path, strings.Join(args, " "), out)
			}

			fmt.Fprintln(out, "riverctl chat (type 'quit' to exit)")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					return nil
				}
				if err := streamChat(c, path, line, out); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				}
				fmt.Fprintln(out)
			}
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "app", "conversation ID")
	cmd.Flags().BoolVar(&reset, "new", false, "start a new conversation first")
	return cmd
}

// streamChat sends text and prints the reply as it streams in.
func streamChat(c *client, path, text string, out io.Writer) error {
	resp, err := c.sendStreaming(path+"/messages", map[string]string{"text": text})
	if err != nil {
		return err
	}
	stream := provider.NewStream(resp.Body, decodeChatEvent)
	defer stream.Close()

	for {
		frag, err := stream.Next()
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprint(out, frag)
	}
}

// sendStreaming posts without a client timeout; replies may take a while.
func (c *client) sendStreaming(path string, body any) (*http.Response, error) {
	hc := c.http
	if hc == nil {
		hc = &http.Client{}
	}
	resp, err := c.send(hc, http.MethodPost, path, body, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return resp, nil
}

// decodeChatEvent reads riverd's fragment, done and error events.
func decodeChatEvent(event string, data []byte) (string, bool, error) {
	switch event {
	case "fragment":
		var f struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &f); err != nil {
			return "", false, err
		}
		return f.Text, false, nil
	case "done":
		return "", true, nil
	case "error":
		var e struct {
			Error string `json:"error"`
		}
		json.Unmarshal(data, &e)
		return "", true, errors.New(e.Error)
	}
	return "", false, nil
}
