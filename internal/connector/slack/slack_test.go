package slackconn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"

	"github.com/slack-go/slack/slackevents"

	"github.com/river-app/river/internal/connector"
)

func TestStripMention(t *testing.T) {
	tests := []struct {
		input string
		botID string
		want  string
	}{
		{"<@U123> hello", "U123", "hello"},
		{"hey <@U123> there", "U123", "hey  there"},
		{"no mention here", "U123", "no mention here"},
		{"<@U999> hello", "U123", "<@U999> hello"},
	}

	for _, tt := range tests {
		got := StripMention(tt.input, tt.botID)
		if got != tt.want {
			t.Errorf("StripMention(%q, %q) = %q, want %q", tt.input, tt.botID, got, tt.want)
		}
	}
}

func TestIsAllowedChannel(t *testing.T) {
	c := &Connector{config: Config{Channels: []string{"C001", "C002"}}}

	if !c.isAllowedChannel("C001") {
		t.Error("C001 should be allowed")
	}
	if !c.isAllowedChannel("C002") {
		t.Error("C002 should be allowed")
	}
	if c.isAllowedChannel("C999") {
		t.Error("C999 should not be allowed")
	}
}

func TestIsAllowedChannel_Empty(t *testing.T) {
	c := &Connector{config: Config{}}

	if !c.isAllowedChannel("anything") {
		t.Error("empty channels list should allow all")
	}
}

func TestConnectorName(t *testing.T) {
	c := &Connector{}
	if c.Name() != "slack" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestThreadChatID(t *testing.T) {
	if got := threadChatID("C1", ""); got != "C1" {
		t.Errorf("threadChatID without thread = %q", got)
	}
	if got := threadChatID("C1", "171.5"); got != "C1:171.5" {
		t.Errorf("threadChatID with thread = %q", got)
	}
}

func TestNew_RequiresTokens(t *testing.T) {
	if _, err := New(Config{AppToken: "xapp"}, nil, nil); err == nil {
		t.Error("expected error without bot token")
	}
	if _, err := New(Config{BotToken: "xoxb"}, nil, nil); err == nil {
		t.Error("expected error without app token")
	}
}

type posted struct {
	channel, text, thread string
}

// fakeSlackAPI answers auth.test and chat.postMessage.
type fakeSlackAPI struct {
	mu    sync.Mutex
	posts []posted
}

func (f *fakeSlackAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	switch path.Base(r.URL.Path) {
	case "auth.test":
		w.Write([]byte(`{"ok":true,"user":"river","user_id":"UBOT","team":"home"}`))
	case "chat.postMessage":
		f.mu.Lock()
		f.posts = append(f.posts, posted{r.FormValue("channel"), r.FormValue("text"), r.FormValue("thread_ts")})
		f.mu.Unlock()
		w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.1"}`))
	default:
		w.Write([]byte(`{"ok":false,"error":"unknown_method"}`))
	}
}

func (f *fakeSlackAPI) sent() []posted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]posted(nil), f.posts...)
}

func newTestConnector(t *testing.T, handler connector.InboundHandler) (*Connector, *fakeSlackAPI) {
	t.Helper()
	api := &fakeSlackAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := New(Config{BotToken: "xoxb-test", AppToken: "xapp-test", APIURL: srv.URL + "/"}, handler, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, api
}

func TestNew_ResolvesBotID(t *testing.T) {
	c, _ := newTestConnector(t, nil)
	if c.botID != "UBOT" {
		t.Errorf("botID = %q", c.botID)
	}
}

func TestDispatch_RepliesInThread(t *testing.T) {
	var got connector.InboundMessage
	c, api := newTestConnector(t, func(_ context.Context, msg connector.InboundMessage) (string, error) {
		got = msg
		return "**Refill** requested", nil
	})

	c.handleMention(context.Background(), &slackevents.AppMentionEvent{
		User:            "U1",
		Channel:         "C1",
		Text:            "<@UBOT> refill please",
		ThreadTimeStamp: "171.5",
	})

	if got.Content != "refill please" || got.ConversationID() != "slack:C1:171.5" {
		t.Fatalf("inbound = %+v", got)
	}
	sent := api.sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 post, got %d", len(sent))
	}
	if sent[0].channel != "C1" || sent[0].thread != "171.5" || sent[0].text != "*Refill* requested" {
		t.Errorf("post = %+v", sent[0])
	}
}

func TestHandleMessage_IgnoresBotsAndMentions(t *testing.T) {
	calls := 0
	c, _ := newTestConnector(t, func(context.Context, connector.InboundMessage) (string, error) {
		calls++
		return "", nil
	})

	ctx := context.Background()
	c.handleMessage(ctx, &slackevents.MessageEvent{BotID: "B1", User: "U1", Channel: "C1", Text: "hi"})
	c.handleMessage(ctx, &slackevents.MessageEvent{User: "UBOT", Channel: "C1", Text: "hi"})
	c.handleMessage(ctx, &slackevents.MessageEvent{User: "U1", Channel: "C1", Text: "hi", SubType: "message_changed"})
	c.handleMessage(ctx, &slackevents.MessageEvent{User: "U1", Channel: "C1", Text: "<@UBOT> hi"})
	if calls != 0 {
		t.Fatalf("handler called %d times for ignored messages", calls)
	}

	c.handleMessage(ctx, &slackevents.MessageEvent{User: "U1", Channel: "C1", Text: "hi"})
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
}

func TestSend_Channel(t *testing.T) {
	c, api := newTestConnector(t, nil)
	if err := c.Send(context.Background(), connector.OutboundMessage{ChatID: "C9", Content: "Pickup complete!"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := api.sent()
	if len(sent) != 1 || sent[0].channel != "C9" || sent[0].thread != "" {
		t.Errorf("post = %+v", sent)
	}
}
