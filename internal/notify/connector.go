package notify

import (
	"context"

	"github.com/river-app/river/internal/connector"
	"github.com/river-app/river/pkg/protocol"
)

// Sender is the outbound half of a chat connector.
type Sender interface {
	Send(ctx context.Context, msg connector.OutboundMessage) error
}

// ConnectorSink forwards notifications to one chat on a connector.
type ConnectorSink struct {
	Sender Sender
	ChatID string
}

func (s ConnectorSink) Notify(ctx context.Context, n protocol.Notification) error {
	return s.Sender.Send(ctx, connector.OutboundMessage{ChatID: s.ChatID, Content: n.Text})
}
