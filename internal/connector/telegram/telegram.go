package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/river-app/river/internal/connector"
)

// Transcriber turns a voice note into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Config holds Telegram connector configuration.
type Config struct {
	Token       string      // Bot token from @BotFather
	AllowFrom   []int64     // Allowed Telegram user IDs (empty = allow all)
	Transcriber Transcriber // Optional; voice notes are ignored without one
	APIEndpoint string      // Optional Bot API endpoint format, default tgbotapi.APIEndpoint
}

// Connector implements the connector.Connector interface for Telegram.
type Connector struct {
	bot     *tgbotapi.BotAPI
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup // in-flight handleUpdate calls
}

var helpText = strings.Join([]string{
	"Available commands:",
	"/new - Start a new conversation",
	"/refill - Request a water refill",
	"/pickup - Request a laundry pickup",
	"/status - Show water level and open requests",
	"/help - Show this help message",
	"",
	"Or just send me a message (text or voice) to chat with River!",
}, "\n")

// New creates a new Telegram connector.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Connector{
		bot:     bot,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until context is cancelled
// and every update already being handled has finished.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := c.bot.GetUpdatesChan(u)

	c.logger.Info("telegram connector started", "bot", c.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			// Replies can take a while to stream; don't hold up the poll loop.
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.handleUpdate(ctx, update)
			}()

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.wg.Wait()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers a message to a Telegram chat.
func (c *Connector) Send(_ context.Context, msg connector.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat_id %q: %w", msg.ChatID, err)
	}

	if strings.TrimSpace(msg.Content) == "" {
		c.logger.Warn("skipping empty message", "chat_id", msg.ChatID)
		return nil
	}

	tgMsg := tgbotapi.NewMessage(chatID, MarkdownToTelegramHTML(msg.Content))
	tgMsg.ParseMode = tgbotapi.ModeHTML
	tgMsg.DisableWebPagePreview = true

	_, err = c.bot.Send(tgMsg)
	if err != nil {
		c.logger.Warn("HTML send failed, falling back to plain text",
			"chat_id", msg.ChatID,
			"error", err,
		)
		tgMsg.Text = StripMarkdown(msg.Content)
		tgMsg.ParseMode = ""
		_, err = c.bot.Send(tgMsg)
	}
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

func (c *Connector) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if len(c.config.AllowFrom) > 0 && !slices.Contains(c.config.AllowFrom, userID) {
		c.logger.Warn("unauthorized user", "user_id", userID, "username", msg.From.UserName)
		return
	}

	var text string
	switch {
	case msg.IsCommand():
		if msg.Command() == "help" || msg.Command() == "start" {
			c.reply(ctx, chatID, helpText)
			return
		}
		text = "/" + msg.Command()
		if args := msg.CommandArguments(); args != "" {
			text += " " + args
		}
	case msg.Text != "":
		text = msg.Text
	case msg.Caption != "":
		text = msg.Caption
	case msg.Voice != nil || msg.Audio != nil:
		if c.config.Transcriber == nil {
			c.reply(ctx, chatID, "Voice messages aren't set up yet. Please type your message.")
			return
		}
		transcribed, err := c.transcribeVoice(ctx, msg)
		if err != nil {
			c.logger.Error("voice transcription failed", "chat_id", chatID, "error", err)
			c.reply(ctx, chatID, "Sorry, I couldn't transcribe that voice message.")
			return
		}
		text = transcribed
	}

	if strings.TrimSpace(text) == "" {
		return
	}

	c.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	inbound := connector.InboundMessage{
		Channel:  "telegram",
		SenderID: strconv.FormatInt(userID, 10),
		ChatID:   strconv.FormatInt(chatID, 10),
		Content:  text,
	}

	answer, err := c.handler(ctx, inbound)
	if err != nil {
		c.logger.Error("inbound handler error", "chat_id", chatID, "error", err)
	}
	if answer != "" {
		c.reply(ctx, chatID, answer)
	}
}

func (c *Connector) reply(ctx context.Context, chatID int64, text string) {
	out := connector.OutboundMessage{ChatID: strconv.FormatInt(chatID, 10), Content: text}
	if err := c.Send(ctx, out); err != nil {
		c.logger.Error("telegram reply failed", "chat_id", chatID, "error", err)
	}
}
