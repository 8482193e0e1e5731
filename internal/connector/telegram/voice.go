package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram voice notes are capped at 20MB.
const maxVoiceBytes = 20 << 20

// transcribeVoice downloads a voice note or audio file and transcribes it.
func (c *Connector) transcribeVoice(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	var fileID, filename string
	switch {
	case msg.Voice != nil:
		fileID, filename = msg.Voice.FileID, "voice.ogg"
	case msg.Audio != nil:
		fileID, filename = msg.Audio.FileID, "audio.mp3"
		if msg.Audio.FileName != "" {
			filename = msg.Audio.FileName
		}
	default:
		return "", fmt.Errorf("no voice or audio in message")
	}

	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("get file URL: %w", err)
	}

	audio, err := downloadFile(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("download audio: %w", err)
	}

	text, err := c.config.Transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return text, nil
}

func downloadFile(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes))
}
