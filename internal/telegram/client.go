package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	fileDownloadTimeout = 30 * time.Second
	sendMessageTimeout  = 10 * time.Second

	// maxFileSize caps attachment downloads; Telegram bot API files top out
	// at 20MB but slips and id photos are far smaller.
	maxFileSize = 10 * 1024 * 1024
)

// FileClient downloads Telegram file attachments by file id. It implements
// the pipeline's FileDownloader interface.
type FileClient struct {
	bot   *bot.Bot
	token string
	http  *http.Client
}

// NewFileClient creates a FileClient bound to a bot instance and its token.
func NewFileClient(b *bot.Bot, token string) *FileClient {
	return &FileClient{bot: b, token: token, http: http.DefaultClient}
}

// DownloadFile retrieves file data and detects its MIME type.
func (c *FileClient) DownloadFile(ctx context.Context, fileID string) (data []byte, mimeType string, err error) {
	if fileID == "" {
		return nil, "", fmt.Errorf("empty fileID provided")
	}
	if ctx.Err() != nil {
		return nil, "", fmt.Errorf("context cancelled before file download: %w", ctx.Err())
	}

	downloadCtx, cancel := context.WithTimeout(ctx, fileDownloadTimeout)
	defer cancel()

	fileObj, err := c.bot.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file: %w", err)
	}
	if fileObj.FilePath == "" {
		return nil, "", fmt.Errorf("empty file path returned from Telegram")
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", c.token, fileObj.FilePath)
	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxFileSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file data: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("received empty file data")
	}

	mimeType = http.DetectContentType(data)
	return data, mimeType, nil
}

// ArchiveFunc records an outgoing message after it has been sent.
type ArchiveFunc func(ctx context.Context, chatID, messageID int64, text string)

// Sender sends HTML-formatted messages and records each one through the
// archive hook. It implements the pipeline's Messenger interface.
type Sender struct {
	bot     *bot.Bot
	log     *slog.Logger
	archive ArchiveFunc
}

// NewSender creates a Sender. The archive hook may be nil.
func NewSender(b *bot.Bot, log *slog.Logger) *Sender {
	return &Sender{bot: b, log: log.With("component", "telegram_sender")}
}

// SetArchiveHook installs the outgoing-message archive callback. It exists
// as a setter because the pipeline that provides the hook is constructed
// after the sender.
func (s *Sender) SetArchiveHook(fn ArchiveFunc) {
	s.archive = fn
}

// SendHTML sends an HTML message, optionally as a reply.
func (s *Sender) SendHTML(ctx context.Context, chatID int64, text string, replyTo int64) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if replyTo > 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: int(replyTo)}
	}

	sent, err := s.bot.SendMessage(sendCtx, params)
	if err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}

	if s.archive != nil {
		s.archive(ctx, chatID, int64(sent.ID), text)
	}
	return nil
}
