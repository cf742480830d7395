package handlers

import (
	"context"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/slipledger/slipbot/internal/pipeline"
)

const ingestTimeout = 5 * time.Minute

// NewIngestHandler is the default handler for all non-command messages. It
// feeds each message through the ingestion pipeline: archive, analyze, and
// create a transaction when the message carries a slip.
//
// deps is a pointer because the bot instance must exist before the pipeline
// can be built; main fills in deps.Pipeline before the bot starts receiving
// updates.
func NewIngestHandler(deps *HandlerDeps) tgbot.HandlerFunc {
	log := deps.Logger.With("handler", "ingest")

	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		msg := update.Message

		// Ignore the bot's own messages; outgoing traffic is archived by
		// the sender hook.
		if botInfo := deps.Config.Telegram.BotInfo; botInfo != nil && msg.From != nil && msg.From.ID == botInfo.ID {
			return
		}

		incoming := toIncomingMessage(msg)

		ingestCtx, cancel := context.WithTimeout(ctx, ingestTimeout)
		defer cancel()

		if err := deps.Pipeline.ProcessMessage(ingestCtx, incoming); err != nil {
			log.ErrorContext(ctx, "Message ingestion failed",
				"chat_id", incoming.ChatID, "message_id", incoming.MessageID, "error", err)
		}
	}
}

// toIncomingMessage converts a Telegram message into the pipeline's
// transport-independent form. Only the largest resolution of each photo is
// kept.
func toIncomingMessage(msg *models.Message) pipeline.IncomingMessage {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	incoming := pipeline.IncomingMessage{
		ChatID:       msg.Chat.ID,
		MessageID:    int64(msg.ID),
		MediaGroupID: msg.MediaGroupID,
		SenderName:   senderName(msg.From),
		Text:         text,
	}

	if len(msg.Photo) > 0 {
		incoming.PhotoFileIDs = []string{msg.Photo[len(msg.Photo)-1].FileID}
	}
	if msg.Document != nil {
		incoming.DocumentFileID = msg.Document.FileID
		incoming.DocumentName = msg.Document.FileName
	}

	return incoming
}
