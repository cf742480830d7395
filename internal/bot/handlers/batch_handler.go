package handlers

import (
	"context"
	"fmt"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const batchProcessingTimeout = 5 * time.Minute

// NewProcessBatchHandler handles /process_batch by re-analyzing recent
// unconsumed file messages in the chat and creating a transaction from them.
func NewProcessBatchHandler(deps HandlerDeps) tgbot.HandlerFunc {
	log := deps.Logger.With("handler", "process_batch")

	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		chatID := update.Message.Chat.ID
		messageID := update.Message.ID

		batchCtx, cancel := context.WithTimeout(ctx, batchProcessingTimeout)
		defer cancel()

		reply, err := deps.Pipeline.ProcessBatch(batchCtx, chatID)
		if err != nil {
			log.ErrorContext(ctx, "Batch processing failed", "chat_id", chatID, "error", err)
			reply = fmt.Sprintf("❌ 批量处理失败: %s", err)
		}

		sendHTMLReply(ctx, b, log, chatID, messageID, reply)
	}
}
