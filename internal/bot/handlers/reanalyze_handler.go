package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const reanalyzeTimeout = 2 * time.Minute

// NewReanalyzeHandler handles /reanalyze. The target message comes from the
// replied-to message, or from an explicit message id argument.
func NewReanalyzeHandler(deps HandlerDeps) tgbot.HandlerFunc {
	log := deps.Logger.With("handler", "reanalyze")

	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		msg := update.Message
		chatID := msg.Chat.ID

		var targetID int64
		switch {
		case msg.ReplyToMessage != nil:
			targetID = int64(msg.ReplyToMessage.ID)
		default:
			parts := strings.Fields(msg.Text)
			if len(parts) > 1 {
				id, err := strconv.ParseInt(parts[1], 10, 64)
				if err != nil {
					sendHTMLReply(ctx, b, log, chatID, msg.ID, fmt.Sprintf("⚠️ 无效的消息ID: %s", parts[1]))
					return
				}
				targetID = id
			}
		}

		if targetID == 0 {
			sendHTMLReply(ctx, b, log, chatID, msg.ID,
				"⚠️ 请回复一条带有图片的消息并发送 /reanalyze，或输入 /reanalyze [message_id]")
			return
		}

		sendHTMLReply(ctx, b, log, chatID, msg.ID, fmt.Sprintf("🔄 正在重新分析消息 %d...", targetID))

		reanalyzeCtx, cancel := context.WithTimeout(ctx, reanalyzeTimeout)
		defer cancel()

		reply, err := deps.Pipeline.ReanalyzeArchived(reanalyzeCtx, chatID, targetID)
		if err != nil {
			log.ErrorContext(ctx, "Reanalysis failed", "chat_id", chatID, "target_message_id", targetID, "error", err)
			reply = fmt.Sprintf("❌ 重新分析失败: %s", err)
		}

		sendHTMLReply(ctx, b, log, chatID, msg.ID, reply)
	}
}
