package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/slipledger/slipbot/internal/token"
)

// NewLedgerLinkHandler handles the 查账 command by issuing a signed
// read-only dashboard link valid for 24 hours.
func NewLedgerLinkHandler(deps HandlerDeps) tgbot.HandlerFunc {
	log := deps.Logger.With("handler", "ledger_link")

	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		chatID := update.Message.Chat.ID
		messageID := update.Message.ID

		tok, err := deps.Tokens.Issue(time.Now(), token.DefaultTTL)
		if err != nil {
			log.ErrorContext(ctx, "Failed to issue read-only token", "error", err)
			sendHTMLReply(ctx, b, log, chatID, messageID, fmt.Sprintf("❌ 生成链接失败: %s", err))
			return
		}

		viewURL := fmt.Sprintf("%s/ReadOnlyView?token=%s",
			strings.TrimSuffix(deps.Config.Telegram.AppURL, "/"), tok)

		text := "🔐 <b>账目查看链接已生成</b>\n\n" +
			"📋 点击下方链接查看账目（只读模式）：\n" + viewURL + "\n\n" +
			"⏰ 链接有效期：<b>24小时</b>\n" +
			"🔒 此链接仅供查看，无法修改任何数据"

		sendHTMLReply(ctx, b, log, chatID, messageID, text)
		log.InfoContext(ctx, "Issued read-only ledger link", "chat_id", chatID)
	}
}
