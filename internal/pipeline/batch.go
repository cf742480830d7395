package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slipledger/slipbot/internal/slip"
)

// ProcessBatch re-analyzes recent unconsumed file messages in a chat,
// pairing the first identity document with the first transfer slip it finds,
// and creates one transaction from the pair. It returns the reply text to
// send back to the chat.
func (p *Pipeline) ProcessBatch(ctx context.Context, chatID int64) (string, error) {
	now := time.Now()
	log := p.log.With("chat_id", chatID)

	rows, err := p.store.UnprocessedFileMessages(ctx, chatID, p.cfg.BatchScanLimit, p.cfg.BatchTakeLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load batch candidates: %w", err)
	}
	if len(rows) == 0 {
		return "⚠️ 没有找到需要处理的文件消息。请确保先发送图片/文档，再发送 /process_batch", nil
	}

	p.reply(ctx, chatID, fmt.Sprintf("🔄 开始批量处理 %d 条消息...", len(rows)), 0)

	var identity slip.IdentityInfo
	var evidence *slip.TransferEvidence
	var idCardFileID, receiptFileID string

	for _, row := range rows {
		// Reuse the analysis captured at archive time before paying for a
		// fresh download and extraction.
		if evidence == nil {
			if ev := evidenceFromArchivePayload(row.Analysis); ev != nil {
				evidence = ev
				if len(row.FileIDs) > 0 {
					receiptFileID = row.FileIDs[0]
				}
				continue
			}
		}
		if identity.IsEmpty() && row.Analysis.GetString("image_type") == string(slip.KindIDCard) {
			identity = identityFromArchive(&row, now)
			if len(row.FileIDs) > 0 {
				idCardFileID = row.FileIDs[0]
			}
			continue
		}

		for _, fileID := range row.FileIDs {
			if !identity.IsEmpty() && evidence != nil {
				break
			}

			data, mimeType, err := p.files.DownloadFile(ctx, fileID)
			if err != nil {
				log.WarnContext(ctx, "Failed to download batch file, skipping", "file_id", fileID, "error", err)
				continue
			}

			analysis, err := p.ai.AnalyzeImage(ctx, data, mimeType)
			if err != nil {
				log.WarnContext(ctx, "Batch image analysis failed, trying document analysis", "file_id", fileID, "error", err)
				docAnalysis, docErr := p.ai.AnalyzeDocument(ctx, data, mimeType)
				if docErr != nil || docAnalysis == nil {
					continue
				}
				if evidence == nil {
					evidence = slip.EvidenceFromSlip(docAnalysis)
					receiptFileID = fileID
				}
				continue
			}

			log.DebugContext(ctx, "Batch file classified", "file_id", fileID, "image_type", analysis.Kind)
			if analysis.Kind == slip.KindIDCard {
				if identity.IsEmpty() {
					identity = slip.IdentityFromImage(analysis, now)
					idCardFileID = fileID
				}
			} else if evidence == nil {
				if ev := slip.EvidenceFromImage(analysis); ev != nil {
					evidence = ev
					receiptFileID = fileID
				}
			}
		}
	}

	if evidence == nil && identity.IsEmpty() {
		return "❌ 未能识别出有效的水单或证件信息。请重试或手动录入。", nil
	}

	var cand slip.Candidate
	cand = slip.ApplyEvidence(cand, evidence)
	cand = slip.ApplyIdentity(cand, identity)

	if !cand.HasMandatoryFields() {
		return "⚠️ 识别到的信息不完整（缺少金额或币种）。已尝试关联，但数据不足。", nil
	}

	// Rows arrive newest first; the oldest message of the batch anchors
	// the transaction's message id.
	anchorMessageID := rows[len(rows)-1].MessageID

	tx, err := p.createTransaction(ctx, cand, chatID, anchorMessageID, idCardFileID, receiptFileID, now)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction from batch: %w", err)
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	if err := p.store.MarkArchivedProcessed(ctx, ids); err != nil {
		log.WarnContext(ctx, "Failed to mark batch rows processed", "error", err)
	}

	log.InfoContext(ctx, "Batch processed",
		"rows", len(rows),
		"transaction_number", tx.TransactionNumber)

	var b strings.Builder
	b.WriteString("✅ <b>批量处理完成</b>\n\n")
	if !identity.IsEmpty() && evidence != nil {
		b.WriteString("🔗 <b>已自动关联证件与水单</b>\n")
		age := "?"
		if identity.Age > 0 {
			age = fmt.Sprintf("%d", identity.Age)
		}
		fmt.Fprintf(&b, "   证件: %s (%s岁)\n", identity.Name, age)
		fmt.Fprintf(&b, "   水单: %s %s\n\n", formatAmount(tx.DepositAmount), tx.Currency)
	} else {
		b.WriteString("⚠️ 未识别到证件，仅依据水单创建。\n\n")
	}
	fmt.Fprintf(&b, "📝 编号: <code>%s</code>\n", tx.TransactionNumber)
	fmt.Fprintf(&b, "💵 金额: %s %s\n", formatAmount(tx.DepositAmount), tx.Currency)
	if tx.CustomerName != "" && tx.CustomerName != "待完善" {
		fmt.Fprintf(&b, "👤 客户: %s\n", tx.CustomerName)
	}
	if tx.CustomerAge.Valid && tx.CustomerAge.Int64 >= elderlyAgeThreshold {
		fmt.Fprintf(&b, "⚠️ <b>高龄客户提醒</b> (%d岁)\n", tx.CustomerAge.Int64)
	}
	return b.String(), nil
}
