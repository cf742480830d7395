package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slipledger/slipbot/internal/slip"
)

// ReanalyzeArchived re-runs image analysis on the first attachment of an
// archived message and returns the reply text describing the result.
func (p *Pipeline) ReanalyzeArchived(ctx context.Context, chatID, targetMessageID int64) (string, error) {
	row, err := p.store.FindArchived(ctx, chatID, targetMessageID)
	if err != nil {
		return "", fmt.Errorf("failed to look up archived message: %w", err)
	}
	if row == nil || len(row.FileIDs) == 0 {
		return "❌ 未找到该消息记录或该消息无文件", nil
	}

	fileID := row.FileIDs[0]
	data, mimeType, err := p.files.DownloadFile(ctx, fileID)
	if err != nil {
		p.log.WarnContext(ctx, "Failed to download file for reanalysis", "file_id", fileID, "error", err)
		return "❌ 重新分析失败，未识别到内容", nil
	}

	analysis, err := p.ai.AnalyzeImage(ctx, data, mimeType)
	if err != nil || analysis == nil {
		p.log.WarnContext(ctx, "Reanalysis failed", "file_id", fileID, "error", err)
		return "❌ 重新分析失败，未识别到内容", nil
	}

	payload := analysisPayload(analysis)
	if analysis.Kind != slip.KindIDCard {
		if ev := slip.EvidenceFromImage(analysis); ev != nil {
			payload = evidencePayload(ev)
		}
	}

	pretty, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render analysis result: %w", err)
	}

	return fmt.Sprintf("✅ <b>重新分析结果</b>\n<pre>%s</pre>", pretty), nil
}
