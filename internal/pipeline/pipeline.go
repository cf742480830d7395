// Package pipeline implements the message-driven transaction ingestion flow:
// attachment analysis, archiving, slip extraction, identity correlation, and
// transaction creation.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/slipledger/slipbot/internal/config"
	"github.com/slipledger/slipbot/internal/database"
	"github.com/slipledger/slipbot/internal/gemini"
	"github.com/slipledger/slipbot/internal/slip"
)

// FileDownloader fetches attachment bytes by Telegram file id, returning the
// raw data and its detected MIME type.
type FileDownloader interface {
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

// Messenger sends HTML-formatted chat messages. replyTo of zero sends a
// plain message instead of a reply.
type Messenger interface {
	SendHTML(ctx context.Context, chatID int64, text string, replyTo int64) error
}

// IncomingMessage is the transport-independent view of a chat message fed
// into the pipeline.
type IncomingMessage struct {
	ChatID       int64
	MessageID    int64
	MediaGroupID string
	SenderName   string
	Text         string

	// PhotoFileIDs holds one file id per photo, largest resolution.
	PhotoFileIDs   []string
	DocumentFileID string
	DocumentName   string
}

func (m *IncomingMessage) hasContent() bool {
	return m.Text != "" || len(m.PhotoFileIDs) > 0 || m.DocumentFileID != ""
}

// Pipeline wires the extraction layers together and owns the ingestion
// policy: what triggers processing, how evidence is merged, and which
// defaults are substituted at persistence time.
type Pipeline struct {
	store     database.Store
	ai        gemini.Client
	files     FileDownloader
	messenger Messenger

	cfg            config.PipelineConfig
	broadcastChats []int64
	log            *slog.Logger
}

// New creates a Pipeline.
func New(
	store database.Store,
	ai gemini.Client,
	files FileDownloader,
	messenger Messenger,
	cfg config.PipelineConfig,
	broadcastChats []int64,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		store:          store,
		ai:             ai,
		files:          files,
		messenger:      messenger,
		cfg:            cfg,
		broadcastChats: broadcastChats,
		log:            log.With("component", "pipeline"),
	}
}

// analyzedPhoto pairs a photo file id with its analysis. Analysis is nil
// when download or extraction failed; one bad photo never fails the message.
type analyzedPhoto struct {
	fileID   string
	analysis *slip.ImageAnalysis
}

func (p *Pipeline) analyzePhotos(ctx context.Context, fileIDs []string) []analyzedPhoto {
	results := make([]analyzedPhoto, len(fileIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		results[i].fileID = fileID
		g.Go(func() error {
			data, mimeType, err := p.files.DownloadFile(gctx, fileID)
			if err != nil {
				p.log.WarnContext(gctx, "Failed to download photo, skipping analysis", "file_id", fileID, "error", err)
				return nil
			}
			analysis, err := p.ai.AnalyzeImage(gctx, data, mimeType)
			if err != nil {
				p.log.WarnContext(gctx, "Photo analysis failed, skipping", "file_id", fileID, "error", err)
				return nil
			}
			results[i].analysis = analysis
			return nil
		})
	}
	_ = g.Wait() // workers swallow their own errors

	return results
}

// ProcessMessage runs the full ingestion flow for one inbound message:
// analyze attachments, archive, and create a transaction when the message
// carries transfer evidence or trigger keywords plus sufficient fields.
func (p *Pipeline) ProcessMessage(ctx context.Context, msg IncomingMessage) error {
	now := time.Now()
	log := p.log.With("chat_id", msg.ChatID, "message_id", msg.MessageID)

	// ── Attachment analysis ──
	photos := p.analyzePhotos(ctx, msg.PhotoFileIDs)

	var identity slip.IdentityInfo
	var evidence *slip.TransferEvidence
	var idCardFileID, receiptFileID string
	var idCardAnalysis *slip.ImageAnalysis

	for _, ph := range photos {
		if ph.analysis == nil {
			continue
		}
		log.DebugContext(ctx, "Photo classified", "file_id", ph.fileID, "image_type", ph.analysis.Kind)

		if ph.analysis.Kind == slip.KindIDCard {
			if idCardFileID == "" {
				idCardFileID = ph.fileID
				idCardAnalysis = ph.analysis
				identity = slip.IdentityFromImage(ph.analysis, now)
			}

			// A lone identity photo with no transaction context gets a
			// usage prompt instead of silent archiving. A caption that
			// already mentions a remittance suppresses the prompt.
			if len(msg.PhotoFileIDs) == 1 && msg.DocumentFileID == "" && !containsTransactionKeyword(msg.Text) {
				p.reply(ctx, msg.ChatID, buildKYCPrompt(identity.Name), msg.MessageID)
			}
			continue
		}

		if evidence == nil {
			if ev := slip.EvidenceFromImage(ph.analysis); ev != nil {
				evidence = ev
				receiptFileID = ph.fileID
			}
		}
	}

	// ── Document analysis ──
	if msg.DocumentFileID != "" && evidence == nil {
		data, mimeType, err := p.files.DownloadFile(ctx, msg.DocumentFileID)
		if err != nil {
			log.WarnContext(ctx, "Failed to download document", "file_id", msg.DocumentFileID, "error", err)
		} else {
			analysis, err := p.ai.AnalyzeDocument(ctx, data, mimeType)
			switch {
			case err != nil:
				log.WarnContext(ctx, "Document analysis failed", "file_name", msg.DocumentName, "error", err)
			case analysis != nil:
				evidence = slip.EvidenceFromSlip(analysis)
				receiptFileID = msg.DocumentFileID
			}
		}
	}

	// ── Archive ──
	archived := p.archiveIncoming(ctx, &msg, evidence, idCardAnalysis)

	// Media-group members arrive as separate updates; wait briefly so the
	// text caption and its sibling photos land in the archive before the
	// correlation scan below.
	if msg.MediaGroupID != "" && p.cfg.MediaGroupSettleDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.MediaGroupSettleDelay):
		}
	}

	if !msg.hasContent() {
		return nil
	}

	// ── Trigger decision ──
	hasKeywords := containsTriggerKeyword(msg.Text)
	if !hasKeywords && evidence == nil {
		log.DebugContext(ctx, "Message archived only, no transaction trigger")
		return nil
	}

	triggerReason := "检测到汇款关键词"
	if evidence != nil {
		triggerReason = "检测到转账单附件"
	}
	p.reply(ctx, msg.ChatID, fmt.Sprintf("🔄 %s，正在自动处理水单信息...", triggerReason), msg.MessageID)

	// ── Text extraction ──
	cand := slip.ParseText(msg.Text, now)
	if !cand.HasMandatoryFields() && utf8.RuneCountInString(msg.Text) > p.cfg.TextFallbackMinLen {
		log.DebugContext(ctx, "Deterministic extraction incomplete, trying AI text fallback")
		analysis, err := p.ai.ExtractSlipText(ctx, msg.Text)
		if err != nil {
			log.WarnContext(ctx, "AI text extraction failed, continuing with deterministic fields", "error", err)
		} else {
			cand = slip.ApplyTextFallback(cand, analysis)
		}
	}

	// ── Merge and correlate ──
	cand = slip.ApplyEvidence(cand, evidence)

	if identity.IsEmpty() {
		rows, err := p.store.RecentArchivedInChat(ctx, msg.ChatID, p.cfg.ArchiveScanLimit)
		if err != nil {
			log.WarnContext(ctx, "Identity correlation scan failed", "error", err)
		} else if match := matchIdentityArchive(rows, msg.MediaGroupID, now, p.cfg.IdentityLinkWindow); match != nil {
			log.InfoContext(ctx, "Linked earlier identity document", "linked_message_id", match.MessageID)
			identity = identityFromArchive(match, now)
			if idCardFileID == "" && len(match.FileIDs) > 0 {
				idCardFileID = match.FileIDs[0]
			}
		}
	}
	cand = slip.ApplyIdentity(cand, identity)

	if !cand.HasMandatoryFields() {
		p.reply(ctx, msg.ChatID, insufficientEvidenceMessage, msg.MessageID)
		return nil
	}

	// ── Persist ──
	tx, err := p.createTransaction(ctx, cand, msg.ChatID, msg.MessageID, idCardFileID, receiptFileID, now)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create transaction", "error", err)
		p.reply(ctx, msg.ChatID, fmt.Sprintf("❌ <b>录入失败</b>\n\n%s\n\n请联系管理员", err), msg.MessageID)
		return err
	}

	if archived != nil {
		if err := p.store.MarkArchivedProcessed(ctx, []int64{archived.ID}); err != nil {
			log.WarnContext(ctx, "Failed to mark archive row processed", "archive_id", archived.ID, "error", err)
		}
	}

	successMsg := buildSuccessMessage(tx)
	p.reply(ctx, msg.ChatID, successMsg, msg.MessageID)
	p.broadcast(ctx, msg.ChatID, successMsg)

	log.InfoContext(ctx, "Transaction created from message",
		"transaction_number", tx.TransactionNumber,
		"deposit_amount", tx.DepositAmount,
		"currency", tx.Currency)
	return nil
}

// archiveIncoming persists the inbound message to the archive. Archiving is
// best-effort; a storage failure is logged and the pipeline continues.
func (p *Pipeline) archiveIncoming(ctx context.Context, msg *IncomingMessage, evidence *slip.TransferEvidence, idCard *slip.ImageAnalysis) *database.ArchivedMessage {
	fileIDs := make(database.StringList, 0, len(msg.PhotoFileIDs)+1)
	fileIDs = append(fileIDs, msg.PhotoFileIDs...)
	if msg.DocumentFileID != "" {
		fileIDs = append(fileIDs, msg.DocumentFileID)
	}

	content := msg.Text
	if content == "" {
		if len(fileIDs) > 0 {
			content = "[文件消息]"
		} else {
			content = "[未知消息]"
		}
	}

	fileType := "text"
	switch {
	case msg.DocumentFileID != "":
		fileType = "document"
	case len(msg.PhotoFileIDs) > 0:
		fileType = "photo"
	}

	category, tags := classifyArchive(msg.Text, msg.DocumentFileID != "", len(msg.PhotoFileIDs))

	var analysis database.JSONMap
	switch {
	case evidence != nil:
		analysis = evidencePayload(evidence)
	case idCard != nil:
		analysis = analysisPayload(idCard)
	}

	record := &database.ArchivedMessage{
		ChatID:       msg.ChatID,
		MessageID:    msg.MessageID,
		MediaGroupID: msg.MediaGroupID,
		SenderName:   msg.SenderName,
		Content:      content,
		FileIDs:      fileIDs,
		FileType:     fileType,
		Direction:    database.DirectionIncoming,
		Category:     category,
		Tags:         tags,
		Status:       database.ArchiveStatusUnread,
		Analysis:     analysis,
	}

	if err := p.store.SaveArchivedMessage(ctx, record); err != nil {
		p.log.ErrorContext(ctx, "Failed to archive message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
		return nil
	}
	return record
}

// ArchiveOutgoing records a bot-sent message in the archive with read status.
func (p *Pipeline) ArchiveOutgoing(ctx context.Context, chatID, messageID int64, text string) {
	record := &database.ArchivedMessage{
		ChatID:     chatID,
		MessageID:  messageID,
		SenderName: "bot",
		Content:    text,
		FileType:   "text",
		Direction:  database.DirectionOutgoing,
		Category:   "other",
		Status:     database.ArchiveStatusRead,
	}
	if err := p.store.SaveArchivedMessage(ctx, record); err != nil {
		p.log.WarnContext(ctx, "Failed to archive outgoing message", "chat_id", chatID, "error", err)
	}
}

// evidencePayload renders transfer evidence as the archive analysis payload.
func evidencePayload(ev *slip.TransferEvidence) database.JSONMap {
	if ev == nil {
		return nil
	}
	return database.JSONMap{
		"image_type":     string(slip.KindTransferReceipt),
		"amount":         ev.Amount,
		"currency":       ev.Currency,
		"recipient_name": ev.RecipientName,
		"account_number": ev.AccountNumber,
		"bank_name":      ev.BankName,
		"transfer_date":  ev.Date,
	}
}

// createTransaction applies policy defaults to the merged candidate,
// allocates a transaction number, computes derived fields, and persists.
func (p *Pipeline) createTransaction(ctx context.Context, cand slip.Candidate, chatID, messageID int64, idCardFileID, receiptFileID string, now time.Time) (*database.Transaction, error) {
	rate := cand.ExchangeRate
	if rate <= 0 {
		rate = p.cfg.DefaultExchangeRate
	}
	commission := cand.CommissionPct
	if commission <= 0 {
		commission = p.cfg.DefaultCommissionPct
	}
	maintenanceDays := cand.MaintenanceDays
	if maintenanceDays <= 0 {
		maintenanceDays = p.cfg.DefaultMaintenanceDays
	}
	remittanceCount := cand.RemittanceCount
	if remittanceCount <= 0 {
		remittanceCount = 1
	}
	mode := cand.CalculationMode
	if mode == "" {
		mode = slip.ModeForward
	}

	depositDate := cand.DepositDate
	if depositDate == "" {
		depositDate = now.Format("2006-01-02")
	}
	endDate, err := maintenanceEndDate(depositDate, maintenanceDays)
	if err != nil {
		return nil, fmt.Errorf("invalid deposit date %q: %w", depositDate, err)
	}

	number, err := p.store.NextTransactionNumber(ctx, depositDate)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate transaction number: %w", err)
	}

	customerName := cand.CustomerName
	if customerName == "" {
		customerName = "待完善"
	}
	receivingName := cand.ReceivingAccountName
	if receivingName == "" {
		receivingName = "待完善"
	}
	receivingNumber := cand.ReceivingAccountNumber
	if receivingNumber == "" {
		receivingNumber = "待完善"
	}

	totals := slip.Calculate(cand.DepositAmount, rate, commission, p.cfg.DefaultTransferFeeUSDT)

	tx := &database.Transaction{
		TransactionNumber:      number,
		CustomerName:           customerName,
		CustomerAge:            nullableAge(cand.CustomerAge),
		CustomerNationality:    cand.CustomerNationality,
		ReceivingAccountName:   receivingName,
		ReceivingAccountNumber: receivingNumber,
		BankName:               cand.BankName,
		BankAccount:            cand.BankAccount,
		Currency:               cand.Currency,
		DepositAmount:          cand.DepositAmount,
		DepositDate:            depositDate,
		MaintenanceDays:        maintenanceDays,
		MaintenanceEndDate:     endDate,
		ExchangeRate:           rate,
		CommissionPercentage:   commission,
		CalculationMode:        mode,
		RemittanceCount:        remittanceCount,
		TransferFee:            p.cfg.DefaultTransferFeeUSDT,
		SettlementUSDT:         totals.SettlementUSDT,
		AcceptanceUSDT:         0,
		FundStatus:             database.FundStatusWaiting,
		Source:                 "telegram",
		ChatID:                 chatID,
		MessageID:              messageID,
		IDCardFileID:           idCardFileID,
		TransferReceiptFileID:  receiptFileID,
	}

	if err := p.store.SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func maintenanceEndDate(depositDate string, days int) (string, error) {
	d, err := time.Parse("2006-01-02", depositDate)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, 0, days).Format("2006-01-02"), nil
}

func nullableAge(age int) sql.NullInt64 {
	if age <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(age), Valid: true}
}

// reply sends an HTML reply and logs failures without propagating them;
// a chat delivery problem must not abort ingestion.
func (p *Pipeline) reply(ctx context.Context, chatID int64, text string, replyTo int64) {
	if err := p.messenger.SendHTML(ctx, chatID, text, replyTo); err != nil {
		p.log.WarnContext(ctx, "Failed to send reply", "chat_id", chatID, "error", err)
	}
}

// broadcast forwards text to the configured broadcast chats, skipping the
// originating chat.
func (p *Pipeline) broadcast(ctx context.Context, originChatID int64, text string) {
	for _, chatID := range p.broadcastChats {
		if chatID == originChatID {
			continue
		}
		if err := p.messenger.SendHTML(ctx, chatID, text, 0); err != nil {
			p.log.WarnContext(ctx, "Failed to broadcast message", "chat_id", chatID, "error", err)
		}
	}
}
