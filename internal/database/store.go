package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveArchivedMessage inserts a new archive record.
	SaveArchivedMessage(ctx context.Context, msg *ArchivedMessage) error

	// RecentArchivedInChat retrieves the most recent 'limit' archived messages
	// for a chat, newest first.
	RecentArchivedInChat(ctx context.Context, chatID int64, limit int) ([]ArchivedMessage, error)

	// UnprocessedFileMessages scans the most recent 'scanLimit' archive rows of
	// a chat and returns up to 'take' rows that carry attachments and have not
	// been consumed by a batch yet, newest first.
	UnprocessedFileMessages(ctx context.Context, chatID int64, scanLimit, take int) ([]ArchivedMessage, error)

	// FindArchived looks up an archived message by chat and Telegram message id.
	// Returns nil, nil when not found.
	FindArchived(ctx context.Context, chatID, messageID int64) (*ArchivedMessage, error)

	// MarkArchivedProcessed transitions the given archive rows to processed.
	MarkArchivedProcessed(ctx context.Context, ids []int64) error

	// SaveTransaction inserts a finalized transaction record.
	SaveTransaction(ctx context.Context, tx *Transaction) error

	// NextTransactionNumber allocates a human-readable transaction number
	// scoped to the given deposit date (YYYY-MM-DD).
	NextTransactionNumber(ctx context.Context, depositDate string) (string, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveArchivedMessage inserts a new archive record.
func (s *sqlxStore) SaveArchivedMessage(ctx context.Context, msg *ArchivedMessage) error {
	if msg == nil {
		return fmt.Errorf("cannot archive nil message")
	}
	if msg.ChatID == 0 {
		return fmt.Errorf("archived message must have a non-zero chat_id")
	}
	if msg.Direction == "" {
		msg.Direction = DirectionIncoming
	}
	if msg.Status == "" {
		msg.Status = ArchiveStatusUnread
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO archived_messages (
            created_at, chat_id, message_id, media_group_id, sender_name,
            content, file_ids, file_type, direction, category, tags, status, analysis
        ) VALUES (
            :created_at, :chat_id, :message_id, :media_group_id, :sender_name,
            :content, :file_ids, :file_type, :direction, :category, :tags, :status, :analysis
        );
    `

	result, err := s.db.NamedExecContext(ctx, query, msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error archiving message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
		return fmt.Errorf("failed to archive message (chat %d, message %d): %w", msg.ChatID, msg.MessageID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		msg.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after archiving message",
			"chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
	}

	s.logger.DebugContext(ctx, "Message archived", "chat_id", msg.ChatID, "message_id", msg.MessageID, "archive_id", msg.ID)
	return nil
}

// RecentArchivedInChat retrieves the most recent 'limit' archived messages for a chat.
func (s *sqlxStore) RecentArchivedInChat(ctx context.Context, chatID int64, limit int) ([]ArchivedMessage, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}
	if limit <= 0 {
		limit = 30
	} else if limit > 500 {
		limit = 500
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []ArchivedMessage
	query := `
        SELECT * FROM archived_messages
        WHERE chat_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &messages, query, chatID, limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Error getting recent archived messages", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get recent archived messages for chat %d: %w", chatID, err)
	}

	return messages, nil
}

// UnprocessedFileMessages returns recent archive rows with attachments still
// awaiting batch processing. The scan window is bounded so a long backlog
// never drags in old evidence.
func (s *sqlxStore) UnprocessedFileMessages(ctx context.Context, chatID int64, scanLimit, take int) ([]ArchivedMessage, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}
	if scanLimit <= 0 {
		scanLimit = 50
	}
	if take <= 0 {
		take = 10
	}

	var messages []ArchivedMessage
	query := `
        SELECT * FROM (
            SELECT * FROM archived_messages
            WHERE chat_id = ?
            ORDER BY created_at DESC, id DESC
            LIMIT ?
        )
        WHERE status IN (?, ?) AND file_ids != '[]' AND file_ids != ''
        ORDER BY created_at DESC, id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &messages, query,
		chatID, scanLimit, ArchiveStatusPendingBatch, ArchiveStatusUnread, take)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting unprocessed file messages", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get unprocessed file messages for chat %d: %w", chatID, err)
	}

	s.logger.DebugContext(ctx, "Fetched unprocessed file messages", "chat_id", chatID, "count", len(messages))
	return messages, nil
}

// FindArchived looks up an archived message by chat and Telegram message id.
func (s *sqlxStore) FindArchived(ctx context.Context, chatID, messageID int64) (*ArchivedMessage, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id cannot be zero")
	}

	var msg ArchivedMessage
	query := `
        SELECT * FROM archived_messages
        WHERE chat_id = ? AND message_id = ?
        ORDER BY created_at DESC
        LIMIT 1;
    `

	err := s.db.GetContext(ctx, &msg, query, chatID, messageID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error finding archived message", "chat_id", chatID, "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to find archived message %d in chat %d: %w", messageID, chatID, err)
	}

	return &msg, nil
}

// MarkArchivedProcessed transitions the given archive rows to processed status.
// Uses a transaction to ensure atomicity when updating multiple rows.
func (s *sqlxStore) MarkArchivedProcessed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for marking archive rows", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	query, args, err := sqlx.In(`UPDATE archived_messages SET status = ? WHERE id IN (?)`, ArchiveStatusProcessed, ids)
	if err != nil {
		return fmt.Errorf("failed to build query for marking archive rows: %w", err)
	}

	query = tx.Rebind(query)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking archive rows processed", "error", err)
		return fmt.Errorf("failed to mark archive rows processed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && int(affected) != len(ids) {
		s.logger.WarnContext(ctx, "Not all archive rows were marked processed",
			"requested", len(ids), "affected", affected)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Marked archive rows processed", "count", len(ids))
	return nil
}

// SaveTransaction inserts a finalized transaction record.
func (s *sqlxStore) SaveTransaction(ctx context.Context, record *Transaction) error {
	if record == nil {
		return fmt.Errorf("cannot save nil transaction")
	}
	if record.TransactionNumber == "" {
		return fmt.Errorf("transaction must have a transaction_number")
	}
	if record.Currency == "" {
		return fmt.Errorf("transaction must have a currency")
	}
	if record.DepositAmount < 0 {
		return fmt.Errorf("transaction deposit_amount must be non-negative, got %v", record.DepositAmount)
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.FundStatus == "" {
		record.FundStatus = FundStatusWaiting
	}
	if record.Source == "" {
		record.Source = "telegram"
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving record",
			"transaction_number", record.TransactionNumber, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	query := `
        INSERT INTO transactions (
            created_at, updated_at, transaction_number, customer_name, customer_age,
            customer_nationality, receiving_account_name, receiving_account_number,
            bank_name, bank_account, currency, deposit_amount, deposit_date,
            maintenance_days, maintenance_end_date, exchange_rate, commission_percentage,
            calculation_mode, remittance_count, transfer_fee, settlement_usdt,
            acceptance_usdt, fund_status, source, chat_id, message_id,
            id_card_file_id, transfer_receipt_file_id
        ) VALUES (
            :created_at, :updated_at, :transaction_number, :customer_name, :customer_age,
            :customer_nationality, :receiving_account_name, :receiving_account_number,
            :bank_name, :bank_account, :currency, :deposit_amount, :deposit_date,
            :maintenance_days, :maintenance_end_date, :exchange_rate, :commission_percentage,
            :calculation_mode, :remittance_count, :transfer_fee, :settlement_usdt,
            :acceptance_usdt, :fund_status, :source, :chat_id, :message_id,
            :id_card_file_id, :transfer_receipt_file_id
        );
    `

	result, err := tx.NamedExecContext(ctx, query, record)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving transaction",
			"transaction_number", record.TransactionNumber, "error", err)
		return fmt.Errorf("failed to save transaction %s: %w", record.TransactionNumber, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		record.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.InfoContext(ctx, "Transaction saved",
		"transaction_number", record.TransactionNumber,
		"deposit_amount", record.DepositAmount,
		"currency", record.Currency)
	return nil
}

// NextTransactionNumber allocates a date-scoped sequential number such as
// TX20240115-003. Concurrent webhook invocations can race on the count; the
// archive/transaction model deliberately carries no row locking.
func (s *sqlxStore) NextTransactionNumber(ctx context.Context, depositDate string) (string, error) {
	if depositDate == "" {
		return "", fmt.Errorf("deposit date cannot be empty")
	}

	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM transactions WHERE deposit_date = ?`, depositDate)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error counting transactions for numbering", "deposit_date", depositDate, "error", err)
		return "", fmt.Errorf("failed to count transactions for %s: %w", depositDate, err)
	}

	compact := strings.ReplaceAll(depositDate, "-", "")
	number := fmt.Sprintf("TX%s-%03d", compact, count+1)

	s.logger.DebugContext(ctx, "Allocated transaction number", "transaction_number", number)
	return number, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		s.logger.WarnContext(ctx, "Failed to set busy timeout", "error", err)
	}

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
