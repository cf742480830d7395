package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Archive status lifecycle. Rows move unread → pending_batch → processed as
// batch commands consume them; outgoing rows are archived as read.
const (
	ArchiveStatusUnread       = "unread"
	ArchiveStatusPendingBatch = "pending_batch"
	ArchiveStatusProcessed    = "processed"
	ArchiveStatusRead         = "read"
)

// Archive direction values.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// FundStatusWaiting is the initial fund status of every persisted
// transaction. Later status changes happen outside this pipeline.
const FundStatusWaiting = "等待中"

// StringList is a []string stored as a JSON array in a TEXT column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// JSONMap is a free-form JSON object stored in a nullable TEXT column. It
// carries the per-message analysis payload on archived messages.
type JSONMap map[string]any

// Value implements driver.Valuer. A nil map is stored as SQL NULL.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis payload: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		if v == "" {
			*m = nil
			return nil
		}
		return json.Unmarshal([]byte(v), m)
	case []byte:
		if len(v) == 0 {
			*m = nil
			return nil
		}
		return json.Unmarshal(v, m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
}

// GetString returns the string value under key, or "" when absent.
func (m JSONMap) GetString(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// GetFloat returns the numeric value under key, or 0 when absent.
func (m JSONMap) GetFloat(key string) float64 {
	if m == nil {
		return 0
	}
	if f, ok := m[key].(float64); ok {
		return f
	}
	return 0
}

// ArchivedMessage is the immutable log record of every inbound and outbound
// chat message. Only the Status field is mutated after creation.
type ArchivedMessage struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	ChatID       int64      `db:"chat_id"`
	MessageID    int64      `db:"message_id"`
	MediaGroupID string     `db:"media_group_id"`
	SenderName   string     `db:"sender_name"`
	Content      string     `db:"content"`
	FileIDs      StringList `db:"file_ids"`
	FileType     string     `db:"file_type"`
	Direction    string     `db:"direction"`
	Category     string     `db:"category"`
	Tags         StringList `db:"tags"`
	Status       string     `db:"status"`
	Analysis     JSONMap    `db:"analysis"`
}

// Transaction is the finalized financial record created by the persister.
// Monetary invariants: deposit_amount >= 0; a zero exchange rate means
// the derived USDT fields are zero; maintenance_end_date is deposit_date
// plus maintenance_days; settlement_usdt is computed once at creation.
type Transaction struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	TransactionNumber      string        `db:"transaction_number"`
	CustomerName           string        `db:"customer_name"`
	CustomerAge            sql.NullInt64 `db:"customer_age"`
	CustomerNationality    string        `db:"customer_nationality"`
	ReceivingAccountName   string        `db:"receiving_account_name"`
	ReceivingAccountNumber string        `db:"receiving_account_number"`
	BankName               string        `db:"bank_name"`
	BankAccount            string        `db:"bank_account"`

	Currency             string  `db:"currency"`
	DepositAmount        float64 `db:"deposit_amount"`
	DepositDate          string  `db:"deposit_date"`
	MaintenanceDays      int     `db:"maintenance_days"`
	MaintenanceEndDate   string  `db:"maintenance_end_date"`
	ExchangeRate         float64 `db:"exchange_rate"`
	CommissionPercentage float64 `db:"commission_percentage"`
	CalculationMode      string  `db:"calculation_mode"`
	RemittanceCount      int     `db:"remittance_count"`
	TransferFee          float64 `db:"transfer_fee"`
	SettlementUSDT       float64 `db:"settlement_usdt"`
	AcceptanceUSDT       float64 `db:"acceptance_usdt"`
	FundStatus           string  `db:"fund_status"`

	Source                string `db:"source"`
	ChatID                int64  `db:"chat_id"`
	MessageID             int64  `db:"message_id"`
	IDCardFileID          string `db:"id_card_file_id"`
	TransferReceiptFileID string `db:"transfer_receipt_file_id"`
}
