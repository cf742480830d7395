package slip

import (
	"strconv"
	"time"
)

// ImageKind classifies what an analyzed image shows.
type ImageKind string

// Image classification tags. Unknown or missing tags fold into KindOther
// rather than being treated as errors.
const (
	KindIDCard          ImageKind = "id_card"
	KindTransferReceipt ImageKind = "transfer_receipt"
	KindOther           ImageKind = "other"
)

// ImageAnalysis is the structured result of classifying and extracting a
// single image: identity fields when Kind is id_card, transfer fields when
// Kind is transfer_receipt.
type ImageAnalysis struct {
	Kind ImageKind

	// Identity fields.
	Name        string
	BirthDate   string // YYYY-MM-DD or bare YYYY
	Nationality string

	// Transfer fields.
	Amount        float64
	Currency      string
	RecipientName string
	AccountNumber string
	BankName      string
	TransferDate  string
}

// SlipAnalysis is the structured result of document or free-text extraction.
type SlipAnalysis struct {
	Currency               string
	Amount                 float64
	CustomerName           string
	ReceivingAccountName   string
	ReceivingAccountNumber string
	BankName               string
	Date                   string
	MaintenanceDays        int
}

// TransferEvidence is the unified field set contributed by visual transfer
// evidence (a receipt image or a transfer document) to the merge step.
type TransferEvidence struct {
	Amount        float64
	Currency      string
	RecipientName string
	AccountNumber string
	BankName      string
	Date          string
}

// EvidenceFromImage converts a transfer-receipt image analysis into merge
// evidence. Images classified id_card contribute no transfer evidence, and
// an unclassified image counts only when extraction found transfer-shaped
// fields; a random photo must not trigger processing.
func EvidenceFromImage(a *ImageAnalysis) *TransferEvidence {
	if a == nil || a.Kind == KindIDCard {
		return nil
	}
	if a.Kind != KindTransferReceipt && a.Amount == 0 {
		return nil
	}
	return &TransferEvidence{
		Amount:        a.Amount,
		Currency:      a.Currency,
		RecipientName: a.RecipientName,
		AccountNumber: a.AccountNumber,
		BankName:      a.BankName,
		Date:          a.TransferDate,
	}
}

// EvidenceFromSlip converts a document extraction into merge evidence.
func EvidenceFromSlip(a *SlipAnalysis) *TransferEvidence {
	if a == nil {
		return nil
	}
	return &TransferEvidence{
		Amount:        a.Amount,
		Currency:      a.Currency,
		RecipientName: a.ReceivingAccountName,
		AccountNumber: a.ReceivingAccountNumber,
		BankName:      a.BankName,
		Date:          a.Date,
	}
}

// IdentityInfo holds customer identity fields extracted from an
// identity-document image.
type IdentityInfo struct {
	Name        string
	Age         int
	Nationality string
}

// IsEmpty reports whether no identity field was extracted.
func (i IdentityInfo) IsEmpty() bool {
	return i.Name == "" && i.Age == 0 && i.Nationality == ""
}

// IdentityFromImage derives identity fields from an id-card analysis. Age is
// computed from the birth year relative to now.
func IdentityFromImage(a *ImageAnalysis, now time.Time) IdentityInfo {
	var info IdentityInfo
	if a == nil {
		return info
	}
	info.Name = a.Name
	info.Nationality = a.Nationality
	if len(a.BirthDate) >= 4 {
		if birthYear, err := strconv.Atoi(a.BirthDate[:4]); err == nil {
			info.Age = now.Year() - birthYear
		}
	}
	return info
}
