package pipeline

import (
	"time"

	"github.com/slipledger/slipbot/internal/database"
	"github.com/slipledger/slipbot/internal/slip"
)

// matchIdentityArchive scans recent archive rows (newest first, already
// chat-scoped) for an earlier identity-document message that should be linked
// to the current slip. A row matches when it carries an id-card analysis and
// either belongs to the same media group or falls within the trailing window.
func matchIdentityArchive(rows []database.ArchivedMessage, mediaGroupID string, now time.Time, window time.Duration) *database.ArchivedMessage {
	cutoff := now.Add(-window)
	for i := range rows {
		m := &rows[i]
		if m.Analysis.GetString("image_type") != string(slip.KindIDCard) {
			continue
		}
		if mediaGroupID != "" && m.MediaGroupID == mediaGroupID {
			return m
		}
		if !m.CreatedAt.Before(cutoff) {
			return m
		}
	}
	return nil
}

// identityFromArchive reconstructs identity fields from an archived id-card
// analysis payload.
func identityFromArchive(m *database.ArchivedMessage, now time.Time) slip.IdentityInfo {
	if m == nil || m.Analysis == nil {
		return slip.IdentityInfo{}
	}
	return slip.IdentityFromImage(&slip.ImageAnalysis{
		Kind:        slip.KindIDCard,
		Name:        m.Analysis.GetString("name"),
		BirthDate:   m.Analysis.GetString("birth_date"),
		Nationality: m.Analysis.GetString("nationality"),
	}, now)
}

// analysisPayload converts an image analysis into the JSON payload stored on
// the archive row, mirroring the structured extraction fields.
func analysisPayload(a *slip.ImageAnalysis) database.JSONMap {
	if a == nil {
		return nil
	}
	payload := database.JSONMap{"image_type": string(a.Kind)}
	switch a.Kind {
	case slip.KindIDCard:
		payload["name"] = a.Name
		payload["birth_date"] = a.BirthDate
		payload["nationality"] = a.Nationality
	default:
		payload["amount"] = a.Amount
		payload["currency"] = a.Currency
		payload["recipient_name"] = a.RecipientName
		payload["account_number"] = a.AccountNumber
		payload["bank_name"] = a.BankName
		payload["transfer_date"] = a.TransferDate
	}
	return payload
}

// evidenceFromArchivePayload rebuilds transfer evidence from an archived
// analysis payload, used when reprocessing archive rows in a batch.
func evidenceFromArchivePayload(m database.JSONMap) *slip.TransferEvidence {
	if m == nil || m.GetString("image_type") == string(slip.KindIDCard) {
		return nil
	}
	if m.GetFloat("amount") == 0 {
		return nil
	}
	return &slip.TransferEvidence{
		Amount:        m.GetFloat("amount"),
		Currency:      m.GetString("currency"),
		RecipientName: m.GetString("recipient_name"),
		AccountNumber: m.GetString("account_number"),
		BankName:      m.GetString("bank_name"),
		Date:          m.GetString("transfer_date"),
	}
}
