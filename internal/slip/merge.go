package slip

// ApplyTextFallback overlays AI free-text extraction onto a candidate built
// by the deterministic extractor. The AI layer only fills fields the
// deterministic layer left unset; it never overrides a deterministic match.
func ApplyTextFallback(c Candidate, ai *SlipAnalysis) Candidate {
	if ai == nil {
		return c
	}
	if c.DepositAmount == 0 && ai.Amount != 0 {
		c.DepositAmount = ai.Amount
	}
	if c.Currency == "" && ai.Currency != "" {
		if normalized := NormalizeCurrency(ai.Currency); normalized != "" {
			c.Currency = normalized
		}
	}
	if c.CustomerName == "" {
		c.CustomerName = ai.CustomerName
	}
	if c.ReceivingAccountName == "" {
		c.ReceivingAccountName = ai.ReceivingAccountName
	}
	if c.ReceivingAccountNumber == "" {
		c.ReceivingAccountNumber = ai.ReceivingAccountNumber
	}
	if c.BankName == "" {
		c.BankName = ai.BankName
	}
	if c.DepositDate == "" {
		c.DepositDate = ai.Date
	}
	if c.MaintenanceDays == 0 {
		c.MaintenanceDays = ai.MaintenanceDays
	}
	return c
}

// ApplyEvidence overlays visual transfer evidence (receipt image or transfer
// document) onto the candidate. Amount and currency from evidence are
// authoritative and always overwrite; recipient name, account number, bank
// name, and date only fill in when still unset. The asymmetry reflects that
// amount and currency read most reliably off a slip, while narrative text is
// usually more reliable for names.
func ApplyEvidence(c Candidate, ev *TransferEvidence) Candidate {
	if ev == nil {
		return c
	}
	if ev.Amount != 0 {
		c.DepositAmount = ev.Amount
	}
	if ev.Currency != "" {
		if normalized := NormalizeCurrency(ev.Currency); normalized != "" {
			c.Currency = normalized
		}
	}
	if ev.RecipientName != "" && c.ReceivingAccountName == "" {
		c.ReceivingAccountName = ev.RecipientName
	}
	if ev.AccountNumber != "" {
		if c.ReceivingAccountNumber == "" {
			c.ReceivingAccountNumber = ev.AccountNumber
		}
		if c.BankAccount == "" {
			c.BankAccount = ev.AccountNumber
		}
	}
	if ev.BankName != "" && c.BankName == "" {
		c.BankName = ev.BankName
	}
	if ev.Date != "" && c.DepositDate == "" {
		c.DepositDate = ev.Date
	}
	return c
}

// ApplyIdentity writes identity-document fields onto the candidate. Identity
// evidence owns the customer fields and overwrites whatever the text layers
// guessed.
func ApplyIdentity(c Candidate, info IdentityInfo) Candidate {
	if info.Name != "" {
		c.CustomerName = info.Name
	}
	if info.Age != 0 {
		c.CustomerAge = info.Age
	}
	if info.Nationality != "" {
		c.CustomerNationality = info.Nationality
	}
	return c
}
