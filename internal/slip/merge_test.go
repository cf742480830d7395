package slip_test

import (
	"testing"
	"time"

	"github.com/slipledger/slipbot/internal/slip"
)

func TestApplyTextFallbackFillsOnlyUnset(t *testing.T) {
	t.Parallel()

	base := slip.Candidate{
		DepositAmount: 5000,
		Currency:      "USD美元",
		CustomerName:  "Zhang San",
	}
	ai := &slip.SlipAnalysis{
		Amount:               9999,
		Currency:             "EUR",
		CustomerName:         "Wrong Name",
		ReceivingAccountName: "Acme Trading Ltd",
		BankName:             "Deutsche Bank",
		Date:                 "2024-01-15",
		MaintenanceDays:      20,
	}

	got := slip.ApplyTextFallback(base, ai)

	if got.DepositAmount != 5000 {
		t.Errorf("DepositAmount = %v, want deterministic 5000 preserved", got.DepositAmount)
	}
	if got.Currency != "USD美元" {
		t.Errorf("Currency = %q, want deterministic USD美元 preserved", got.Currency)
	}
	if got.CustomerName != "Zhang San" {
		t.Errorf("CustomerName = %q, want deterministic Zhang San preserved", got.CustomerName)
	}
	if got.ReceivingAccountName != "Acme Trading Ltd" {
		t.Errorf("ReceivingAccountName = %q, want AI fill-in", got.ReceivingAccountName)
	}
	if got.BankName != "Deutsche Bank" {
		t.Errorf("BankName = %q, want AI fill-in", got.BankName)
	}
	if got.DepositDate != "2024-01-15" {
		t.Errorf("DepositDate = %q, want AI fill-in", got.DepositDate)
	}
	if got.MaintenanceDays != 20 {
		t.Errorf("MaintenanceDays = %d, want AI fill-in", got.MaintenanceDays)
	}
}

func TestApplyTextFallbackNormalizesCurrency(t *testing.T) {
	t.Parallel()

	got := slip.ApplyTextFallback(slip.Candidate{}, &slip.SlipAnalysis{Currency: "eur"})
	if got.Currency != "EUR欧元" {
		t.Errorf("Currency = %q, want EUR欧元", got.Currency)
	}

	got = slip.ApplyTextFallback(slip.Candidate{}, &slip.SlipAnalysis{Currency: "unknown-token"})
	if got.Currency != "" {
		t.Errorf("Currency = %q, want unset for unmappable token", got.Currency)
	}
}

func TestApplyTextFallbackNil(t *testing.T) {
	t.Parallel()

	base := slip.Candidate{DepositAmount: 100}
	if got := slip.ApplyTextFallback(base, nil); got != base {
		t.Errorf("ApplyTextFallback(base, nil) = %+v, want base unchanged", got)
	}
}

func TestApplyEvidenceAmountOverrides(t *testing.T) {
	t.Parallel()

	base := slip.Candidate{
		DepositAmount:        100,
		Currency:             "USD美元",
		CustomerName:         "A",
		ReceivingAccountName: "Existing Recipient",
	}
	ev := &slip.TransferEvidence{
		Amount:        200,
		Currency:      "EUR",
		RecipientName: "Evidence Recipient",
		AccountNumber: "DE89370400440532013000",
		BankName:      "Commerzbank",
		Date:          "2024-02-01",
	}

	got := slip.ApplyEvidence(base, ev)

	if got.DepositAmount != 200 {
		t.Errorf("DepositAmount = %v, want evidence 200 to overwrite", got.DepositAmount)
	}
	if got.Currency != "EUR欧元" {
		t.Errorf("Currency = %q, want evidence EUR欧元 to overwrite", got.Currency)
	}
	if got.CustomerName != "A" {
		t.Errorf("CustomerName = %q, want text name preserved", got.CustomerName)
	}
	if got.ReceivingAccountName != "Existing Recipient" {
		t.Errorf("ReceivingAccountName = %q, want existing value preserved", got.ReceivingAccountName)
	}
	if got.ReceivingAccountNumber != "DE89370400440532013000" {
		t.Errorf("ReceivingAccountNumber = %q, want evidence fill-in", got.ReceivingAccountNumber)
	}
	if got.BankAccount != "DE89370400440532013000" {
		t.Errorf("BankAccount = %q, want evidence account mirrored", got.BankAccount)
	}
	if got.BankName != "Commerzbank" {
		t.Errorf("BankName = %q, want evidence fill-in", got.BankName)
	}
	if got.DepositDate != "2024-02-01" {
		t.Errorf("DepositDate = %q, want evidence fill-in", got.DepositDate)
	}
}

func TestApplyEvidenceUnmappableCurrencyLeavesExisting(t *testing.T) {
	t.Parallel()

	base := slip.Candidate{Currency: "USD美元"}
	got := slip.ApplyEvidence(base, &slip.TransferEvidence{Currency: "???"})
	if got.Currency != "USD美元" {
		t.Errorf("Currency = %q, want USD美元 kept when evidence currency is unmappable", got.Currency)
	}
}

func TestApplyIdentityOverwritesCustomerFields(t *testing.T) {
	t.Parallel()

	base := slip.Candidate{
		CustomerName:        "Guessed",
		CustomerAge:         30,
		CustomerNationality: "未知",
		DepositAmount:       5000,
	}
	got := slip.ApplyIdentity(base, slip.IdentityInfo{
		Name:        "LEE MIN HO",
		Age:         42,
		Nationality: "韩国",
	})

	if got.CustomerName != "LEE MIN HO" {
		t.Errorf("CustomerName = %q, want identity document to win", got.CustomerName)
	}
	if got.CustomerAge != 42 {
		t.Errorf("CustomerAge = %d, want 42", got.CustomerAge)
	}
	if got.CustomerNationality != "韩国" {
		t.Errorf("CustomerNationality = %q, want 韩国", got.CustomerNationality)
	}
	if got.DepositAmount != 5000 {
		t.Errorf("DepositAmount = %v, want untouched", got.DepositAmount)
	}
}

func TestIdentityFromImage(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	analysis := &slip.ImageAnalysis{
		Kind:        slip.KindIDCard,
		Name:        "Tanaka Yuki",
		BirthDate:   "1985-03-12",
		Nationality: "日本",
	}
	got := slip.IdentityFromImage(analysis, now)

	if got.Name != "Tanaka Yuki" {
		t.Errorf("Name = %q, want Tanaka Yuki", got.Name)
	}
	if got.Age != 39 {
		t.Errorf("Age = %d, want 39 (2024 - 1985)", got.Age)
	}
	if got.Nationality != "日本" {
		t.Errorf("Nationality = %q, want 日本", got.Nationality)
	}

	empty := slip.IdentityFromImage(&slip.ImageAnalysis{Kind: slip.KindIDCard}, now)
	if !empty.IsEmpty() {
		t.Errorf("IdentityFromImage with no fields = %+v, want empty", empty)
	}
}
