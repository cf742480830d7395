package pipeline

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/slipledger/slipbot/internal/database"
)

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in       float64
		expected string
	}{
		{0, "0"},
		{975, "975"},
		{5000, "5,000"},
		{1234500.5, "1,234,500.50"},
		{4480.208333, "4,480.21"},
		{-12345, "-12,345"},
	}

	for _, tc := range testCases {
		if got := formatAmount(tc.in); got != tc.expected {
			t.Errorf("formatAmount(%v) = %q, want %q", tc.in, got, tc.expected)
		}
	}
}

func sampleTransaction() *database.Transaction {
	return &database.Transaction{
		TransactionNumber:      "TX20240115-001",
		CustomerName:           "Zhang San",
		CustomerNationality:    "德国",
		ReceivingAccountName:   "Acme Trading Ltd",
		ReceivingAccountNumber: "DE89370400440532013000",
		Currency:               "USD美元",
		DepositAmount:          5000,
		DepositDate:            "2024-01-15",
		MaintenanceDays:        15,
		MaintenanceEndDate:     "2024-01-30",
		ExchangeRate:           0.96,
		CommissionPercentage:   13.5,
		CalculationMode:        "进算",
		RemittanceCount:        1,
		TransferFee:            25,
		SettlementUSDT:         4480.21,
	}
}

func TestBuildSuccessMessage(t *testing.T) {
	t.Parallel()

	tx := sampleTransaction()
	msg := buildSuccessMessage(tx)

	for _, want := range []string{
		"水单录入成功",
		"<code>TX20240115-001</code>",
		"5,000 USD美元",
		"1笔",
		"Zhang San",
		"[德国]",
		"Acme Trading Ltd",
		"DE89370400440532013000",
		"汇率: 0.96",
		"点位: 13.5% (进算)",
		"汇款日期: 2024-01-15",
		"维护期: 15天 (到期: 2024-01-30)",
		"如有误请在后台修改",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("success message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "高龄客户提醒") {
		t.Error("success message contains elderly warning for transaction without age")
	}
}

func TestBuildSuccessMessageElderlyWarning(t *testing.T) {
	t.Parallel()

	tx := sampleTransaction()
	tx.CustomerAge = sql.NullInt64{Int64: 72, Valid: true}

	msg := buildSuccessMessage(tx)
	if !strings.Contains(msg, "(72岁)") {
		t.Errorf("success message missing age:\n%s", msg)
	}
	if !strings.Contains(msg, "高龄客户提醒") {
		t.Errorf("success message missing elderly warning:\n%s", msg)
	}

	tx.CustomerAge = sql.NullInt64{Int64: 45, Valid: true}
	msg = buildSuccessMessage(tx)
	if strings.Contains(msg, "高龄客户提醒") {
		t.Errorf("success message has elderly warning for 45-year-old:\n%s", msg)
	}
}

func TestBuildKYCPrompt(t *testing.T) {
	t.Parallel()

	withName := buildKYCPrompt("LEE MIN HO")
	if !strings.Contains(withName, "（LEE MIN HO）") {
		t.Errorf("prompt missing name: %s", withName)
	}

	without := buildKYCPrompt("")
	if strings.Contains(without, "（") {
		t.Errorf("prompt has empty name brackets: %s", without)
	}
	if !strings.Contains(without, "KYC") {
		t.Errorf("prompt missing KYC mention: %s", without)
	}
}
