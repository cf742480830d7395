package slip_test

import (
	"testing"
	"time"

	"github.com/slipledger/slipbot/internal/slip"
)

var parseNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseTextEmptyAndUnmatched(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty string", input: ""},
		{name: "greeting only", input: "你好，在吗？"},
		{name: "freeform english", input: "hello there, how are you"},
		{name: "blank lines", input: "\n\n   \n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := slip.ParseText(tc.input, parseNow)
			if got != (slip.Candidate{}) {
				t.Errorf("ParseText(%q) = %+v, want empty candidate", tc.input, got)
			}
		})
	}
}

func TestParseTextDates(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "full date with dashes",
			input:    "日期：2024-01-15",
			expected: "2024-01-15",
		},
		{
			name:     "full date with slashes",
			input:    "日期：2024/01/15",
			expected: "2024-01-15",
		},
		{
			name:     "partial date defaults to current year",
			input:    "日期：01-15",
			expected: "2024-01-15",
		},
		{
			name:     "partial date single digits padded",
			input:    "日期：1/5",
			expected: "2024-01-05",
		},
		{
			name:     "remittance date label",
			input:    "汇款日期：2023-12-31",
			expected: "2023-12-31",
		},
		{
			name:     "equals separator",
			input:    "日期=2024-03-08",
			expected: "2024-03-08",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := slip.ParseText(tc.input, parseNow)
			if got.DepositDate != tc.expected {
				t.Errorf("ParseText(%q).DepositDate = %q, want %q", tc.input, got.DepositDate, tc.expected)
			}
		})
	}
}

func TestParseTextFields(t *testing.T) {
	t.Parallel()

	text := "日期：2024-01-15\n" +
		"维护期（天数）：20\n" +
		"币种：美\n" +
		"汇款人姓名：Zhang San\n" +
		"收款账户名：Acme Trading Ltd\n" +
		"收款账号：DE89 3704 0044 0532 0130 00\n" +
		"金额：1,234,500.50\n" +
		"笔数：3\n" +
		"国籍：德国\n" +
		"年龄：45\n" +
		"汇率：0.97\n" +
		"点位：12.5"

	got := slip.ParseText(text, parseNow)

	if got.DepositDate != "2024-01-15" {
		t.Errorf("DepositDate = %q, want %q", got.DepositDate, "2024-01-15")
	}
	if got.MaintenanceDays != 20 {
		t.Errorf("MaintenanceDays = %d, want 20", got.MaintenanceDays)
	}
	if got.Currency != "USD美元" {
		t.Errorf("Currency = %q, want %q", got.Currency, "USD美元")
	}
	if got.CustomerName != "Zhang San" {
		t.Errorf("CustomerName = %q, want %q", got.CustomerName, "Zhang San")
	}
	if got.ReceivingAccountName != "Acme Trading Ltd" {
		t.Errorf("ReceivingAccountName = %q, want %q", got.ReceivingAccountName, "Acme Trading Ltd")
	}
	if got.ReceivingAccountNumber != "DE89 3704 0044 0532 0130 00" {
		t.Errorf("ReceivingAccountNumber = %q, want %q", got.ReceivingAccountNumber, "DE89 3704 0044 0532 0130 00")
	}
	if got.DepositAmount != 1234500.50 {
		t.Errorf("DepositAmount = %v, want 1234500.50", got.DepositAmount)
	}
	if got.RemittanceCount != 3 {
		t.Errorf("RemittanceCount = %d, want 3", got.RemittanceCount)
	}
	if got.CustomerNationality != "德国" {
		t.Errorf("CustomerNationality = %q, want %q", got.CustomerNationality, "德国")
	}
	if got.CustomerAge != 45 {
		t.Errorf("CustomerAge = %d, want 45", got.CustomerAge)
	}
	if got.ExchangeRate != 0.97 {
		t.Errorf("ExchangeRate = %v, want 0.97", got.ExchangeRate)
	}
	if got.CommissionPct != 12.5 {
		t.Errorf("CommissionPct = %v, want 12.5", got.CommissionPct)
	}
}

func TestParseTextSenderRecipientSeparation(t *testing.T) {
	t.Parallel()

	// Lines carrying remitter/customer vocabulary must never populate the
	// receiving-account fields, even when an account-ish label also matches.
	text := "汇款人姓名：Li Wei\n客户账户名：should not match\n收款户名：Target GmbH"

	got := slip.ParseText(text, parseNow)

	if got.CustomerName != "Li Wei" {
		t.Errorf("CustomerName = %q, want %q", got.CustomerName, "Li Wei")
	}
	if got.ReceivingAccountName != "Target GmbH" {
		t.Errorf("ReceivingAccountName = %q, want %q", got.ReceivingAccountName, "Target GmbH")
	}
}

func TestParseTextInvalidNumbersLeaveFieldsUnset(t *testing.T) {
	t.Parallel()

	got := slip.ParseText("金额：...,,", parseNow)
	if got.DepositAmount != 0 {
		t.Errorf("DepositAmount = %v, want 0 for unparseable amount", got.DepositAmount)
	}
}

func TestParseTextCalculationMode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no mode keyword",
			input:    "金额：5000",
			expected: "",
		},
		{
			name:     "forward mode",
			input:    "点位：13.5 进算",
			expected: slip.ModeForward,
		},
		{
			name:     "deferred mode",
			input:    "按拖算处理",
			expected: slip.ModeDeferred,
		},
		{
			name:     "later line wins",
			input:    "进算\n拖算",
			expected: slip.ModeDeferred,
		},
		{
			name:     "later line wins reversed",
			input:    "拖算\n进算",
			expected: slip.ModeForward,
		},
		{
			name:     "deferred wins within one line",
			input:    "进算或拖算",
			expected: slip.ModeDeferred,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := slip.ParseText(tc.input, parseNow)
			if got.CalculationMode != tc.expected {
				t.Errorf("ParseText(%q).CalculationMode = %q, want %q", tc.input, got.CalculationMode, tc.expected)
			}
		})
	}
}
