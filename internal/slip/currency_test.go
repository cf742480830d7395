package slip_test

import (
	"testing"

	"github.com/slipledger/slipbot/internal/slip"
)

func TestNormalizeCurrency(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "iso code",
			input:    "USD",
			expected: "USD美元",
		},
		{
			name:     "lowercase iso code",
			input:    "usd",
			expected: "USD美元",
		},
		{
			name:     "code embedded in longer token",
			input:    "5000 EUR transfer",
			expected: "EUR欧元",
		},
		{
			name:     "single chinese character",
			input:    "美",
			expected: "USD美元",
		},
		{
			name:     "chinese word containing shorthand",
			input:    "美元",
			expected: "USD美元",
		},
		{
			name:     "rmb alias maps to cny",
			input:    "RMB",
			expected: "CNY人民币",
		},
		{
			name:     "cny code",
			input:    "CNY",
			expected: "CNY人民币",
		},
		{
			name:     "philippine peso shorthand",
			input:    "菲",
			expected: "PHP菲律宾比索",
		},
		{
			name:     "no match",
			input:    "XYZ",
			expected: "",
		},
		{
			name:     "unknown chinese character",
			input:    "钱",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := slip.NormalizeCurrency(tc.input); got != tc.expected {
				t.Errorf("NormalizeCurrency(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
