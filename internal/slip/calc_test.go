package slip_test

import (
	"math"
	"testing"

	"github.com/slipledger/slipbot/internal/slip"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		deposit       float64
		rate          float64
		commissionPct float64
		feeUSDT       float64
		expected      slip.Totals
	}{
		{
			name:          "standard deposit",
			deposit:       5000,
			rate:          0.96,
			commissionPct: 13.5,
			feeUSDT:       25,
			expected: slip.Totals{
				InitialUSDT:    5208.33,
				CommissionUSDT: 703.13,
				SettlementUSDT: 4480.21,
			},
		},
		{
			name:          "no commission",
			deposit:       1000,
			rate:          1.0,
			commissionPct: 0,
			feeUSDT:       25,
			expected: slip.Totals{
				InitialUSDT:    1000,
				CommissionUSDT: 0,
				SettlementUSDT: 975,
			},
		},
		{
			name:          "zero rate yields zero totals",
			deposit:       5000,
			rate:          0,
			commissionPct: 13.5,
			feeUSDT:       25,
			expected:      slip.Totals{},
		},
		{
			name:          "negative rate yields zero totals",
			deposit:       5000,
			rate:          -1,
			commissionPct: 13.5,
			feeUSDT:       25,
			expected:      slip.Totals{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := slip.Calculate(tc.deposit, tc.rate, tc.commissionPct, tc.feeUSDT)

			if !approxEqual(got.InitialUSDT, tc.expected.InitialUSDT) {
				t.Errorf("InitialUSDT = %.4f, want %.2f", got.InitialUSDT, tc.expected.InitialUSDT)
			}
			if !approxEqual(got.CommissionUSDT, tc.expected.CommissionUSDT) {
				t.Errorf("CommissionUSDT = %.4f, want %.2f", got.CommissionUSDT, tc.expected.CommissionUSDT)
			}
			if !approxEqual(got.SettlementUSDT, tc.expected.SettlementUSDT) {
				t.Errorf("SettlementUSDT = %.4f, want %.2f", got.SettlementUSDT, tc.expected.SettlementUSDT)
			}
		})
	}
}
