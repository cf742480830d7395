package slip

// Totals holds the USDT-denominated quantities derived from a deposit.
//
// The transfer fee is defined in USDT and subtracted as-is; the reporting
// engine uses the same convention, so the two must not drift apart.
type Totals struct {
	InitialUSDT    float64
	CommissionUSDT float64
	SettlementUSDT float64
}

// Calculate derives the USDT totals from the raw deposit amount, exchange
// rate, commission percentage, and USDT transfer fee:
//
//	initial    = deposit / rate
//	commission = initial * (commissionPct / 100)
//	settlement = initial - commission - feeUSDT
//
// A rate of zero or less means no conversion is possible: all derived fields
// stay zero and callers must not trust them. This avoids Inf/NaN poisoning
// downstream records.
func Calculate(deposit, rate, commissionPct, feeUSDT float64) Totals {
	if rate <= 0 {
		return Totals{}
	}

	initial := deposit / rate
	commission := initial * (commissionPct / 100)

	return Totals{
		InitialUSDT:    initial,
		CommissionUSDT: commission,
		SettlementUSDT: initial - commission - feeUSDT,
	}
}
