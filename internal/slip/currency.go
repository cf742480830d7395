// Package slip implements the deterministic extraction, merging, and
// financial computation layer of the transaction ingestion pipeline. It is
// pure computation: no I/O, no external services.
package slip

import "strings"

// currencyEntry maps a raw token to its canonical currency label. Order
// matters: alphabetic codes are tried before single-character Chinese
// shorthands so that e.g. "USD" never falls through to a substring match
// against a shorthand.
type currencyEntry struct {
	token string
	label string
}

var currencyTable = []currencyEntry{
	{"EUR", "EUR欧元"}, {"USD", "USD美元"}, {"GBP", "GBP英镑"},
	{"SGD", "SGD新元"}, {"MYR", "MYR马币"}, {"AUD", "AUD澳币"},
	{"CHF", "CHF瑞郎"}, {"THB", "THB泰铢"}, {"VND", "VND越南盾"},
	{"CAD", "CAD加元"}, {"HKD", "HKD港币"}, {"KRW", "KRW韩币"},
	{"CNY", "CNY人民币"}, {"RMB", "CNY人民币"}, {"JPY", "JPY日元"},
	{"AED", "AED迪拉姆"}, {"PHP", "PHP菲律宾比索"}, {"IDR", "IDR印尼盾"},

	{"欧", "EUR欧元"}, {"美", "USD美元"}, {"英", "GBP英镑"}, {"新", "SGD新元"},
	{"马", "MYR马币"}, {"澳", "AUD澳币"}, {"瑞", "CHF瑞郎"}, {"泰", "THB泰铢"},
	{"越", "VND越南盾"}, {"加", "CAD加元"}, {"港", "HKD港币"}, {"韩", "KRW韩币"},
	{"人", "CNY人民币"}, {"日", "JPY日元"}, {"迪", "AED迪拉姆"},
	{"菲", "PHP菲律宾比索"}, {"印", "IDR印尼盾"},
}

// NormalizeCurrency maps a raw currency token (ISO code or single Chinese
// character) to its canonical label. Matching is substring-based and
// case-insensitive for alphabetic codes. Returns "" when nothing matches;
// absence of a match is not an error, the field is simply left unset.
func NormalizeCurrency(raw string) string {
	if raw == "" {
		return ""
	}
	upper := strings.ToUpper(raw)
	for _, e := range currencyTable {
		if strings.Contains(upper, e.token) {
			return e.label
		}
	}
	return ""
}
