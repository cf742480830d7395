package slip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Line label patterns. Each line contributes at most one field; the first
// matching pattern wins. Receiving-account patterns must not fire on lines
// that carry remitter/customer vocabulary, otherwise sender and recipient
// fields get cross-assigned.
var (
	reDateLabel   = regexp.MustCompile(`(?:汇款\s*日期|日期)\s*[：:=]`)
	reDateFull    = regexp.MustCompile(`(?:汇款\s*日期|日期)\s*[：:=]\s*(\d{4}[-/]\d{1,2}[-/]\d{1,2})`)
	reDatePartial = regexp.MustCompile(`(?:汇款\s*日期|日期)\s*[：:=]\s*(\d{1,2}[-/]\d{1,2})`)

	reMaintLabel = regexp.MustCompile(`维护期\s*(?:（天数）)?\s*[：:=]`)
	reMaintValue = regexp.MustCompile(`维护期.*?[：:=]\s*(\d+)`)

	reCurrency = regexp.MustCompile(`(?i)(?:查收\s*币种|入金\s*币种|币种)\s*[：:=]\s*([A-Z]{3}|[\x{4e00}-\x{9fa5}]+)`)

	reSenderLabel = regexp.MustCompile(`(?:汇款人\s*姓名|汇款人|客户\s*姓名)\s*[：:=]`)
	reSenderValue = regexp.MustCompile(`(?:汇款人\s*姓名|汇款人|客户\s*姓名).*?[：:=]\s*(.+)`)

	reRecvNameLabel = regexp.MustCompile(`(?:收款|入款|公司|账户)\s*(?:账户名|户名|名称|名|人|方)\s*[：:=]`)
	reRecvNameValue = regexp.MustCompile(`(?:收款|入款|公司|账户)\s*(?:账户名|户名|名称|名|人|方).*?[：:=]\s*(.+)`)

	reRecvNumberLabel = regexp.MustCompile(`(?:收款|入款|公司|账户|银行)\s*(?:账号|账户号|卡号|号码)\s*[：:=]`)
	reRecvNumberValue = regexp.MustCompile(`(?i)(?:收款|入款|公司|账户|银行)\s*(?:账号|账户号|卡号|号码).*?[：:=]\s*([A-Z0-9\s-]+)`)

	reSenderVocab = regexp.MustCompile(`汇款|客户`)

	reAmount      = regexp.MustCompile(`(?:查收\s*金额|金额)\s*[：:=]\s*([\d,.\s]+)`)
	reCount       = regexp.MustCompile(`(?:汇款\s*笔数|笔数)\s*[：:=]\s*(\d+)`)
	reNationality = regexp.MustCompile(`国籍\s*[：:=]\s*(.+)`)
	reAge         = regexp.MustCompile(`(?:年龄|年齡)\s*[：:=]\s*(\d+)`)
	reRate        = regexp.MustCompile(`汇率\s*[：:=]\s*([\d.]+)`)
	reCommission  = regexp.MustCompile(`(?:点位|佣金).*?[：:=]\s*([\d.]+)`)

	reAmountJunk = regexp.MustCompile(`[,\s]`)
)

// ParseText is the deterministic text extractor. It never fails: empty or
// unmatched text yields an empty partial candidate. Partial dates (MM-DD)
// default to now's year.
func ParseText(text string, now time.Time) Candidate {
	var data Candidate
	if text == "" {
		return data
	}

	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}

		switch {
		case reDateLabel.MatchString(t):
			if m := reDateFull.FindStringSubmatch(t); m != nil {
				data.DepositDate = strings.ReplaceAll(m[1], "/", "-")
			} else if m := reDatePartial.FindStringSubmatch(t); m != nil {
				parts := strings.Split(strings.ReplaceAll(m[1], "/", "-"), "-")
				month, _ := strconv.Atoi(parts[0])
				day, _ := strconv.Atoi(parts[1])
				data.DepositDate = fmt.Sprintf("%d-%02d-%02d", now.Year(), month, day)
			}

		case reMaintLabel.MatchString(t):
			if m := reMaintValue.FindStringSubmatch(t); m != nil {
				if days, err := strconv.Atoi(m[1]); err == nil {
					data.MaintenanceDays = days
				}
			}

		case reCurrency.MatchString(t):
			if m := reCurrency.FindStringSubmatch(t); m != nil {
				if normalized := NormalizeCurrency(m[1]); normalized != "" {
					data.Currency = normalized
				}
			}

		case reSenderLabel.MatchString(t):
			if m := reSenderValue.FindStringSubmatch(t); m != nil {
				data.CustomerName = strings.TrimSpace(m[1])
			}

		case reRecvNameLabel.MatchString(t) && !reSenderVocab.MatchString(t):
			if m := reRecvNameValue.FindStringSubmatch(t); m != nil {
				data.ReceivingAccountName = strings.TrimSpace(m[1])
			}

		case reRecvNumberLabel.MatchString(t) && !reSenderVocab.MatchString(t):
			if m := reRecvNumberValue.FindStringSubmatch(t); m != nil {
				data.ReceivingAccountNumber = strings.TrimSpace(m[1])
			}

		case reAmount.MatchString(t):
			if m := reAmount.FindStringSubmatch(t); m != nil {
				raw := reAmountJunk.ReplaceAllString(m[1], "")
				if amount, err := strconv.ParseFloat(raw, 64); err == nil {
					data.DepositAmount = amount
				}
			}

		case reCount.MatchString(t):
			if m := reCount.FindStringSubmatch(t); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					data.RemittanceCount = n
				}
			}

		case reNationality.MatchString(t):
			if m := reNationality.FindStringSubmatch(t); m != nil {
				data.CustomerNationality = strings.TrimSpace(m[1])
			}

		case reAge.MatchString(t):
			if m := reAge.FindStringSubmatch(t); m != nil {
				if age, err := strconv.Atoi(m[1]); err == nil {
					data.CustomerAge = age
				}
			}

		case reRate.MatchString(t):
			if m := reRate.FindStringSubmatch(t); m != nil {
				if rate, err := strconv.ParseFloat(m[1], 64); err == nil {
					data.ExchangeRate = rate
				}
			}

		case reCommission.MatchString(t):
			if m := reCommission.FindStringSubmatch(t); m != nil {
				if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
					data.CommissionPct = pct
				}
			}
		}

		// Calculation mode is detected independently of the field patterns;
		// a later line overwrites an earlier one.
		if strings.Contains(t, ModeDeferred) {
			data.CalculationMode = ModeDeferred
		} else if strings.Contains(t, ModeForward) {
			data.CalculationMode = ModeForward
		}
	}

	return data
}
