package pipeline

import "strings"

// transactionKeywords mark a message as transaction-related for archive
// classification and for suppressing the lone-id-card prompt.
var transactionKeywords = []string{"汇款", "转账", "水单", "汇款单", "收款"}

// triggerKeywords start slip extraction on a plain text message. Broader
// than transactionKeywords so that a pasted slip body triggers even without
// the word 汇款 in it.
var triggerKeywords = []string{
	"汇款", "转账", "水单", "汇款单", "币种", "金额", "查收", "收款", "维护期", "IBAN", "银行", "账户",
}

func containsTransactionKeyword(text string) bool {
	for _, k := range transactionKeywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func containsTriggerKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range triggerKeywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// classifyArchive derives the archive category and tags for a message from
// its text and attachments.
func classifyArchive(text string, hasDocument bool, photoCount int) (string, []string) {
	category := "other"
	var tags []string

	if text != "" {
		if strings.Contains(text, "汇款") || strings.Contains(text, "转账") || strings.Contains(text, "水单") {
			category = "transaction"
			tags = append(tags, "transaction")
		}
		if strings.Contains(text, "你好") || strings.Contains(text, "在吗") {
			category = "inquiry"
			tags = append(tags, "greeting")
		}
	}
	if hasDocument || photoCount > 0 {
		tags = append(tags, "has_attachment")
		if hasDocument {
			tags = append(tags, "document")
		}
		if photoCount > 0 {
			tags = append(tags, "photo")
		}
	}

	return category, tags
}
