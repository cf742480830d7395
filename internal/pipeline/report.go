package pipeline

import (
	"fmt"
	"strings"

	"github.com/slipledger/slipbot/internal/database"
)

// elderlyAgeThreshold triggers the high-age customer warning in replies.
const elderlyAgeThreshold = 70

// formatAmount renders a monetary amount with thousands separators,
// dropping the fraction when it is zero.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	parts := strings.SplitN(s, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	negative := strings.HasPrefix(intPart, "-")
	if negative {
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	out := b.String()
	if negative {
		out = "-" + out
	}
	if fracPart != "00" {
		out += "." + fracPart
	}
	return out
}

// buildSuccessMessage renders the HTML confirmation reply for a newly
// created transaction.
func buildSuccessMessage(tx *database.Transaction) string {
	var b strings.Builder

	b.WriteString("✅ <b>水单录入成功，请核对信息</b>\n\n")
	fmt.Fprintf(&b, "📝 编号: <code>%s</code>\n", tx.TransactionNumber)
	fmt.Fprintf(&b, "💵 查收金额: %s %s\n", formatAmount(tx.DepositAmount), tx.Currency)
	fmt.Fprintf(&b, "🔢 汇款笔数: %d笔\n", tx.RemittanceCount)
	fmt.Fprintf(&b, "👤 汇款人: %s", tx.CustomerName)
	if tx.CustomerAge.Valid {
		fmt.Fprintf(&b, " (%d岁)", tx.CustomerAge.Int64)
		if tx.CustomerAge.Int64 >= elderlyAgeThreshold {
			b.WriteString(" ⚠️⚠️⚠️ <b>高龄客户提醒</b> ⚠️⚠️⚠️")
		}
	}
	if tx.CustomerNationality != "" {
		fmt.Fprintf(&b, " [%s]", tx.CustomerNationality)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "🏢 收款账户名: %s\n", tx.ReceivingAccountName)
	fmt.Fprintf(&b, "💳 收款账号: %s\n", tx.ReceivingAccountNumber)
	fmt.Fprintf(&b, "💱 汇率: %g\n", tx.ExchangeRate)
	fmt.Fprintf(&b, "📊 点位: %g%% (%s)\n", tx.CommissionPercentage, tx.CalculationMode)
	fmt.Fprintf(&b, "📆 汇款日期: %s\n", tx.DepositDate)
	fmt.Fprintf(&b, "⏳ 维护期: %d天 (到期: %s)\n\n", tx.MaintenanceDays, tx.MaintenanceEndDate)
	b.WriteString("✨ 如有误请在后台修改")

	return b.String()
}

const insufficientEvidenceMessage = "❌ <b>信息不完整</b>\n\n" +
	"缺少必要信息（金额或币种）\n\n" +
	"请确保：\n" +
	"1. 转账单图片/文档清晰\n" +
	"2. 或在文本中提供金额和币种\n" +
	"3. 或检查图片是否模糊"

// buildKYCPrompt renders the reply sent when a lone identity-document photo
// arrives without any transaction context.
func buildKYCPrompt(customerName string) string {
	idName := ""
	if customerName != "" {
		idName = fmt.Sprintf("（%s）", customerName)
	}
	return fmt.Sprintf("🪪 <b>检测到证件照片%s</b>\n\n"+
		"请问这张证件照片的用途是：\n"+
		"1️⃣ 客户身份核验（KYC）\n"+
		"2️⃣ 关联某笔汇款交易\n\n"+
		"如需关联交易，请在发送证件时同时发送水单，或回复相关水单消息。\n"+
		"证件信息已记录，下次发送水单时会自动关联。", idName)
}
