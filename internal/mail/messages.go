package mail

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/factuurlab/factuur/internal/models"
)

// OtpMessage builds the verification-code mail.
func OtpMessage(code string) (subject, body string) {
	subject = "Your verification code"
	body = fmt.Sprintf(
		"<p>Your verification code is <strong>%s</strong>.</p><p>The code is valid for 10 minutes.</p>",
		code)
	return subject, body
}

// InvoiceMessage builds the mail accompanying a freshly sent invoice.
func InvoiceMessage(inv *models.Invoice, note string) (subject, body string) {
	subject = fmt.Sprintf("Invoice %s", inv.InvoiceNumber)
	body = fmt.Sprintf(
		"<p>%s</p><p>Invoice <strong>%s</strong>, total %s %s, due %s.</p>",
		note, inv.InvoiceNumber, inv.Currency, inv.TotalAmount.StringFixed(2),
		inv.DueDate.Format("2006-01-02"))
	return subject, body
}

// MonthlyReport carries one user's figures for a reporting month.
type MonthlyReport struct {
	Month         time.Time
	Invoices      []models.Invoice
	Expenses      []models.Expense
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetProfit     decimal.Decimal
	OverdueCount  int64
}

// MonthlyReportMessage builds the per-user financial summary mail. Only the
// first ten expenses are listed.
func MonthlyReportMessage(name string, r MonthlyReport) (subject, body string) {
	month := r.Month.Format("January 2006")
	subject = fmt.Sprintf("Your financial report for %s", month)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p><p>Here is your summary for %s.</p>", name, month)
	fmt.Fprintf(&b,
		"<p>Income (paid): <strong>%s</strong><br>Expenses: <strong>%s</strong><br>Net: <strong>%s</strong></p>",
		r.TotalIncome.StringFixed(2), r.TotalExpenses.StringFixed(2), r.NetProfit.StringFixed(2))
	if r.OverdueCount > 0 {
		fmt.Fprintf(&b, "<p>You have <strong>%d</strong> overdue invoice(s) awaiting payment.</p>", r.OverdueCount)
	}
	if len(r.Invoices) > 0 {
		b.WriteString("<h3>Invoices</h3><ul>")
		for i := range r.Invoices {
			inv := &r.Invoices[i]
			fmt.Fprintf(&b, "<li>%s — %s, %s %s, issued %s (%s)</li>",
				inv.InvoiceNumber, inv.Client.Name, inv.Currency,
				inv.TotalAmount.StringFixed(2), inv.IssueDate.Format("2006-01-02"), inv.Status)
		}
		b.WriteString("</ul>")
	}
	if len(r.Expenses) > 0 {
		b.WriteString("<h3>Expenses</h3><ul>")
		for i := range r.Expenses {
			if i == 10 {
				fmt.Fprintf(&b, "<li>… and %d more</li>", len(r.Expenses)-10)
				break
			}
			e := &r.Expenses[i]
			fmt.Fprintf(&b, "<li>%s — %s, %s (%s)</li>",
				e.Description, e.Vendor, e.Amount.StringFixed(2), e.Category)
		}
		b.WriteString("</ul>")
	}
	return subject, b.String()
}

// ReminderMessage builds the overdue-payment reminder. Tone escalates with
// the number of days overdue, mirroring the reminder schedule.
func ReminderMessage(inv *models.Invoice, daysOverdue int) (subject, body string) {
	subject = fmt.Sprintf("Payment reminder: invoice %s", inv.InvoiceNumber)
	var tone string
	switch {
	case daysOverdue <= 1:
		tone = "Friendly reminder: your invoice was due today."
	case daysOverdue <= 7:
		tone = fmt.Sprintf("Your invoice is %d days overdue. Please arrange payment as soon as possible.", daysOverdue)
	case daysOverdue <= 30:
		tone = fmt.Sprintf("Your invoice is %d days overdue. This may affect our cooperation.", daysOverdue)
	case daysOverdue <= 60:
		tone = fmt.Sprintf("URGENT: your invoice is %d days overdue. Please contact us immediately.", daysOverdue)
	default:
		tone = fmt.Sprintf("FINAL NOTICE: your invoice is %d days overdue. Legal action is being considered.", daysOverdue)
	}
	body = fmt.Sprintf(
		"<p>%s</p><p>Invoice <strong>%s</strong>, amount %s %s, was due %s.</p>",
		tone, inv.InvoiceNumber, inv.Currency, inv.TotalAmount.StringFixed(2),
		inv.DueDate.Format("2006-01-02"))
	return subject, body
}
