package jobs

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/logger"
	"github.com/factuurlab/factuur/internal/mail"
	"github.com/factuurlab/factuur/internal/models"
)

// ReportResult summarizes one monthly-report run.
type ReportResult struct {
	Considered int
	Sent       int
	Skipped    int
	Failed     int
	Err        error
}

// MonthlyReports mails every user a financial summary of one calendar month:
// invoices issued, expenses booked, income from paid invoices and the number
// of invoices still awaiting payment.
type MonthlyReports struct {
	DB     *gorm.DB
	Mailer mail.Mailer
	Clock  billing.Clock

	// DryRun logs what would be sent without sending.
	DryRun bool
	// Month overrides the reporting month; zero means the previous
	// calendar month. Only year and month are used.
	Month time.Time
}

func NewMonthlyReports(db *gorm.DB, mailer mail.Mailer, clock billing.Clock) *MonthlyReports {
	return &MonthlyReports{DB: db, Mailer: mailer, Clock: clock}
}

// Run builds and mails one report per user. Users with no activity in the
// month are skipped; failures do not stop the batch.
func (j *MonthlyReports) Run() ReportResult {
	log := logger.WithComponent("jobs.reports")
	start := j.monthStart()
	end := start.AddDate(0, 1, 0)
	today := truncateDay(j.Clock.Now())

	var users []models.User
	if err := j.DB.Find(&users).Error; err != nil {
		return ReportResult{Err: err}
	}

	var res ReportResult
	var merr *multierror.Error
	res.Considered = len(users)

	for i := range users {
		user := &users[i]

		var invoices []models.Invoice
		err := j.DB.Preload("Client").
			Where("user_id = ? AND issue_date >= ? AND issue_date < ?", user.ID, start, end).
			Order("issue_date").
			Find(&invoices).Error
		if err != nil {
			res.Failed++
			merr = multierror.Append(merr, err)
			continue
		}
		var expenses []models.Expense
		err = j.DB.
			Where("user_id = ? AND expense_date >= ? AND expense_date < ?", user.ID, start, end).
			Order("expense_date").
			Find(&expenses).Error
		if err != nil {
			res.Failed++
			merr = multierror.Append(merr, err)
			continue
		}
		if len(invoices) == 0 && len(expenses) == 0 {
			res.Skipped++
			continue
		}

		report := mail.MonthlyReport{Month: start, Invoices: invoices, Expenses: expenses}
		for k := range invoices {
			if invoices[k].Status == models.InvoiceStatusPaid {
				report.TotalIncome = report.TotalIncome.Add(invoices[k].TotalAmount)
			}
		}
		for k := range expenses {
			report.TotalExpenses = report.TotalExpenses.Add(expenses[k].Amount)
		}
		report.NetProfit = report.TotalIncome.Sub(report.TotalExpenses)

		err = j.DB.Model(&models.Invoice{}).
			Where("user_id = ? AND status != ? AND due_date < ?", user.ID, models.InvoiceStatusPaid, today).
			Count(&report.OverdueCount).Error
		if err != nil {
			res.Failed++
			merr = multierror.Append(merr, err)
			continue
		}

		subject, body := mail.MonthlyReportMessage(user.Name, report)
		if j.DryRun {
			log.Info().
				Str("to", user.Email).
				Str("month", start.Format("2006-01")).
				Str("net", report.NetProfit.StringFixed(2)).
				Msg("report (dry run)")
			res.Sent++
			continue
		}
		if err := j.Mailer.Send(user.Email, subject, body); err != nil {
			res.Failed++
			merr = multierror.Append(merr, err)
			log.Error().Err(err).Uint("user_id", user.ID).Msg("report failed")
			continue
		}
		res.Sent++
		log.Info().
			Str("to", user.Email).
			Str("month", start.Format("2006-01")).
			Msg("report sent")
	}
	res.Err = merr.ErrorOrNil()
	return res
}

func (j *MonthlyReports) monthStart() time.Time {
	if !j.Month.IsZero() {
		return time.Date(j.Month.Year(), j.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	now := j.Clock.Now()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
}
