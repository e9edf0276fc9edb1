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

// reminderSchedule lists the days-overdue marks at which a reminder goes out.
var reminderSchedule = []int{1, 7, 14, 30, 60, 90}

// ReminderResult summarizes one reminder run.
type ReminderResult struct {
	Considered int
	Sent       int
	Failed     int
	Err        error
}

// Reminders mails escalating payment reminders for overdue invoices at fixed
// days-overdue marks.
type Reminders struct {
	DB     *gorm.DB
	Mailer mail.Mailer
	Clock  billing.Clock

	// DryRun logs what would be sent without sending.
	DryRun bool
}

func NewReminders(db *gorm.DB, mailer mail.Mailer, clock billing.Clock) *Reminders {
	return &Reminders{DB: db, Mailer: mailer, Clock: clock}
}

// Run sends a reminder for every overdue invoice that hits a schedule mark
// today. Invoices between marks are skipped; failures do not stop the batch.
func (j *Reminders) Run() ReminderResult {
	log := logger.WithComponent("jobs.reminders")
	today := truncateDay(j.Clock.Now())

	var invoices []models.Invoice
	err := j.DB.Preload("Client").
		Where("status = ?", models.InvoiceStatusOverdue).
		Find(&invoices).Error
	if err != nil {
		return ReminderResult{Err: err}
	}

	var res ReminderResult
	var merr *multierror.Error
	res.Considered = len(invoices)

	for i := range invoices {
		inv := &invoices[i]
		days := int(today.Sub(truncateDay(inv.DueDate)).Hours() / 24)
		if !onSchedule(days) {
			continue
		}
		if inv.Client.Email == "" {
			log.Warn().Uint("invoice_id", inv.ID).Msg("client has no email, reminder skipped")
			continue
		}
		subject, body := mail.ReminderMessage(inv, days)
		if j.DryRun {
			log.Info().
				Str("invoice_number", inv.InvoiceNumber).
				Str("to", inv.Client.Email).
				Int("days_overdue", days).
				Msg("reminder (dry run)")
			res.Sent++
			continue
		}
		if err := j.Mailer.Send(inv.Client.Email, subject, body); err != nil {
			res.Failed++
			merr = multierror.Append(merr, err)
			log.Error().Err(err).Uint("invoice_id", inv.ID).Msg("reminder failed")
			continue
		}
		res.Sent++
		log.Info().
			Str("invoice_number", inv.InvoiceNumber).
			Int("days_overdue", days).
			Msg("reminder sent")
	}
	res.Err = merr.ErrorOrNil()
	return res
}

func onSchedule(daysOverdue int) bool {
	for _, mark := range reminderSchedule {
		if daysOverdue == mark {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
