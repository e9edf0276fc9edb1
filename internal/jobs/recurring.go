// Package jobs holds the scheduled batch runs: recurring invoice generation,
// overdue marking, payment reminders and OTP cleanup. Each job is best-effort
// per row and reports per-row failures without aborting the batch.
package jobs

import (
	"errors"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/logger"
	"github.com/factuurlab/factuur/internal/mail"
	"github.com/factuurlab/factuur/internal/models"
)

// RecurringResult summarizes one generation run.
type RecurringResult struct {
	Considered int
	Generated  int
	Skipped    int
	Failed     int
	Err        error // multierror of per-template failures, nil when clean
}

// Recurring is the daily generation job.
type Recurring struct {
	DB        *gorm.DB
	Scheduler *billing.Scheduler
	Mailer    mail.Mailer
	Clock     billing.Clock
}

func NewRecurring(db *gorm.DB, sched *billing.Scheduler, mailer mail.Mailer, clock billing.Clock) *Recurring {
	return &Recurring{DB: db, Scheduler: sched, Mailer: mailer, Clock: clock}
}

// Run generates an invoice for every due template. A failing template is
// recorded and the batch moves on; a concurrent run losing the per-template
// guard counts as skipped, not failed.
func (j *Recurring) Run() RecurringResult {
	log := logger.WithComponent("jobs.recurring")
	today := j.Clock.Now()

	templates, err := j.Scheduler.DueTemplates(today)
	if err != nil {
		return RecurringResult{Err: err}
	}

	var res RecurringResult
	var merr *multierror.Error
	res.Considered = len(templates)

	for i := range templates {
		tpl := &templates[i]
		due, err := j.Scheduler.IsDue(tpl, today)
		if err != nil {
			res.Failed++
			merr = multierror.Append(merr, err)
			log.Error().Err(err).Uint("template_id", tpl.ID).Msg("due check failed")
			continue
		}
		if !due {
			res.Skipped++
			continue
		}
		inv, err := j.Scheduler.Generate(tpl, today)
		if errors.Is(err, billing.ErrAlreadyGenerated) {
			res.Skipped++
			continue
		}
		if err != nil {
			res.Failed++
			merr = multierror.Append(merr, err)
			log.Error().Err(err).Uint("template_id", tpl.ID).Msg("generation failed")
			continue
		}
		res.Generated++
		log.Info().
			Uint("template_id", tpl.ID).
			Str("invoice_number", inv.InvoiceNumber).
			Msg("invoice generated")

		if tpl.AutoSend {
			if err := j.autoSend(tpl, inv); err != nil {
				merr = multierror.Append(merr, err)
				log.Error().Err(err).Uint("invoice_id", inv.ID).Msg("auto-send failed")
			}
		}
	}
	res.Err = merr.ErrorOrNil()
	return res
}

// autoSend mails the generated invoice and moves it to sent. A mail failure
// leaves the invoice in draft for a manual retry.
func (j *Recurring) autoSend(tpl *models.RecurringInvoice, inv *models.Invoice) error {
	var client models.Client
	if err := j.DB.First(&client, tpl.ClientID).Error; err != nil {
		return err
	}
	if client.Email == "" {
		return nil
	}
	subject, body := mail.InvoiceMessage(inv, "Please find your new invoice below.")
	if err := j.Mailer.Send(client.Email, subject, body); err != nil {
		return err
	}
	if err := j.DB.Model(inv).Update("status", models.InvoiceStatusSent).Error; err != nil {
		return err
	}
	inv.Status = models.InvoiceStatusSent
	return nil
}
