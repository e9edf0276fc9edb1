package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/models"
)

// TemplateData is the JSON snapshot stored on a recurring template and
// stamped onto every generated invoice.
type TemplateData struct {
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Currency string          `json:"currency"`
	Notes    string          `json:"notes"`
	Terms    string          `json:"terms"`
	Items    []LineInput     `json:"items"`
}

// Scheduler materializes invoices from recurring templates. It decides
// due-ness, computes next due dates and performs the generate-and-advance
// step atomically. Batch orchestration (and auto-send) lives in the jobs
// package; each template there is its own unit of work.
type Scheduler struct {
	DB        *gorm.DB
	Lifecycle *Lifecycle
}

func NewScheduler(db *gorm.DB, lc *Lifecycle) *Scheduler {
	return &Scheduler{DB: db, Lifecycle: lc}
}

// IsDue reports whether the template should generate on the given day.
func (s *Scheduler) IsDue(tpl *models.RecurringInvoice, today time.Time) (bool, error) {
	if !tpl.IsActive {
		return false, nil
	}
	today = dateOnly(today)
	if tpl.EndDate != nil && today.After(dateOnly(*tpl.EndDate)) {
		return false, nil
	}
	if tpl.LastGenerated == nil {
		return !today.Before(dateOnly(tpl.StartDate)), nil
	}
	next, err := s.NextDue(tpl)
	if err != nil {
		return false, err
	}
	return !today.Before(next), nil
}

// NextDue adds one frequency period to the last generated date, or to the
// start date when the template has never generated. Calendar arithmetic:
// month ends roll forward the way time.AddDate rolls them.
func (s *Scheduler) NextDue(tpl *models.RecurringInvoice) (time.Time, error) {
	base := dateOnly(tpl.StartDate)
	if tpl.LastGenerated != nil {
		base = dateOnly(*tpl.LastGenerated)
	}
	return addPeriod(base, tpl.Frequency)
}

func addPeriod(base time.Time, frequency string) (time.Time, error) {
	switch frequency {
	case models.FrequencyWeekly:
		return base.AddDate(0, 0, 7), nil
	case models.FrequencyMonthly:
		return base.AddDate(0, 1, 0), nil
	case models.FrequencyQuarterly:
		return base.AddDate(0, 3, 0), nil
	case models.FrequencyYearly:
		return base.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, frequency)
	}
}

// Generate materializes one invoice from the template snapshot and advances
// last_generated/next_due in the same transaction. The conditional update on
// last_generated is the guard against two scheduler runs generating for the
// same period; the loser gets ErrAlreadyGenerated and its invoice is rolled
// back. Status is always draft: auto-send is the caller's concern.
func (s *Scheduler) Generate(tpl *models.RecurringInvoice, today time.Time) (*models.Invoice, error) {
	today = dateOnly(today)

	var data TemplateData
	if err := json.Unmarshal(tpl.InvoiceData, &data); err != nil {
		return nil, fmt.Errorf("%w: template %d snapshot: %v", ErrInvalidInput, tpl.ID, err)
	}
	next, err := addPeriod(today, tpl.Frequency)
	if err != nil {
		return nil, err
	}
	in := CreateInput{
		ClientID:  tpl.ClientID,
		ProjectID: tpl.ProjectID,
		IssueDate: today,
		TaxRate:   data.TaxRate,
		Currency:  data.Currency,
		Notes:     data.Notes,
		Terms:     data.Terms,
		Items:     data.Items,
	}
	issue := today
	due := today.AddDate(0, 0, s.Lifecycle.Cfg.InvoiceDueDays)
	totals, err := ComputeTotals(in.Items, in.TaxRate)
	if err != nil {
		return nil, err
	}
	if err := s.Lifecycle.checkReferences(tpl.UserID, tpl.ClientID, tpl.ProjectID); err != nil {
		return nil, err
	}

	var inv *models.Invoice
	attempt := func() error {
		return s.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.RecurringInvoice{}).
				Where("id = ? AND (last_generated IS NULL OR last_generated < ?)", tpl.ID, today).
				Updates(map[string]any{"last_generated": today, "next_due": next})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: template %d", ErrAlreadyGenerated, tpl.ID)
			}
			created, err := s.Lifecycle.createInTx(tx, tpl.UserID, in, issue, due, totals)
			if err != nil {
				return err
			}
			inv = created
			return nil
		})
	}
	err = attempt()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = attempt()
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("%w for template %d", ErrDuplicateNumber, tpl.ID)
	}
	if err != nil {
		return nil, err
	}
	tpl.LastGenerated = &today
	tpl.NextDue = &next
	return inv, nil
}

// DueTemplates loads the active templates that look due today; IsDue is
// still re-checked per template by the batch job.
func (s *Scheduler) DueTemplates(today time.Time) ([]models.RecurringInvoice, error) {
	today = dateOnly(today)
	var tpls []models.RecurringInvoice
	err := s.DB.
		Where("is_active = ? AND (last_generated IS NULL OR next_due <= ?)", true, today).
		Find(&tpls).Error
	return tpls, err
}
