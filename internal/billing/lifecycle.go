package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/config"
	"github.com/factuurlab/factuur/internal/models"
)

// CreateInput carries everything needed to create an invoice. DueDate nil
// means issue date plus the configured due days.
type CreateInput struct {
	ClientID  uint            `json:"client_id"`
	ProjectID *uint           `json:"project_id"`
	IssueDate time.Time       `json:"issue_date"`
	DueDate   *time.Time      `json:"due_date"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Currency  string          `json:"currency"`
	Notes     string          `json:"notes"`
	Terms     string          `json:"terms"`
	Items     []LineInput     `json:"items"`
}

// UpdateInput is CreateInput plus an optional status transition.
type UpdateInput struct {
	CreateInput
	Status string `json:"status"`
}

// Lifecycle owns invoice creation, mutation and status transitions. All
// writes to an invoice and its items happen inside a single transaction.
type Lifecycle struct {
	DB    *gorm.DB
	Cfg   config.Billing
	Clock Clock

	// NumberFn allocates the next invoice number inside the create
	// transaction. Defaults to NumberGenerator with the configured prefix;
	// tests override it to provoke numbering collisions.
	NumberFn func(tx *gorm.DB, userID uint) (string, error)
}

func NewLifecycle(db *gorm.DB, cfg config.Billing, clock Clock) *Lifecycle {
	gen := NumberGenerator{Prefix: cfg.InvoicePrefix}
	return &Lifecycle{DB: db, Cfg: cfg, Clock: clock, NumberFn: gen.Next}
}

// Create validates the input, computes totals, allocates a number and writes
// invoice plus items atomically. A numbering collision is retried once with a
// freshly recomputed number before ErrDuplicateNumber surfaces.
func (l *Lifecycle) Create(userID uint, in CreateInput) (*models.Invoice, error) {
	issue, due, err := l.resolveDates(in.IssueDate, in.DueDate)
	if err != nil {
		return nil, err
	}
	totals, err := ComputeTotals(in.Items, in.TaxRate)
	if err != nil {
		return nil, err
	}
	if err := l.checkReferences(userID, in.ClientID, in.ProjectID); err != nil {
		return nil, err
	}

	var inv *models.Invoice
	attempt := func() error {
		return l.DB.Transaction(func(tx *gorm.DB) error {
			created, err := l.createInTx(tx, userID, in, issue, due, totals)
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
		return nil, fmt.Errorf("%w for user %d", ErrDuplicateNumber, userID)
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// createInTx runs the write half of Create inside the caller's transaction.
// The recurring scheduler reuses it so template bookkeeping and invoice
// creation commit together.
func (l *Lifecycle) createInTx(tx *gorm.DB, userID uint, in CreateInput, issue, due time.Time, totals Totals) (*models.Invoice, error) {
	number, err := l.NumberFn(tx, userID)
	if err != nil {
		return nil, err
	}
	inv := &models.Invoice{
		UserID:        userID,
		ClientID:      in.ClientID,
		ProjectID:     in.ProjectID,
		InvoiceNumber: number,
		Status:        models.InvoiceStatusDraft,
		IssueDate:     issue,
		DueDate:       due,
		Subtotal:      totals.Subtotal,
		TaxRate:       in.TaxRate,
		TaxAmount:     totals.TaxAmount,
		TotalAmount:   totals.TotalAmount,
		Currency:      currencyOr(in.Currency),
		Notes:         in.Notes,
		Terms:         in.Terms,
	}
	if err := tx.Create(inv).Error; err != nil {
		return nil, err
	}
	items := buildItems(inv.ID, in.Items)
	if err := tx.Create(&items).Error; err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// Update recomputes totals and replaces the entire item set
// (delete-all-then-insert, never diffed). A status in the input must be a
// legal transition from the current one.
func (l *Lifecycle) Update(inv *models.Invoice, in UpdateInput) (*models.Invoice, error) {
	issue, due, err := l.resolveDates(in.IssueDate, in.DueDate)
	if err != nil {
		return nil, err
	}
	totals, err := ComputeTotals(in.Items, in.TaxRate)
	if err != nil {
		return nil, err
	}
	if err := l.checkReferences(inv.UserID, in.ClientID, in.ProjectID); err != nil {
		return nil, err
	}
	status := inv.Status
	if in.Status != "" {
		if !CanTransition(inv.Status, in.Status) {
			return nil, fmt.Errorf("%w: cannot transition %s to %s", ErrInvalidInput, inv.Status, in.Status)
		}
		status = in.Status
	}

	err = l.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		items := buildItems(inv.ID, in.Items)
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		updates := map[string]any{
			"client_id":    in.ClientID,
			"project_id":   in.ProjectID,
			"issue_date":   issue,
			"due_date":     due,
			"status":       status,
			"subtotal":     totals.Subtotal,
			"tax_rate":     in.TaxRate,
			"tax_amount":   totals.TaxAmount,
			"total_amount": totals.TotalAmount,
			"currency":     currencyOr(in.Currency),
			"notes":        in.Notes,
			"terms":        in.Terms,
		}
		if err := tx.Model(inv).Updates(updates).Error; err != nil {
			return err
		}
		inv.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// MarkPaid transitions any non-terminal invoice to paid. Calling it on an
// already paid invoice only refreshes the paid date.
func (l *Lifecycle) MarkPaid(inv *models.Invoice, paidDate *time.Time) (*models.Invoice, error) {
	if inv.Status == models.InvoiceStatusCancelled {
		return nil, fmt.Errorf("%w: cancelled invoice cannot be paid", ErrInvalidInput)
	}
	when := dateOnly(l.Clock.Now())
	if paidDate != nil {
		when = dateOnly(*paidDate)
	}
	err := l.DB.Model(inv).Updates(map[string]any{
		"status":    models.InvoiceStatusPaid,
		"paid_date": when,
	}).Error
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatusPaid
	inv.PaidDate = &when
	return inv, nil
}

// MarkOverdue transitions sent to overdue when the due date has passed.
// Anything else is a silent no-op, not an error.
func (l *Lifecycle) MarkOverdue(inv *models.Invoice) (*models.Invoice, error) {
	today := dateOnly(l.Clock.Now())
	if inv.Status != models.InvoiceStatusSent || !dateOnly(inv.DueDate).Before(today) {
		return inv, nil
	}
	if err := l.DB.Model(inv).Update("status", models.InvoiceStatusOverdue).Error; err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatusOverdue
	return inv, nil
}

// MarkOverdueBatch flips every sent invoice whose due date has passed.
// Runs as a daily job; also callable on demand.
func (l *Lifecycle) MarkOverdueBatch() (int64, error) {
	today := dateOnly(l.Clock.Now())
	res := l.DB.Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceStatusSent, today).
		Update("status", models.InvoiceStatusOverdue)
	return res.RowsAffected, res.Error
}

// Delete removes the invoice and its items. Ownership must already have been
// checked by the caller.
func (l *Lifecycle) Delete(inv *models.Invoice) error {
	return l.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(inv).Error
	})
}

// resolveDates defaults a zero issue date to today, rejects future issue
// dates, and derives the due date when absent.
func (l *Lifecycle) resolveDates(issue time.Time, due *time.Time) (time.Time, time.Time, error) {
	today := dateOnly(l.Clock.Now())
	if issue.IsZero() {
		issue = today
	} else {
		issue = dateOnly(issue)
	}
	if issue.After(today) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: issue date must not be in the future", ErrInvalidInput)
	}
	if due == nil {
		return issue, issue.AddDate(0, 0, l.Cfg.InvoiceDueDays), nil
	}
	d := dateOnly(*due)
	if !d.After(issue) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: due date must be after issue date", ErrInvalidInput)
	}
	return issue, d, nil
}

// checkReferences verifies the client (and project, when given) exist and
// belong to the user.
func (l *Lifecycle) checkReferences(userID, clientID uint, projectID *uint) error {
	var count int64
	if err := l.DB.Model(&models.Client{}).Where("id = ? AND user_id = ?", clientID, userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: client %d", ErrNotFound, clientID)
	}
	if projectID != nil {
		if err := l.DB.Model(&models.Project{}).Where("id = ? AND user_id = ?", *projectID, userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: project %d", ErrNotFound, *projectID)
		}
	}
	return nil
}

func buildItems(invoiceID uint, items []LineInput) []models.InvoiceItem {
	out := make([]models.InvoiceItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.InvoiceItem{
			InvoiceID:   invoiceID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.Quantity.Mul(it.UnitPrice).Round(2),
		})
	}
	return out
}

func currencyOr(c string) string {
	if c == "" {
		return "EUR"
	}
	return c
}
