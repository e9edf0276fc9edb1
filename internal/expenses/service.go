package expenses

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/models"
)

// Filters narrows an expense listing. Zero values mean "no filter".
type Filters struct {
	Category   string
	ProjectID  uint
	DateFrom   time.Time
	DateTo     time.Time
	IsBillable *bool
	Limit      int
	Offset     int
}

// Statistics is the per-user expense rollup for the dashboard.
type Statistics struct {
	TotalExpenses     int64           `json:"total_expenses"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	BillableAmount    decimal.Decimal `json:"billable_amount"`
	NonBillableAmount decimal.Decimal `json:"non_billable_amount"`
}

// CategoryTotal is one row of the by-category breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int64           `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

// MonthTotal is one row of the monthly aggregation, Month formatted YYYY-MM.
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type Service struct {
	DB    *gorm.DB
	Clock billing.Clock
}

func NewService(db *gorm.DB, clock billing.Clock) *Service {
	return &Service{DB: db, Clock: clock}
}

// List returns the user's expenses newest-first, with filters applied, plus
// the unpaginated total.
func (s *Service) List(userID uint, f Filters) ([]models.Expense, int64, error) {
	q := s.DB.Model(&models.Expense{}).Where("user_id = ?", userID)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.ProjectID != 0 {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if !f.DateFrom.IsZero() {
		q = q.Where("expense_date >= ?", f.DateFrom)
	}
	if !f.DateTo.IsZero() {
		q = q.Where("expense_date <= ?", f.DateTo)
	}
	if f.IsBillable != nil {
		q = q.Where("is_billable = ?", *f.IsBillable)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 15
	}
	var out []models.Expense
	err := q.Preload("Project").Order("expense_date desc").Limit(limit).Offset(f.Offset).Find(&out).Error
	return out, total, err
}

func (s *Service) Create(userID uint, e *models.Expense) error {
	e.UserID = userID
	return s.DB.Create(e).Error
}

func (s *Service) Update(e *models.Expense) error {
	return s.DB.Save(e).Error
}

func (s *Service) Delete(e *models.Expense) error {
	return s.DB.Delete(e).Error
}

// Stats aggregates in one pass over the user's rows. Sums are decimal so the
// dashboard math matches the invoices.
func (s *Service) Stats(userID uint) (Statistics, error) {
	var expenses []models.Expense
	if err := s.DB.Where("user_id = ?", userID).Find(&expenses).Error; err != nil {
		return Statistics{}, err
	}
	st := Statistics{
		TotalAmount:       decimal.Zero,
		BillableAmount:    decimal.Zero,
		NonBillableAmount: decimal.Zero,
	}
	for _, e := range expenses {
		st.TotalExpenses++
		st.TotalAmount = st.TotalAmount.Add(e.Amount)
		if e.IsBillable {
			st.BillableAmount = st.BillableAmount.Add(e.Amount)
		} else {
			st.NonBillableAmount = st.NonBillableAmount.Add(e.Amount)
		}
	}
	return st, nil
}

// ByCategory returns totals per category, largest first.
func (s *Service) ByCategory(userID uint) ([]CategoryTotal, error) {
	var expenses []models.Expense
	if err := s.DB.Where("user_id = ?", userID).Find(&expenses).Error; err != nil {
		return nil, err
	}
	byCat := map[string]*CategoryTotal{}
	var order []string
	for _, e := range expenses {
		ct, ok := byCat[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCat[e.Category] = ct
			order = append(order, e.Category)
		}
		ct.Count++
		ct.Total = ct.Total.Add(e.Amount)
	}
	out := make([]CategoryTotal, 0, len(order))
	for _, c := range order {
		out = append(out, *byCat[c])
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Total.GreaterThan(out[i].Total) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// Monthly returns per-month totals over the trailing window.
func (s *Service) Monthly(userID uint, months int) ([]MonthTotal, error) {
	since := s.Clock.Now().AddDate(0, -months, 0)
	var expenses []models.Expense
	err := s.DB.
		Where("user_id = ? AND expense_date >= ?", userID, since).
		Order("expense_date").
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}
	byMonth := map[string]decimal.Decimal{}
	var order []string
	for _, e := range expenses {
		m := e.ExpenseDate.Format("2006-01")
		if _, ok := byMonth[m]; !ok {
			order = append(order, m)
		}
		byMonth[m] = byMonth[m].Add(e.Amount)
	}
	out := make([]MonthTotal, 0, len(order))
	for _, m := range order {
		out = append(out, MonthTotal{Month: m, Total: byMonth[m]})
	}
	return out, nil
}

// Categories is the suggested category set shown in the UI.
func Categories() []string {
	return []string{"office", "travel", "marketing", "software", "equipment", "training", "utilities", "meals", "transport", "other"}
}
