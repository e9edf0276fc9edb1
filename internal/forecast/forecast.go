// Package forecast projects cash flow from invoice and expense history.
package forecast

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/models"
)

const (
	historyMonths = 12
	avgWindow     = 3
)

// MonthPoint is one month of observed history, Month formatted YYYY-MM.
type MonthPoint struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// Projection is the next-month estimate with the inputs it was derived from.
type Projection struct {
	Month             string          `json:"month"`
	ProjectedIncome   decimal.Decimal `json:"projected_income"`
	ProjectedExpenses decimal.Decimal `json:"projected_expenses"`
	ProjectedNet      decimal.Decimal `json:"projected_net"`
}

// Report is the full forecast payload.
type Report struct {
	History    []MonthPoint `json:"history"`
	Projection Projection   `json:"projection"`
}

type Service struct {
	DB    *gorm.DB
	Clock billing.Clock
}

func NewService(db *gorm.DB, clock billing.Clock) *Service {
	return &Service{DB: db, Clock: clock}
}

// Build assembles twelve months of history and a damped moving-average
// projection for the month after the current one. Income counts paid
// invoices by paid date; expenses count by expense date.
func (s *Service) Build(userID uint) (Report, error) {
	now := s.Clock.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(historyMonths - 1), 0)

	income, err := s.incomeByMonth(userID, start)
	if err != nil {
		return Report{}, err
	}
	expenses, err := s.expensesByMonth(userID, start)
	if err != nil {
		return Report{}, err
	}

	history := make([]MonthPoint, 0, historyMonths)
	for i := 0; i < historyMonths; i++ {
		m := start.AddDate(0, i, 0).Format("2006-01")
		in := income[m]
		ex := expenses[m]
		history = append(history, MonthPoint{
			Month:    m,
			Income:   in.Round(2),
			Expenses: ex.Round(2),
			Net:      in.Sub(ex).Round(2),
		})
	}

	projIncome := project(values(history, func(p MonthPoint) decimal.Decimal { return p.Income }))
	projExpenses := project(values(history, func(p MonthPoint) decimal.Decimal { return p.Expenses }))
	nextMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)

	return Report{
		History: history,
		Projection: Projection{
			Month:             nextMonth.Format("2006-01"),
			ProjectedIncome:   projIncome,
			ProjectedExpenses: projExpenses,
			ProjectedNet:      projIncome.Sub(projExpenses).Round(2),
		},
	}, nil
}

func (s *Service) incomeByMonth(userID uint, since time.Time) (map[string]decimal.Decimal, error) {
	var invoices []models.Invoice
	err := s.DB.
		Where("user_id = ? AND status = ? AND paid_date >= ?", userID, models.InvoiceStatusPaid, since).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	out := map[string]decimal.Decimal{}
	for _, inv := range invoices {
		if inv.PaidDate == nil {
			continue
		}
		m := inv.PaidDate.Format("2006-01")
		out[m] = out[m].Add(inv.TotalAmount)
	}
	return out, nil
}

func (s *Service) expensesByMonth(userID uint, since time.Time) (map[string]decimal.Decimal, error) {
	var rows []models.Expense
	err := s.DB.
		Where("user_id = ? AND expense_date >= ?", userID, since).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[string]decimal.Decimal{}
	for _, e := range rows {
		m := e.ExpenseDate.Format("2006-01")
		out[m] = out[m].Add(e.Amount)
	}
	return out, nil
}

// project estimates the next value from a monthly series: the average of the
// trailing window blended half-and-half with the last value scaled by recent
// growth, clamped at zero. Damping keeps one strong month from exploding the
// estimate.
func project(series []decimal.Decimal) decimal.Decimal {
	if len(series) == 0 {
		return decimal.Zero
	}
	window := series
	if len(window) > avgWindow {
		window = window[len(window)-avgWindow:]
	}
	sum := decimal.Zero
	for _, v := range window {
		sum = sum.Add(v)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(window))))

	last := series[len(series)-1]
	growth := decimal.NewFromInt(1)
	if len(series) >= 2 && series[len(series)-2].IsPositive() {
		growth = last.Div(series[len(series)-2])
	}

	half := decimal.NewFromFloat(0.5)
	next := last.Mul(growth).Mul(half).Add(avg.Mul(half))
	if next.IsNegative() {
		next = decimal.Zero
	}
	return next.Round(2)
}

func values(points []MonthPoint, f func(MonthPoint) decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(points))
	for i, p := range points {
		out[i] = f(p)
	}
	return out
}
