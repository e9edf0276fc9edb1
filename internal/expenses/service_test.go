package expenses

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/billing"
	"github.com/factuurlab/factuur/internal/models"
)

// testNow pins "now" so the trailing-window queries are deterministic.
var testNow = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func newTestService(db *gorm.DB) *Service {
	return NewService(db, billing.FixedClock{T: testNow})
}

func setupExpensesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Client{}, &models.Project{}, &models.Expense{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedExpenses(t *testing.T, db *gorm.DB) uint {
	t.Helper()
	user := models.User{Name: "Owner", Email: "owner@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	rows := []models.Expense{
		{UserID: user.ID, Description: "Figma subscription", Vendor: "Figma", Category: "software", Amount: dec("15.00"), ExpenseDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), IsBillable: false},
		{UserID: user.ID, Description: "Client lunch", Vendor: "Bistro", Category: "meals", Amount: dec("42.50"), ExpenseDate: time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), IsBillable: true},
		{UserID: user.ID, Description: "Train to client", Vendor: "NS", Category: "travel", Amount: dec("23.40"), ExpenseDate: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), IsBillable: true},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("expense: %v", err)
		}
	}
	return user.ID
}

func TestListFilters(t *testing.T) {
	db := setupExpensesTestDB(t)
	userID := seedExpenses(t, db)
	svc := newTestService(db)

	all, total, err := svc.List(userID, Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("want 3 got total=%d len=%d", total, len(all))
	}
	// Newest first.
	if all[0].Vendor != "NS" {
		t.Fatalf("order: want NS first got %s", all[0].Vendor)
	}

	billable := true
	got, total, err := svc.List(userID, Filters{IsBillable: &billable})
	if err != nil {
		t.Fatalf("list billable: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("billable: want 2 got %d", total)
	}

	got, total, err = svc.List(userID, Filters{Category: "software"})
	if err != nil {
		t.Fatalf("list category: %v", err)
	}
	if total != 1 || got[0].Vendor != "Figma" {
		t.Fatalf("category filter: %+v", got)
	}

	_, total, err = svc.List(userID, Filters{DateFrom: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)})
	if err != nil {
		t.Fatalf("list from: %v", err)
	}
	if total != 1 {
		t.Fatalf("date filter: want 1 got %d", total)
	}
}

func TestStats(t *testing.T) {
	db := setupExpensesTestDB(t)
	userID := seedExpenses(t, db)
	svc := newTestService(db)

	st, err := svc.Stats(userID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalExpenses != 3 {
		t.Fatalf("count: want 3 got %d", st.TotalExpenses)
	}
	if !st.TotalAmount.Equal(dec("80.90")) {
		t.Fatalf("total: want 80.90 got %s", st.TotalAmount)
	}
	if !st.BillableAmount.Equal(dec("65.90")) {
		t.Fatalf("billable: want 65.90 got %s", st.BillableAmount)
	}
	if !st.NonBillableAmount.Equal(dec("15.00")) {
		t.Fatalf("non-billable: want 15.00 got %s", st.NonBillableAmount)
	}
}

func TestByCategorySortedByTotal(t *testing.T) {
	db := setupExpensesTestDB(t)
	userID := seedExpenses(t, db)
	svc := newTestService(db)

	got, err := svc.ByCategory(userID)
	if err != nil {
		t.Fatalf("byCategory: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 categories got %d", len(got))
	}
	if got[0].Category != "meals" {
		t.Fatalf("largest first: got %s", got[0].Category)
	}
}

func TestMonthlyUsesInjectedClock(t *testing.T) {
	db := setupExpensesTestDB(t)
	userID := seedExpenses(t, db)
	svc := newTestService(db)

	got, err := svc.Monthly(userID, 12)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 months got %+v", got)
	}
	if got[0].Month != "2025-01" || !got[0].Total.Equal(dec("57.50")) {
		t.Fatalf("january: %+v", got[0])
	}
	if got[1].Month != "2025-02" || !got[1].Total.Equal(dec("23.40")) {
		t.Fatalf("february: %+v", got[1])
	}

	// A one-month window, measured from the pinned clock, drops January.
	got, err = svc.Monthly(userID, 1)
	if err != nil {
		t.Fatalf("monthly(1): %v", err)
	}
	if len(got) != 1 || got[0].Month != "2025-02" {
		t.Fatalf("window: %+v", got)
	}
}

func TestCategorizeFromVendorHistory(t *testing.T) {
	db := setupExpensesTestDB(t)
	userID := seedExpenses(t, db)
	svc := newTestService(db)

	cat, err := svc.Categorize(userID, "Figma", "")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if cat != "software" {
		t.Fatalf("exact vendor: want software got %q", cat)
	}

	// Partial vendor match via the split words.
	cat, err = svc.Categorize(userID, "Figma Inc.", "")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if cat != "software" {
		t.Fatalf("partial vendor: want software got %q", cat)
	}
}

func TestCategorizeFallsBackToDescription(t *testing.T) {
	db := setupExpensesTestDB(t)
	userID := seedExpenses(t, db)
	svc := newTestService(db)

	cat, err := svc.Categorize(userID, "Unknown Vendor", "Hotel for the conference trip")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if cat != "travel" {
		t.Fatalf("description keywords: want travel got %q", cat)
	}

	cat, err = svc.Categorize(userID, "Unknown Vendor", "Completely unrelated")
	if err != nil {
		t.Fatalf("categorize: %v", err)
	}
	if cat != "" {
		t.Fatalf("no signal: want empty got %q", cat)
	}
}
