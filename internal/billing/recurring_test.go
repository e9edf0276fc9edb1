package billing

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/factuurlab/factuur/internal/models"
)

func newTemplate(t *testing.T, lc *Lifecycle, userID, clientID uint, frequency string, start time.Time) *models.RecurringInvoice {
	t.Helper()
	snapshot, err := json.Marshal(TemplateData{
		TaxRate:  dec("20"),
		Currency: "EUR",
		Items:    simpleItems(),
	})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	tpl := &models.RecurringInvoice{
		UserID:       userID,
		ClientID:     clientID,
		TemplateName: "Monthly retainer",
		InvoiceData:  snapshot,
		Frequency:    frequency,
		IsActive:     true,
		StartDate:    start,
	}
	if err := lc.DB.Create(tpl).Error; err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func TestIsDue(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.January, 15))
	s := NewScheduler(db, lc)

	tpl := newTemplate(t, lc, user.ID, client.ID, models.FrequencyMonthly, day(2025, time.January, 15))

	cases := []struct {
		name  string
		prep  func(tpl *models.RecurringInvoice)
		today time.Time
		want  bool
	}{
		{"before start", func(*models.RecurringInvoice) {}, day(2025, time.January, 14), false},
		{"on start, never generated", func(*models.RecurringInvoice) {}, day(2025, time.January, 15), true},
		{"after start, never generated", func(*models.RecurringInvoice) {}, day(2025, time.February, 1), true},
		{"one period elapsed", func(tpl *models.RecurringInvoice) {
			lg := day(2025, time.January, 15)
			tpl.LastGenerated = &lg
		}, day(2025, time.February, 15), true},
		{"period not yet elapsed", func(tpl *models.RecurringInvoice) {
			lg := day(2025, time.January, 15)
			tpl.LastGenerated = &lg
		}, day(2025, time.February, 14), false},
		{"inactive", func(tpl *models.RecurringInvoice) {
			tpl.IsActive = false
		}, day(2025, time.February, 15), false},
		{"past end date", func(tpl *models.RecurringInvoice) {
			end := day(2025, time.January, 31)
			tpl.EndDate = &end
		}, day(2025, time.February, 15), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cp := *tpl
			cp.LastGenerated = nil
			cp.EndDate = nil
			cp.IsActive = true
			tc.prep(&cp)
			got, err := s.IsDue(&cp, tc.today)
			if err != nil {
				t.Fatalf("isDue: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want %v got %v", tc.want, got)
			}
		})
	}
}

func TestNextDueCalendarArithmetic(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.January, 15))
	s := NewScheduler(db, lc)

	cases := []struct {
		frequency string
		last      time.Time
		want      time.Time
	}{
		{models.FrequencyWeekly, day(2025, time.January, 15), day(2025, time.January, 22)},
		{models.FrequencyMonthly, day(2025, time.January, 15), day(2025, time.February, 15)},
		{models.FrequencyQuarterly, day(2025, time.January, 15), day(2025, time.April, 15)},
		{models.FrequencyYearly, day(2025, time.January, 15), day(2026, time.January, 15)},
		// Month-end rollover follows time.AddDate.
		{models.FrequencyMonthly, day(2025, time.January, 31), day(2025, time.March, 3)},
	}
	tpl := newTemplate(t, lc, user.ID, client.ID, models.FrequencyMonthly, day(2025, time.January, 15))
	for _, tc := range cases {
		cp := *tpl
		cp.Frequency = tc.frequency
		cp.LastGenerated = &tc.last
		got, err := s.NextDue(&cp)
		if err != nil {
			t.Fatalf("nextDue(%s): %v", tc.frequency, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("nextDue(%s, %s): want %s got %s", tc.frequency, tc.last.Format("2006-01-02"), tc.want.Format("2006-01-02"), got.Format("2006-01-02"))
		}
	}
}

func TestNextDueUsesStartDateWhenNeverGenerated(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.January, 15))
	s := NewScheduler(db, lc)

	tpl := newTemplate(t, lc, user.ID, client.ID, models.FrequencyWeekly, day(2025, time.January, 15))
	got, err := s.NextDue(tpl)
	if err != nil {
		t.Fatalf("nextDue: %v", err)
	}
	if !got.Equal(day(2025, time.January, 22)) {
		t.Fatalf("want 2025-01-22 got %s", got.Format("2006-01-02"))
	}
}

func TestUnsupportedFrequency(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.January, 15))
	s := NewScheduler(db, lc)

	tpl := newTemplate(t, lc, user.ID, client.ID, "daily", day(2025, time.January, 15))
	lg := day(2025, time.January, 15)
	tpl.LastGenerated = &lg

	if _, err := s.NextDue(tpl); !errors.Is(err, ErrUnsupportedFrequency) {
		t.Fatalf("nextDue: want ErrUnsupportedFrequency got %v", err)
	}
	if _, err := s.Generate(tpl, day(2025, time.February, 15)); !errors.Is(err, ErrUnsupportedFrequency) {
		t.Fatalf("generate: want ErrUnsupportedFrequency got %v", err)
	}
}

func TestGenerateCreatesDraftAndAdvancesTemplate(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.January, 15))
	s := NewScheduler(db, lc)

	tpl := newTemplate(t, lc, user.ID, client.ID, models.FrequencyMonthly, day(2025, time.January, 15))
	today := day(2025, time.January, 15)

	inv, err := s.Generate(tpl, today)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if inv.Status != models.InvoiceStatusDraft {
		t.Fatalf("status: want draft got %s", inv.Status)
	}
	if !inv.IssueDate.Equal(today) {
		t.Fatalf("issue: got %s", inv.IssueDate)
	}
	if !inv.DueDate.Equal(day(2025, time.January, 29)) {
		t.Fatalf("due: got %s", inv.DueDate)
	}
	if !inv.TotalAmount.Equal(dec("420")) {
		t.Fatalf("total: got %s", inv.TotalAmount)
	}

	var reloaded models.RecurringInvoice
	if err := db.First(&reloaded, tpl.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.LastGenerated == nil || !reloaded.LastGenerated.Equal(today) {
		t.Fatalf("last_generated: got %v", reloaded.LastGenerated)
	}
	if reloaded.NextDue == nil || !reloaded.NextDue.Equal(day(2025, time.February, 15)) {
		t.Fatalf("next_due: got %v", reloaded.NextDue)
	}
}

func TestGenerateGuardsAgainstDoubleRun(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.January, 15))
	s := NewScheduler(db, lc)

	tpl := newTemplate(t, lc, user.ID, client.ID, models.FrequencyMonthly, day(2025, time.January, 15))
	today := day(2025, time.January, 15)

	if _, err := s.Generate(tpl, today); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	// A second run for the same day loses the conditional update.
	var stale models.RecurringInvoice
	if err := db.First(&stale, tpl.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := s.Generate(&stale, today); !errors.Is(err, ErrAlreadyGenerated) {
		t.Fatalf("want ErrAlreadyGenerated got %v", err)
	}
	var count int64
	db.Model(&models.Invoice{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("want exactly 1 generated invoice got %d", count)
	}
}

func TestDueTemplates(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.January, 15))
	s := NewScheduler(db, lc)

	never := newTemplate(t, lc, user.ID, client.ID, models.FrequencyMonthly, day(2025, time.January, 1))

	generated := newTemplate(t, lc, user.ID, client.ID, models.FrequencyMonthly, day(2024, time.December, 1))
	lg := day(2024, time.December, 15)
	nd := day(2025, time.January, 15)
	db.Model(generated).Updates(map[string]any{"last_generated": lg, "next_due": nd})

	inactive := newTemplate(t, lc, user.ID, client.ID, models.FrequencyMonthly, day(2025, time.January, 1))
	db.Model(inactive).Update("is_active", false)

	notYet := newTemplate(t, lc, user.ID, client.ID, models.FrequencyMonthly, day(2025, time.January, 1))
	lg2 := day(2025, time.January, 10)
	nd2 := day(2025, time.February, 10)
	db.Model(notYet).Updates(map[string]any{"last_generated": lg2, "next_due": nd2})

	got, err := s.DueTemplates(day(2025, time.January, 15))
	if err != nil {
		t.Fatalf("dueTemplates: %v", err)
	}
	ids := map[uint]bool{}
	for _, tpl := range got {
		ids[tpl.ID] = true
	}
	if !ids[never.ID] || !ids[generated.ID] {
		t.Fatalf("missing due templates: %v", ids)
	}
	if ids[inactive.ID] || ids[notYet.ID] {
		t.Fatalf("non-due templates returned: %v", ids)
	}
}
