package billing

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/models"
)

func TestCreateComputesTotalsAndNumber(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	inv, err := lc.Create(user.ID, CreateInput{
		ClientID: client.ID,
		TaxRate:  dec("20"),
		Items:    simpleItems(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.InvoiceNumber != "INV-0001" {
		t.Fatalf("number: want INV-0001 got %s", inv.InvoiceNumber)
	}
	if inv.Status != models.InvoiceStatusDraft {
		t.Fatalf("status: want draft got %s", inv.Status)
	}
	if !inv.Subtotal.Equal(dec("350")) || !inv.TaxAmount.Equal(dec("70")) || !inv.TotalAmount.Equal(dec("420")) {
		t.Fatalf("totals: got %s/%s/%s", inv.Subtotal, inv.TaxAmount, inv.TotalAmount)
	}
	// Issue defaults to today, due to issue + 14 days.
	if !inv.IssueDate.Equal(day(2025, time.March, 10)) {
		t.Fatalf("issue date: got %s", inv.IssueDate)
	}
	if !inv.DueDate.Equal(day(2025, time.March, 24)) {
		t.Fatalf("due date: got %s", inv.DueDate)
	}
	if len(inv.Items) != 2 {
		t.Fatalf("items: want 2 got %d", len(inv.Items))
	}
}

func TestCreateSequentialNumbers(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	want := []string{"INV-0001", "INV-0002", "INV-0003"}
	for _, w := range want {
		inv, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if inv.InvoiceNumber != w {
			t.Fatalf("want %s got %s", w, inv.InvoiceNumber)
		}
	}
}

func TestCreateRetriesOnceOnNumberCollision(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	// An invoice already holds INV-0005; the first allocation attempt
	// collides on purpose, the retry falls back to the real generator.
	seedInvoiceWithNumber(t, lc, user.ID, client.ID, "INV-0005")
	gen := NumberGenerator{Prefix: "INV-"}
	calls := 0
	lc.NumberFn = func(tx *gorm.DB, userID uint) (string, error) {
		calls++
		if calls == 1 {
			return "INV-0005", nil
		}
		return gen.Next(tx, userID)
	}

	inv, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
	if err != nil {
		t.Fatalf("create after collision: %v", err)
	}
	if inv.InvoiceNumber != "INV-0006" {
		t.Fatalf("want INV-0006 got %s", inv.InvoiceNumber)
	}
	if calls != 2 {
		t.Fatalf("want 2 allocation attempts got %d", calls)
	}
}

func TestCreatePersistentCollisionSurfacesError(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	seedInvoiceWithNumber(t, lc, user.ID, client.ID, "INV-0005")
	lc.NumberFn = func(tx *gorm.DB, userID uint) (string, error) {
		return "INV-0005", nil
	}

	_, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
	if !errors.Is(err, ErrDuplicateNumber) {
		t.Fatalf("want ErrDuplicateNumber got %v", err)
	}
	// The failed create must not leave a partial invoice behind.
	var count int64
	db.Model(&models.Invoice{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("want 1 invoice after rollback got %d", count)
	}
}

func TestCreateDateValidation(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	future := day(2025, time.March, 11)
	_, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, IssueDate: future, TaxRate: dec("20"), Items: simpleItems()})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("future issue date: want ErrInvalidInput got %v", err)
	}

	issue := day(2025, time.March, 1)
	_, err = lc.Create(user.ID, CreateInput{ClientID: client.ID, IssueDate: issue, DueDate: &issue, TaxRate: dec("20"), Items: simpleItems()})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("due == issue: want ErrInvalidInput got %v", err)
	}
}

func TestCreateRejectsForeignClient(t *testing.T) {
	db := setupBillingTestDB(t)
	user, _ := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	other := models.User{Name: "Other", Email: "other@example.com"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("other: %v", err)
	}
	foreign := models.Client{UserID: other.ID, Name: "TheirCo"}
	if err := db.Create(&foreign).Error; err != nil {
		t.Fatalf("foreign client: %v", err)
	}

	_, err := lc.Create(user.ID, CreateInput{ClientID: foreign.ID, TaxRate: dec("20"), Items: simpleItems()})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound got %v", err)
	}
}

func TestUpdateReplacesItemSet(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	inv, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	oldItemIDs := []uint{inv.Items[0].ID, inv.Items[1].ID}

	updated, err := lc.Update(inv, UpdateInput{CreateInput: CreateInput{
		ClientID:  client.ID,
		IssueDate: inv.IssueDate,
		TaxRate:   dec("21"),
		Items:     []LineInput{{Description: "New work", Quantity: dec("1"), UnitPrice: dec("500")}},
	}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Items) != 1 || updated.Items[0].Description != "New work" {
		t.Fatalf("items not replaced: %+v", updated.Items)
	}
	if !updated.TotalAmount.Equal(dec("605")) {
		t.Fatalf("total: want 605 got %s", updated.TotalAmount)
	}
	// Old rows are gone, not orphaned.
	var count int64
	db.Model(&models.InvoiceItem{}).Where("id IN ?", oldItemIDs).Count(&count)
	if count != 0 {
		t.Fatalf("old items still present: %d", count)
	}
	db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&count)
	if count != 1 {
		t.Fatalf("want 1 item row got %d", count)
	}
}

func TestUpdateStatusTransitionLegality(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	inv, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// draft -> overdue is not reachable.
	_, err = lc.Update(inv, UpdateInput{
		CreateInput: CreateInput{ClientID: client.ID, IssueDate: inv.IssueDate, TaxRate: dec("20"), Items: simpleItems()},
		Status:      models.InvoiceStatusOverdue,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("draft->overdue: want ErrInvalidInput got %v", err)
	}

	// draft -> sent is.
	updated, err := lc.Update(inv, UpdateInput{
		CreateInput: CreateInput{ClientID: client.ID, IssueDate: inv.IssueDate, TaxRate: dec("20"), Items: simpleItems()},
		Status:      models.InvoiceStatusSent,
	})
	if err != nil {
		t.Fatalf("draft->sent: %v", err)
	}
	if updated.Status != models.InvoiceStatusSent {
		t.Fatalf("status: want sent got %s", updated.Status)
	}
}

func TestMarkPaid(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	now := day(2025, time.March, 10)
	lc := newTestLifecycle(t, db, now)

	inv, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	paid, err := lc.MarkPaid(inv, nil)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != models.InvoiceStatusPaid {
		t.Fatalf("status: want paid got %s", paid.Status)
	}
	if paid.PaidDate == nil || !paid.PaidDate.Equal(now) {
		t.Fatalf("paid date: got %v", paid.PaidDate)
	}

	// Idempotent: paying again refreshes the date and stays paid.
	later := day(2025, time.March, 12)
	paid, err = lc.MarkPaid(paid, &later)
	if err != nil {
		t.Fatalf("mark paid twice: %v", err)
	}
	if !paid.PaidDate.Equal(later) {
		t.Fatalf("paid date after second call: got %v", paid.PaidDate)
	}
}

func TestMarkPaidRejectsCancelled(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	inv, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Model(inv).Update("status", models.InvoiceStatusCancelled).Error; err != nil {
		t.Fatalf("cancel: %v", err)
	}
	inv.Status = models.InvoiceStatusCancelled

	if _, err := lc.MarkPaid(inv, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput got %v", err)
	}
}

func TestMarkOverdue(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 1))

	inv, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.Model(inv).Update("status", models.InvoiceStatusSent).Error; err != nil {
		t.Fatalf("send: %v", err)
	}
	inv.Status = models.InvoiceStatusSent

	// Not yet due: silent no-op.
	got, err := lc.MarkOverdue(inv)
	if err != nil {
		t.Fatalf("mark overdue early: %v", err)
	}
	if got.Status != models.InvoiceStatusSent {
		t.Fatalf("status flipped early: %s", got.Status)
	}

	// Due date passed.
	lc.Clock = FixedClock{T: day(2025, time.March, 20)}
	got, err = lc.MarkOverdue(inv)
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if got.Status != models.InvoiceStatusOverdue {
		t.Fatalf("status: want overdue got %s", got.Status)
	}

	// Draft invoices are never flipped, even past due.
	draft, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, IssueDate: day(2025, time.March, 1), TaxRate: dec("20"), Items: simpleItems()})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	got, err = lc.MarkOverdue(draft)
	if err != nil {
		t.Fatalf("mark overdue draft: %v", err)
	}
	if got.Status != models.InvoiceStatusDraft {
		t.Fatalf("draft flipped: %s", got.Status)
	}
}

func TestMarkOverdueBatch(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 1))

	mk := func(status string, due time.Time) models.Invoice {
		inv := models.Invoice{
			UserID: user.ID, ClientID: client.ID,
			InvoiceNumber: "", Status: status,
			IssueDate: day(2025, time.February, 1), DueDate: due, Currency: "EUR",
		}
		inv.InvoiceNumber = status + "-" + due.Format("20060102")
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
		return inv
	}
	lapsedSent := mk(models.InvoiceStatusSent, day(2025, time.February, 20))
	currentSent := mk(models.InvoiceStatusSent, day(2025, time.March, 20))
	lapsedDraft := mk(models.InvoiceStatusDraft, day(2025, time.February, 20))

	n, err := lc.MarkOverdueBatch()
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 flipped got %d", n)
	}
	check := func(id uint, want string) {
		var inv models.Invoice
		if err := db.First(&inv, id).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		if inv.Status != want {
			t.Fatalf("invoice %d: want %s got %s", id, want, inv.Status)
		}
	}
	check(lapsedSent.ID, models.InvoiceStatusOverdue)
	check(currentSent.ID, models.InvoiceStatusSent)
	check(lapsedDraft.ID, models.InvoiceStatusDraft)
}

func TestDeleteCascadesItems(t *testing.T) {
	db := setupBillingTestDB(t)
	user, client := seedUserAndClient(t, db)
	lc := newTestLifecycle(t, db, day(2025, time.March, 10))

	inv, err := lc.Create(user.ID, CreateInput{ClientID: client.ID, TaxRate: dec("20"), Items: simpleItems()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := lc.Delete(inv); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var count int64
	db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&count)
	if count != 0 {
		t.Fatalf("items left behind: %d", count)
	}
	db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Count(&count)
	if count != 0 {
		t.Fatalf("invoice left behind")
	}
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{models.InvoiceStatusDraft, models.InvoiceStatusSent, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusCancelled, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusOverdue, false},
		{models.InvoiceStatusSent, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusSent, models.InvoiceStatusOverdue, true},
		{models.InvoiceStatusSent, models.InvoiceStatusDraft, false},
		{models.InvoiceStatusOverdue, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusOverdue, models.InvoiceStatusCancelled, true},
		{models.InvoiceStatusPaid, models.InvoiceStatusCancelled, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusSent, false},
		{models.InvoiceStatusCancelled, models.InvoiceStatusSent, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusPaid, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s): want %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}
