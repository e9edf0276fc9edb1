package billing

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/config"
	"github.com/factuurlab/factuur/internal/models"
)

func setupBillingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUserAndClient(t *testing.T, db *gorm.DB) (models.User, models.Client) {
	t.Helper()
	user := models.User{Name: "Tester", Email: "tester@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	client := models.Client{UserID: user.ID, Name: "ClientCo", Email: "billing@clientco.test"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return user, client
}

func testBillingConfig() config.Billing {
	return config.Billing{InvoicePrefix: "INV-", InvoiceDueDays: 14}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestLifecycle(t *testing.T, db *gorm.DB, now time.Time) *Lifecycle {
	t.Helper()
	return NewLifecycle(db, testBillingConfig(), FixedClock{T: now})
}

func simpleItems() []LineInput {
	return []LineInput{
		{Description: "Consulting", Quantity: dec("2"), UnitPrice: dec("100")},
		{Description: "Support", Quantity: dec("3"), UnitPrice: dec("50")},
	}
}
