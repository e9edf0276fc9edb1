package billing

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/models"
)

// NumberGenerator derives the next sequential invoice number for a user from
// the numbers already persisted. Two concurrent creations may compute the
// same candidate; the composite unique index on (user_id, invoice_number)
// decides the race and the loser retries with a fresh number.
type NumberGenerator struct {
	Prefix string
}

// Next scans the user's invoice numbers carrying the prefix, takes the
// highest numeric suffix (non-digits stripped) and returns prefix plus the
// incremented value, zero-padded to 4 digits. Past 9999 the field simply
// grows wider.
func (g NumberGenerator) Next(tx *gorm.DB, userID uint) (string, error) {
	var numbers []string
	err := tx.Model(&models.Invoice{}).
		Where("user_id = ? AND invoice_number LIKE ?", userID, g.Prefix+"%").
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return "", fmt.Errorf("load invoice numbers: %w", err)
	}

	highest := 0
	for _, n := range numbers {
		suffix := digitsOf(strings.TrimPrefix(n, g.Prefix))
		if suffix == "" {
			continue
		}
		v, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if v > highest {
			highest = v
		}
	}

	next := highest + 1
	if next < 1 {
		next = 1
	}
	return fmt.Sprintf("%s%04d", g.Prefix, next), nil
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
