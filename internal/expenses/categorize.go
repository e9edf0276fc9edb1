package expenses

import (
	"regexp"
	"strings"

	"github.com/factuurlab/factuur/internal/models"
)

var vendorSplitRe = regexp.MustCompile(`[\s\-_]+`)

// descriptionKeywords backs the fallback categorization when the vendor is
// unknown.
var descriptionKeywords = map[string][]string{
	"software":  {"software", "app", "subscription", "saas", "license"},
	"travel":    {"flight", "hotel", "taxi", "uber", "train", "travel", "trip"},
	"office":    {"office", "stationery", "supplies"},
	"marketing": {"advertising", "marketing", "promotion", "social media"},
	"utilities": {"electricity", "water", "internet", "phone", "utility"},
	"meals":     {"restaurant", "food", "lunch", "dinner", "coffee"},
	"transport": {"fuel", "gas", "parking", "toll", "car"},
	"equipment": {"laptop", "monitor", "hardware", "equipment"},
}

// Categorize suggests a category for a new expense: exact vendor match from
// the user's history first, then partial vendor-word match, then description
// keywords. Empty result means no suggestion.
func (s *Service) Categorize(userID uint, vendor, description string) (string, error) {
	patterns, err := s.vendorPatterns(userID)
	if err != nil {
		return "", err
	}
	v := strings.ToLower(strings.TrimSpace(vendor))
	if v != "" {
		if cat, ok := patterns[v]; ok {
			return cat, nil
		}
		for pattern, cat := range patterns {
			if strings.Contains(v, pattern) {
				return cat, nil
			}
		}
	}
	if description != "" {
		return categorizeByDescription(description), nil
	}
	return "", nil
}

// vendorPatterns maps lowercased vendors, and their individual words, to the
// category the user assigned before.
func (s *Service) vendorPatterns(userID uint) (map[string]string, error) {
	var rows []models.Expense
	err := s.DB.
		Where("user_id = ? AND vendor <> '' AND category <> ''", userID).
		Select("vendor", "category").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	patterns := make(map[string]string, len(rows))
	for _, e := range rows {
		vendor := strings.ToLower(e.Vendor)
		patterns[vendor] = e.Category
		for _, word := range vendorSplitRe.Split(vendor, -1) {
			if len(word) > 2 {
				patterns[word] = e.Category
			}
		}
	}
	return patterns, nil
}

func categorizeByDescription(description string) string {
	d := strings.ToLower(description)
	for category, words := range descriptionKeywords {
		for _, w := range words {
			if strings.Contains(d, w) {
				return category
			}
		}
	}
	return ""
}
