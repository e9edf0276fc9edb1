// Package clients holds client-side business logic beyond plain CRUD,
// notably duplicate detection used before a new client is saved.
package clients

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"gorm.io/gorm"

	"github.com/factuurlab/factuur/internal/models"
)

// Confidence thresholds. Exact email and VAT matches are certain; phone is
// near-certain; names count from 80% Levenshtein similarity up.
const (
	confidenceExact   = 100
	confidencePhone   = 90
	nameSimilarityMin = 80
)

// Match is one potential duplicate of the candidate client data.
type Match struct {
	Type       string        `json:"type"` // email, vat, phone, name
	Client     models.Client `json:"client"`
	Confidence int           `json:"confidence"`
	Reason     string        `json:"reason"`
}

// CandidateInput is the not-yet-saved client being checked.
type CandidateInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	VATNumber string `json:"vat_number"`
}

// DuplicateDetector scans a user's existing clients for likely duplicates.
type DuplicateDetector struct {
	DB *gorm.DB
}

func NewDuplicateDetector(db *gorm.DB) *DuplicateDetector {
	return &DuplicateDetector{DB: db}
}

// FindDuplicates returns matches sorted by confidence, each existing client
// reported at most once (highest-confidence signal wins).
func (d *DuplicateDetector) FindDuplicates(userID uint, in CandidateInput) ([]Match, error) {
	var matches []Match

	exact := func(column, value, matchType, reason string, confidence int) error {
		if value == "" {
			return nil
		}
		var found []models.Client
		if err := d.DB.Where("user_id = ? AND "+column+" = ?", userID, value).Find(&found).Error; err != nil {
			return err
		}
		for _, c := range found {
			matches = append(matches, Match{Type: matchType, Client: c, Confidence: confidence, Reason: reason})
		}
		return nil
	}

	if err := exact("email", in.Email, "email", "identical email address", confidenceExact); err != nil {
		return nil, err
	}
	if err := exact("vat_number", in.VATNumber, "vat", "identical VAT number", confidenceExact); err != nil {
		return nil, err
	}
	if err := exact("phone", in.Phone, "phone", "identical phone number", confidencePhone); err != nil {
		return nil, err
	}

	if in.Name != "" {
		var all []models.Client
		if err := d.DB.Where("user_id = ?", userID).Find(&all).Error; err != nil {
			return nil, err
		}
		for _, c := range all {
			sim := NameSimilarity(in.Name, c.Name)
			if sim >= nameSimilarityMin {
				matches = append(matches, Match{
					Type: "name", Client: c, Confidence: sim,
					Reason: "similar name",
				})
			}
		}
	}

	matches = dedupe(matches)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Confidence > matches[j].Confidence })
	return matches, nil
}

// NameSimilarity scores two names 0..100 using Levenshtein distance over the
// lowercased, trimmed forms.
func NameSimilarity(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		if a == "" {
			return 0
		}
		return 100
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	sim := float64(longest-dist) / float64(longest) * 100
	return int(sim + 0.5)
}

func dedupe(matches []Match) []Match {
	idx := make(map[uint]int, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if i, ok := idx[m.Client.ID]; ok {
			if m.Confidence > out[i].Confidence {
				out[i] = m
			}
			continue
		}
		idx[m.Client.ID] = len(out)
		out = append(out, m)
	}
	return out
}

// MergeSuggestion proposes field values for merging the two highest matches:
// the primary wins, the secondary fills gaps, notes are concatenated.
type MergeSuggestion struct {
	Primary   models.Client     `json:"primary_client"`
	Secondary models.Client     `json:"secondary_client"`
	MergeData map[string]string `json:"merge_data"`
}

// SuggestMerge requires at least two matches; otherwise nil.
func SuggestMerge(matches []Match) *MergeSuggestion {
	if len(matches) < 2 {
		return nil
	}
	p, s := matches[0].Client, matches[1].Client
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return &MergeSuggestion{
		Primary:   p,
		Secondary: s,
		MergeData: map[string]string{
			"name":        pick(p.Name, s.Name),
			"email":       pick(p.Email, s.Email),
			"phone":       pick(p.Phone, s.Phone),
			"vat_number":  pick(p.VATNumber, s.VATNumber),
			"address":     pick(p.Address, s.Address),
			"city":        pick(p.City, s.City),
			"postal_code": pick(p.PostalCode, s.PostalCode),
			"country":     pick(p.Country, s.Country),
			"notes":       strings.TrimSpace(p.Notes + "\n" + s.Notes),
		},
	}
}
