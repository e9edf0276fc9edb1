// Package ocr extracts structured expense fields from receipt text. The text
// itself comes from an external OCR step; this package only does the field
// heuristics.
package ocr

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Extraction is the best-effort field set pulled from one receipt.
type Extraction struct {
	Vendor string          `json:"vendor"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"` // YYYY-MM-DD, empty when not found
}

var (
	amountRe = regexp.MustCompile(`(?:€|EUR)?\s*(\d{1,6}(?:[.,]\d{3})*(?:[.,]\d{2}))`)
	dateRe   = regexp.MustCompile(`(\d{1,4})[-/.](\d{1,2})[-/.](\d{1,4})`)

	totalKeywords = []string{"totaal", "total", "te betalen", "amount due", "sum"}
)

// Extract scans receipt text line by line. The amount on a line carrying a
// total keyword wins; otherwise the last amount on the receipt is assumed to
// be the total. The vendor is the first non-empty line that carries no
// amount.
func Extract(text string) Extraction {
	var ex Extraction
	lines := strings.Split(text, "\n")

	var lastAmount decimal.Decimal
	var haveAmount, haveTotal bool

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		m := amountRe.FindStringSubmatch(line)
		if m != nil {
			if amt, ok := normalizeAmount(m[1]); ok {
				lower := strings.ToLower(line)
				for _, kw := range totalKeywords {
					if strings.Contains(lower, kw) {
						ex.Amount = amt
						haveTotal = true
						break
					}
				}
				if !haveTotal {
					lastAmount = amt
					haveAmount = true
				}
			}
		} else if ex.Vendor == "" {
			ex.Vendor = line
		}
		if ex.Date == "" {
			if d := dateRe.FindStringSubmatch(line); d != nil {
				ex.Date = normalizeDate(d[1], d[2], d[3])
			}
		}
	}
	if !haveTotal && haveAmount {
		ex.Amount = lastAmount
	}
	return ex
}

// normalizeAmount parses European and US digit grouping: the last separator
// is the decimal point, everything before it is grouping.
func normalizeAmount(s string) (decimal.Decimal, bool) {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeDate accepts d-m-Y and Y-m-d (any of -/. separators) and returns
// YYYY-MM-DD, or empty when the parts do not form a real date.
func normalizeDate(a, b, c string) string {
	var year, month, day string
	if len(a) == 4 {
		year, month, day = a, b, c
	} else if len(c) == 4 {
		year, month, day = c, b, a
	} else {
		return ""
	}
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	candidate := year + "-" + month + "-" + day
	if _, err := time.Parse("2006-01-02", candidate); err != nil {
		return ""
	}
	return candidate
}
