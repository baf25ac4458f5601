package utils

import (
	"regexp"
	"strings"
	"unicode"

	"CatalogScraper/internal/models"

	"github.com/shopspring/decimal"
)

// pricePattern finds the first number-like run, e.g. "99.9" in "price is 99.9 yuan" or
// "1,299.00" with thousands separators.
const pricePattern = `\d[\d,]*(\.\d+)?`

var priceRegex = regexp.MustCompile(pricePattern)

// commentRegex matches every <!-- ... --> span, shortest first, across newlines.
var commentRegex = regexp.MustCompile(`(?s)<!--.*?-->`)

const (
	commentStart = "<!--"
	commentEnd   = "-->"
)

// ParsePriceFromString converts listing price text such as "¥ 128.50" to a decimal.
// The plain parse runs first so the common case never pays for a regex scan.
func ParsePriceFromString(priceStr string) (decimal.Decimal, error) {
	if strings.TrimSpace(priceStr) == "" {
		return decimal.Decimal{}, &models.ParseError{Piece: "price", Input: priceStr}
	}

	trimmed := strings.TrimFunc(priceStr, func(r rune) bool {
		return unicode.IsSpace(r) || r == '¥' || r == '￥'
	})
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	if price, err := decimal.NewFromString(trimmed); err == nil {
		return price, nil
	}

	found := priceRegex.FindString(priceStr)
	if found == "" {
		return decimal.Decimal{}, &models.ParseError{Piece: "price", Input: priceStr, Pattern: pricePattern}
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(found, ",", ""))
	if err != nil {
		return decimal.Decimal{}, &models.ParseError{Piece: "price", Input: priceStr, Pattern: pricePattern}
	}
	return price, nil
}

// ParseNameFromString removes <!-- --> spans from a product name.
// If nothing is left after stripping, the original text is returned unchanged.
// A blank input yields "".
func ParseNameFromString(str string) string {
	if strings.TrimSpace(str) == "" {
		return ""
	}

	start := strings.Index(str, commentStart)
	end := strings.LastIndex(str, commentEnd)
	if start != -1 && end != -1 && end > start {
		name := strings.TrimSpace(str[:start] + str[end+len(commentEnd):])
		if name != "" {
			return name
		}
	}

	if name := strings.TrimSpace(commentRegex.ReplaceAllString(str, "")); name != "" {
		return name
	}
	return str
}
