package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	starsPattern   = regexp.MustCompile(`([0-9]\.[0-9]) stars`)
	reviewsPattern = regexp.MustCompile(`([0-9,]+) reviews`)

	loosePattern  = regexp.MustCompile(`[0-9]\.[0-9]`)
	parenPattern  = regexp.MustCompile(`\(([0-9][0-9,]*)\)`)
	numberPattern = regexp.MustCompile(`[0-9][0-9,]*`)
)

// ParseRatingLabel reads an accessibility label such as
// "4.5 stars 1,234 reviews". Missing parts come back as 0.
func ParseRatingLabel(label string) (rating float64, reviews int) {
	if m := starsPattern.FindStringSubmatch(label); m != nil {
		rating, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := reviewsPattern.FindStringSubmatch(label); m != nil {
		reviews = parseCount(m[1])
	}
	return rating, reviews
}

// ParseRatingText reads free text such as "4.5(1,234)" or "4.5 · 1,234".
// A parenthesised count wins; otherwise the first number after the rating
// is taken.
func ParseRatingText(text string) (rating float64, reviews int) {
	loc := loosePattern.FindStringIndex(text)
	if loc == nil {
		return 0, 0
	}
	rating, _ = strconv.ParseFloat(text[loc[0]:loc[1]], 64)

	rest := text[loc[1]:]
	if m := parenPattern.FindStringSubmatch(rest); m != nil {
		return rating, parseCount(m[1])
	}
	if m := numberPattern.FindString(rest); m != "" {
		reviews = parseCount(m)
	}
	return rating, reviews
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
