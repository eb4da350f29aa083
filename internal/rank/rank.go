// Package rank orders extracted records and assigns their final positions.
package rank

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

// Method is a ranking policy.
type Method string

const (
	ByRating    Method = "rating"
	ByReviews   Method = "reviews"
	ByRelevance Method = "relevance"
)

// DefaultMaxResults is the default number of ranked records kept.
const DefaultMaxResults = 50

// Methods lists the accepted policies.
var Methods = []Method{ByRating, ByReviews, ByRelevance}

// ParseMethod maps a user-supplied name to a Method. Unknown names return
// ByRating together with an error the caller may log.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ByRating, ByReviews, ByRelevance:
		return m, nil
	case "":
		return ByRating, nil
	}
	return ByRating, fmt.Errorf("unknown rank method %q, using %s", s, ByRating)
}

// Rank drops nil records, orders the rest stably by method and keeps the
// first maxResults, numbered from 1. maxResults <= 0 keeps everything.
func Rank(records []*types.Record, method Method, query string, maxResults int) []types.RankedResult {
	valid := make([]*types.Record, 0, len(records))
	for _, r := range records {
		if r != nil {
			valid = append(valid, r)
		}
	}

	sort.SliceStable(valid, less(valid, method, query))

	if maxResults > 0 && len(valid) > maxResults {
		valid = valid[:maxResults]
	}

	ranked := make([]types.RankedResult, len(valid))
	for i, r := range valid {
		ranked[i] = types.RankedResult{Rank: i + 1, Record: r}
	}
	return ranked
}

func less(recs []*types.Record, method Method, query string) func(i, j int) bool {
	switch method {
	case ByReviews:
		return func(i, j int) bool {
			return recs[i].ReviewCount > recs[j].ReviewCount
		}
	case ByRelevance:
		terms := strings.Fields(strings.ToLower(query))
		scores := make(map[*types.Record]float64, len(recs))
		for _, r := range recs {
			scores[r] = Relevance(r, terms)
		}
		return func(i, j int) bool {
			a, b := recs[i], recs[j]
			if scores[a] != scores[b] {
				return scores[a] > scores[b]
			}
			return byRating(a, b)
		}
	default:
		return func(i, j int) bool { return byRating(recs[i], recs[j]) }
	}
}

func byRating(a, b *types.Record) bool {
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	return a.ReviewCount > b.ReviewCount
}

// Relevance scores a record against lowercased query terms: one point per
// term found in title, category or address, plus rating/5×2, plus
// min(reviews/100, 3).
func Relevance(r *types.Record, terms []string) float64 {
	text := strings.ToLower(strings.Join([]string{r.Title, r.Category, r.Address}, " "))

	score := 0.0
	for _, term := range terms {
		if strings.Contains(text, term) {
			score++
		}
	}
	score += r.Rating / 5 * 2
	score += math.Min(float64(r.ReviewCount)/100, 3)
	return score
}
