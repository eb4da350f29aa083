package rank

import (
	"math"
	"testing"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

func rec(title string, rating float64, reviews int) *types.Record {
	return &types.Record{Title: title, Rating: rating, ReviewCount: reviews}
}

func titles(ranked []types.RankedResult) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Title
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRankByRatingTieBreaksOnReviews(t *testing.T) {
	records := []*types.Record{
		rec("A", 4.5, 100),
		rec("B", 4.5, 200),
		rec("C", 4.8, 10),
	}

	got := titles(Rank(records, ByRating, "", 50))
	if want := []string{"C", "B", "A"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRankByReviewsIsStable(t *testing.T) {
	records := []*types.Record{
		rec("first", 3.0, 40),
		rec("second", 5.0, 40),
		rec("top", 1.0, 900),
		rec("third", 4.0, 40),
	}

	got := titles(Rank(records, ByReviews, "", 50))
	if want := []string{"top", "first", "second", "third"}; !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRankByRelevanceTermBonus(t *testing.T) {
	pizza := rec("Luigi's Pizza", 4.2, 100)
	burger := rec("Burger Barn", 4.5, 100)
	records := []*types.Record{burger, pizza}

	got := titles(Rank(records, ByRelevance, "Pizza Brooklyn", 50))
	if want := []string{"Luigi's Pizza", "Burger Barn"}; !equal(got, want) {
		t.Errorf("expected term match first, got %v", got)
	}

	got = titles(Rank(records, ByRating, "Pizza Brooklyn", 50))
	if want := []string{"Burger Barn", "Luigi's Pizza"}; !equal(got, want) {
		t.Errorf("expected rating order without relevance, got %v", got)
	}
}

func TestRankByRelevanceTiesFallBackToRating(t *testing.T) {
	// Both score 4: 1 term + 1.0 + 2.0 versus 1 term + 2.0 + 1.0.
	a := &types.Record{Title: "Shop A", Category: "liquor store", Rating: 2.5, ReviewCount: 200}
	b := &types.Record{Title: "Shop B", Category: "liquor store", Rating: 5.0, ReviewCount: 100}
	got := titles(Rank([]*types.Record{a, b}, ByRelevance, "liquor", 50))
	if want := []string{"Shop B", "Shop A"}; !equal(got, want) {
		t.Errorf("expected rating tie-break, got %v", got)
	}
}

func TestRelevanceScore(t *testing.T) {
	r := &types.Record{
		Title:       "Joe's Liquor",
		Category:    "Liquor store",
		Address:     "12 Main St, Brooklyn",
		Rating:      5.0,
		ReviewCount: 1000,
	}

	got := Relevance(r, []string{"liquor", "brooklyn", "queens"})
	// 2 terms + 2.0 rating + review bonus capped at 3
	if want := 7.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRankDropsNilAndTruncates(t *testing.T) {
	var records []*types.Record
	for i := 0; i < 60; i++ {
		if i%10 == 0 {
			records = append(records, nil)
			continue
		}
		records = append(records, rec("r", float64(i%5), i))
	}

	ranked := Rank(records, ByRating, "", 50)
	if len(ranked) != 50 {
		t.Fatalf("expected 50 results, got %d", len(ranked))
	}
	for i, r := range ranked {
		if r.Record == nil {
			t.Fatalf("nil record at %d", i)
		}
		if r.Rank != i+1 {
			t.Errorf("expected rank %d at index %d, got %d", i+1, i, r.Rank)
		}
	}

	short := Rank(records[:5], ByRating, "", 50)
	if len(short) != 4 {
		t.Errorf("expected min(n, max) = 4 results, got %d", len(short))
	}
}

func TestRankUnknownMethodUsesRating(t *testing.T) {
	records := []*types.Record{rec("low", 2.0, 900), rec("high", 4.9, 1)}
	got := titles(Rank(records, Method("bogus"), "", 50))
	if got[0] != "high" {
		t.Errorf("expected rating order for unknown method, got %v", got)
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"rating", ByRating, false},
		{"Reviews", ByReviews, false},
		{" relevance ", ByRelevance, false},
		{"", ByRating, false},
		{"stars", ByRating, true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func BenchmarkRankRelevance(b *testing.B) {
	records := make([]*types.Record, 200)
	for i := range records {
		records[i] = &types.Record{Title: "Shop", Category: "liquor store", Rating: float64(i%50) / 10, ReviewCount: i * 7}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank(records, ByRelevance, "liquor brooklyn", 50)
	}
}
