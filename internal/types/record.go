package types

import (
	"strconv"
	"strings"
	"time"
)

// Record is the structured outcome of extracting one listing page.
// Rating and ReviewCount are 0 when unknown; Website is empty when none was found.
type Record struct {
	Title       string    `json:"title"        bson:"title"`
	Address     string    `json:"address"      bson:"address"`
	Phone       string    `json:"phone"        bson:"phone"`
	Website     string    `json:"website"      bson:"website"`
	Category    string    `json:"category"     bson:"category"`
	Rating      float64   `json:"rating"       bson:"rating"`
	ReviewCount int       `json:"review_count" bson:"review_count"`
	SourceURL   string    `json:"source_url"   bson:"source_url"`
	ScrapedAt   time.Time `json:"scraped_at"   bson:"scraped_at"`
}

// NewRecord creates an empty Record for a source URL.
func NewRecord(sourceURL string) *Record {
	return &Record{
		SourceURL: sourceURL,
		ScrapedAt: time.Now(),
	}
}

// Key returns a case-insensitive identity used to spot the same business
// reached through different listing URLs.
func (r *Record) Key() string {
	return strings.ToLower(strings.TrimSpace(r.Title)) + "|" + strings.ToLower(strings.TrimSpace(r.Address))
}

// Fields returns the record's string-valued fields by name.
func (r *Record) Fields() map[string]*string {
	return map[string]*string{
		"title":    &r.Title,
		"address":  &r.Address,
		"phone":    &r.Phone,
		"website":  &r.Website,
		"category": &r.Category,
	}
}

// RankedResult is a Record with its 1-based position in the final ordering.
type RankedResult struct {
	Rank int `json:"rank"`
	*Record
}

// CSVHeader is the fixed column order of ranked exports.
var CSVHeader = []string{
	"Rank", "Title", "Address", "Website", "Phone",
	"Rating", "Reviews", "Category", "Source URL",
}

// CSVRow flattens the result in CSVHeader order.
func (r RankedResult) CSVRow() []string {
	rating := ""
	if r.Rating > 0 {
		rating = strconv.FormatFloat(r.Rating, 'f', 1, 64)
	}
	reviews := ""
	if r.ReviewCount > 0 {
		reviews = strconv.Itoa(r.ReviewCount)
	}
	return []string{
		strconv.Itoa(r.Rank),
		r.Title,
		r.Address,
		r.Website,
		r.Phone,
		rating,
		reviews,
		r.Category,
		r.SourceURL,
	}
}
