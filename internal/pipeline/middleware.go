package pipeline

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

// HTMLSanitizeMiddleware strips HTML tags and entities from string fields.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, field := range rec.Fields() {
		if *field == "" {
			continue
		}
		cleaned := m.stripRe.ReplaceAllString(*field, "")
		cleaned = html.UnescapeString(cleaned)
		*field = strings.Join(strings.Fields(cleaned), " ")
	}
	return rec, nil
}

// TrimMiddleware trims whitespace from all string fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, field := range rec.Fields() {
		*field = strings.TrimSpace(*field)
	}
	return rec, nil
}

// RequiredFieldsMiddleware drops records with an empty required field.
// Unknown field names never match and drop everything.
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *types.Record) (*types.Record, error) {
	fields := rec.Fields()
	for _, name := range m.Fields {
		v, ok := fields[name]
		if !ok || *v == "" {
			return nil, nil
		}
	}
	return rec, nil
}

// WebsiteValidateMiddleware clears a website that is not an absolute
// http(s) URL; the record itself is kept.
type WebsiteValidateMiddleware struct{}

func NewWebsiteValidateMiddleware() *WebsiteValidateMiddleware {
	return &WebsiteValidateMiddleware{}
}

func (m *WebsiteValidateMiddleware) Name() string { return "website_validate" }

func (m *WebsiteValidateMiddleware) Process(rec *types.Record) (*types.Record, error) {
	if rec.Website == "" {
		return rec, nil
	}
	u, err := url.Parse(rec.Website)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		rec.Website = ""
	}
	return rec, nil
}

// DedupMiddleware drops records whose title and address were already seen.
// Records with neither fall back to the source URL.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(rec *types.Record) (*types.Record, error) {
	key := rec.Key()
	if key == "|" {
		key = rec.SourceURL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return rec, nil
}
