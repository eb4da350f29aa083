package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	rec := types.NewRecord("https://maps.example/place/1")
	rec.Title = "  Joe's Liquor  "
	rec.Phone = " (555) 123-4567 "

	result, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Joe's Liquor" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	if result.Phone != "(555) 123-4567" {
		t.Errorf("expected trimmed phone, got %q", result.Phone)
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{Fields: []string{"title"}}

	ok := types.NewRecord("u1")
	ok.Title = "Corner Shop"
	if result, err := m.Process(ok); err != nil || result == nil {
		t.Error("record with title should pass")
	}

	missing := types.NewRecord("u2")
	missing.Address = "12 Main St"
	if result, _ := m.Process(missing); result != nil {
		t.Error("record without title should be dropped")
	}

	unknown := &RequiredFieldsMiddleware{Fields: []string{"nope"}}
	if result, _ := unknown.Process(ok); result != nil {
		t.Error("unknown required field should drop the record")
	}
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	rec := types.NewRecord("u")
	rec.Title = `<b>Joe&#39;s</b>   Liquor &amp; Wine`
	rec.Category = "<span>Liquor store</span>"

	result, err := m.Process(rec)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.Title != "Joe's Liquor & Wine" {
		t.Errorf("expected sanitized title, got %q", result.Title)
	}
	if result.Category != "Liquor store" {
		t.Errorf("expected sanitized category, got %q", result.Category)
	}
}

func TestWebsiteValidateMiddleware(t *testing.T) {
	m := NewWebsiteValidateMiddleware()
	tests := map[string]string{
		"https://joes.example/":   "https://joes.example/",
		"http://joes.example":     "http://joes.example",
		"javascript:void(0)":      "",
		"/url?q=https://joes.com": "",
		"":                        "",
	}
	for in, want := range tests {
		rec := types.NewRecord("u")
		rec.Website = in
		result, _ := m.Process(rec)
		if result == nil || result.Website != want {
			t.Errorf("website %q: expected %q, got %+v", in, want, result)
		}
	}
}

func TestDedupMiddleware(t *testing.T) {
	m := NewDedupMiddleware()

	a := &types.Record{Title: "Joe's Liquor", Address: "12 Main St", SourceURL: "u1"}
	b := &types.Record{Title: "JOE'S LIQUOR", Address: "12 main st", SourceURL: "u2"}
	c := &types.Record{Title: "Joe's Liquor", Address: "99 Elm St", SourceURL: "u3"}

	if r, _ := m.Process(a); r == nil {
		t.Error("first record should pass")
	}
	if r, _ := m.Process(b); r != nil {
		t.Error("same title and address should be dropped")
	}
	if r, _ := m.Process(c); r == nil {
		t.Error("different address should pass")
	}

	// Empty records dedupe on their source URL.
	if r, _ := m.Process(&types.Record{SourceURL: "u4"}); r == nil {
		t.Error("first empty record should pass")
	}
	if r, _ := m.Process(&types.Record{SourceURL: "u5"}); r == nil {
		t.Error("empty record with another URL should pass")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "boom" }
func (failingMiddleware) Process(rec *types.Record) (*types.Record, error) {
	return nil, errors.New("boom")
}

func TestPipelineWrapsStageErrors(t *testing.T) {
	p := New(testLogger)
	p.Use(failingMiddleware{})

	rec := types.NewRecord("u")
	_, err := p.Process(rec)

	var pe *types.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if pe.Stage != "boom" || pe.Record != rec {
		t.Errorf("unexpected error detail: %+v", pe)
	}
}

func TestFromConfigProcessAll(t *testing.T) {
	cfg := config.DefaultConfig().Pipeline
	p := FromConfig(&cfg, testLogger)
	if p.Len() != 5 {
		t.Errorf("expected 5 stages, got %d", p.Len())
	}

	records := []*types.Record{
		{Title: " Joe's Liquor ", Address: "12 Main St", Website: "ftp://joes", SourceURL: "u1"},
		nil,
		{Title: "", Address: "no name", SourceURL: "u2"},
		{Title: "Joe's Liquor", Address: "12 Main St", SourceURL: "u3"},
		{Title: "Corner <i>Shop</i>", SourceURL: "u4"},
	}

	out := p.ProcessAll(records)
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	if out[0].SourceURL != "u1" || out[0].Title != "Joe's Liquor" || out[0].Website != "" {
		t.Errorf("unexpected first record: %+v", out[0])
	}
	if out[1].Title != "Corner Shop" {
		t.Errorf("expected sanitized title, got %q", out[1].Title)
	}
}
