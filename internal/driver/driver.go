// Package driver defines the page-driver capability the crawler depends on
// and its implementations: a Rod-controlled Chromium and a static HTTP
// fetcher backed by goquery.
package driver

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// WaitCondition is the load state Navigate waits for.
type WaitCondition string

const (
	WaitLoad             WaitCondition = "load"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitNetworkIdle      WaitCondition = "networkidle"
)

// NavigateOptions controls a single navigation.
type NavigateOptions struct {
	Wait    WaitCondition
	Timeout time.Duration
}

// Element is a snapshot of a matched DOM element.
type Element struct {
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs"`
}

// Attr returns the named attribute or "".
func (e Element) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

// Href returns the element's href attribute.
func (e Element) Href() string { return e.Attr("href") }

// Label returns the element's aria-label attribute.
func (e Element) Label() string { return e.Attr("aria-label") }

// Value is the JSON-encoded result of a script evaluation.
type Value struct {
	raw json.RawMessage
}

// NewValue wraps an already-encoded JSON value.
func NewValue(raw []byte) Value { return Value{raw: raw} }

// ValueOf encodes v; encoding failures produce a null Value.
func ValueOf(v any) Value {
	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}
	}
	return Value{raw: raw}
}

// Decode unmarshals the value into v.
func (v Value) Decode(out any) error {
	if len(v.raw) == 0 {
		return json.Unmarshal([]byte("null"), out)
	}
	return json.Unmarshal(v.raw, out)
}

// Float returns the value as a number, 0 if it is not one.
func (v Value) Float() float64 {
	var f float64
	if err := v.Decode(&f); err != nil {
		return 0
	}
	return f
}

// Int returns the value truncated to an int.
func (v Value) Int() int { return int(v.Float()) }

// Bool returns the value as a boolean, false if it is not one.
func (v Value) Bool() bool {
	var b bool
	if err := v.Decode(&b); err != nil {
		return false
	}
	return b
}

// String returns the value as a string; non-string values return their JSON.
func (v Value) String() string {
	var s string
	if err := v.Decode(&s); err == nil {
		return s
	}
	return strings.TrimSpace(string(v.raw))
}

// Page is a single loaded document.
type Page interface {
	// Navigate loads url and waits for the requested load condition.
	Navigate(ctx context.Context, url string, opts NavigateOptions) error

	// Evaluate runs a JS function expression with args and returns its result.
	Evaluate(ctx context.Context, script string, args ...any) (Value, error)

	// QueryAll returns snapshots of all elements matching a CSS selector.
	QueryAll(ctx context.Context, selector string) ([]Element, error)

	// Content returns the current serialized HTML.
	Content(ctx context.Context) (string, error)

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// URL returns the page's current URL after redirects.
	URL() string

	// Close releases the page and its isolated context.
	Close() error
}

// Browser hands out isolated pages.
type Browser interface {
	// NewIsolatedPage opens a page in a fresh context with no shared
	// cookies, storage or history.
	NewIsolatedPage(ctx context.Context) (Page, error)

	// Type returns the driver identifier.
	Type() string

	// Close shuts the browser down.
	Close() error
}
