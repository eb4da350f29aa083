package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// nonNameKeywords are words that mark a heading as navigation, marketing or
// boilerplate rather than a person.
var nonNameKeywords = []string{
	// site sections
	"welcome", "about", "contact", "services", "products", "shop", "blog", "news",
	"home", "login", "register", "sign up", "sign in", "account", "portfolio",
	"how", "why", "what", "when", "where", "faq", "help", "support",
	// calendar
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"winter", "spring", "summer", "fall", "autumn",
	// business
	"company", "business", "team", "partners", "careers", "jobs", "industry", "solutions",
	"mission", "vision", "values", "history", "testimonials", "clients", "customers",
	"main menu", "navigation", "header", "footer", "sidebar", "search", "copyright",
	"privacy", "terms", "conditions", "policy", "sitemap", "menu",
	"email", "phone", "address", "location", "message", "subscribe", "newsletter",
	"inc", "llc", "corporation", "corp", "ltd", "limited",
	// calls to action and media
	"read more", "learn more", "click here", "discover", "explore", "view", "download",
	"image", "photo", "picture", "video", "gallery", "slideshow",
	// technical
	"html", "css", "javascript", "php", "api", "database", "server", "cloud", "mobile", "desktop",
	"app", "application", "website", "web", "site", "domain", "page", "host", "hostname",
	// social
	"facebook", "twitter", "instagram", "linkedin", "youtube", "pinterest", "tiktok", "social",
	"follow", "like", "share", "comment", "post",
	// departments and page types
	"sales", "marketing", "finance", "accounting", "operations", "production", "logistics",
	"shipping", "returns", "warranty", "legal", "compliance", "regulations",
	"overview", "details", "features", "specifications", "requirements", "instructions",
	"benefits", "advantages", "options", "alternatives",
}

var (
	specialCharPattern = regexp.MustCompile(`[^a-zA-Z0-9\s\-'.]`)
	strictNamePattern  = regexp.MustCompile(`^(?:[A-Z][a-z]+\.?\s)*[A-Z][a-z]+(?:\s[A-Z]\.?)?(?:\s[A-Z][a-z]+)*$`)
	lenientNamePattern = regexp.MustCompile(`^[A-Z][a-z]*(?:\s[A-Z][a-z]*)*$`)
)

// nameRule rejects a candidate when check returns true.
type nameRule struct {
	reason string
	check  func(name string) bool
}

var nameRules = []nameRule{
	{"empty", func(n string) bool { return n == "" }},
	{"keyword", hasNonNameKeyword},
	{"too many words", func(n string) bool { return len(strings.Split(n, " ")) > 5 }},
	{"special characters", func(n string) bool { return len(specialCharPattern.FindAllString(n, -1)) > 2 }},
	{"too short", func(n string) bool { return len(n) < 2 }},
	{"not capitalised", func(n string) bool { return !unicode.IsUpper(firstRune(n)) || firstRune(n) > unicode.MaxASCII }},
	{"long single word", func(n string) bool { return !strings.Contains(n, " ") && len(n) > 15 }},
	{"digits", func(n string) bool { return countDigits(n) > 1 }},
	{"url or email", func(n string) bool {
		return strings.Contains(n, "http") || strings.Contains(n, "www.") || strings.Contains(n, "@")
	}},
	{"all caps", func(n string) bool { return n == strings.ToUpper(n) && len(n) > 3 }},
	{"long word", func(n string) bool {
		for _, w := range strings.Split(n, " ") {
			if len(w) > 15 {
				return true
			}
		}
		return false
	}},
}

// NameVerdict explains the outcome of IsLikelyPersonName.
type NameVerdict struct {
	Likely bool
	Reason string
}

// JudgeName applies the rejection rules in order and then the shape
// patterns. The first rule that fires decides.
func JudgeName(raw string) NameVerdict {
	name := strings.TrimSpace(raw)
	for _, rule := range nameRules {
		if rule.check(name) {
			return NameVerdict{Reason: rule.reason}
		}
	}
	if strictNamePattern.MatchString(name) {
		return NameVerdict{Likely: true, Reason: "name shape"}
	}
	if lenientNamePattern.MatchString(name) {
		return NameVerdict{Likely: true, Reason: "capitalised words"}
	}
	return NameVerdict{Reason: "no name shape"}
}

// IsLikelyPersonName reports whether a heading reads like a person's name.
func IsLikelyPersonName(name string) bool {
	return JudgeName(name).Likely
}

// hasNonNameKeyword matches whole-string equality or a keyword surrounded
// by spaces.
func hasNonNameKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range nonNameKeywords {
		if lower == kw || strings.Contains(lower, " "+kw+" ") {
			return true
		}
	}
	return false
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
