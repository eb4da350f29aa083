package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/LeadGoat/internal/config"
	"github.com/IshaanNene/LeadGoat/internal/driver"
	"github.com/IshaanNene/LeadGoat/internal/observability"
	"github.com/IshaanNene/LeadGoat/internal/types"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6}`)

// assetSuffixes catch retina asset names such as logo@2x.png that the
// email pattern would otherwise accept.
var assetSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".css", ".js"}

type socialPattern struct {
	platform string
	re       *regexp.Regexp
}

// socialPatterns capture the account handle in group 1.
var socialPatterns = []socialPattern{
	{"facebook", regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?facebook\.com/([^/\s?#]+)`)},
	{"twitter", regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:twitter\.com|\bx\.com)/([^/\s?#]+)`)},
	{"linkedin", regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/(?:company|in|school)/([^/\s?#]+)`)},
	{"instagram", regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?instagram\.com/([^/\s?#]+)`)},
	{"youtube", regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/(?:user|channel|c)/([^/\s?#]+)`)},
	{"tiktok", regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?tiktok\.com/@([^/\s?#]+)`)},
	{"pinterest", regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?pinterest\.com/([^/\s?#]+)`)},
	{"github", regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/([^/\s?#]+)`)},
}

// FindEmails returns the distinct addresses in content, in order of first
// appearance.
func FindEmails(content string) []string {
	matches := emailPattern.FindAllString(content, -1)
	seen := make(map[string]bool, len(matches))
	var emails []string
	for _, m := range matches {
		if seen[m] || isAssetName(m) {
			continue
		}
		seen[m] = true
		emails = append(emails, m)
	}
	return emails
}

func isAssetName(s string) bool {
	lower := strings.ToLower(s)
	for _, suffix := range assetSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// MatchSocial returns the social profiles href points at.
func MatchSocial(href string) []types.SocialLink {
	var links []types.SocialLink
	for _, p := range socialPatterns {
		if m := p.re.FindStringSubmatch(href); m != nil && m[1] != "" {
			links = append(links, types.SocialLink{Platform: p.platform, URL: href, Handle: m[1]})
		}
	}
	return links
}

// ContactExtractor pulls emails, social profiles, team members and links
// out of one loaded page.
type ContactExtractor struct {
	keywords    []string
	maxTitleLen int
	logger      *slog.Logger
}

// NewContactExtractor creates a ContactExtractor.
func NewContactExtractor(cfg *config.ContactsConfig, logger *slog.Logger) *ContactExtractor {
	keywords := cfg.PriorityKeywords
	if len(keywords) == 0 {
		keywords = config.DefaultPriorityKeywords
	}
	return &ContactExtractor{
		keywords:    keywords,
		maxTitleLen: cfg.MaxTitleLength,
		logger:      logger.With("component", "contact_extractor"),
	}
}

// Extract reads the page's serialized content. Team members are only
// looked for on pages whose URL contains a priority keyword.
func (e *ContactExtractor) Extract(ctx context.Context, page driver.Page, pageURL string) (*types.PageContacts, error) {
	content, err := page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	pc := &types.PageContacts{
		URL:    pageURL,
		Emails: FindEmails(content),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}

	anchors, err := page.QueryAll(ctx, "a[href]")
	if err != nil {
		e.logger.Debug("anchor query failed", "url", pageURL, "error", err)
	}
	platforms := make(map[string]bool)
	for _, a := range anchors {
		href := strings.TrimSpace(a.Href())
		if href == "" {
			continue
		}
		for _, link := range MatchSocial(href) {
			if platforms[link.Platform] {
				continue
			}
			platforms[link.Platform] = true
			link.SourceURL = pageURL
			pc.Socials = append(pc.Socials, link)
		}
		pc.Links = append(pc.Links, href)
	}

	if e.isTeamPage(pageURL) {
		pc.Team = FindTeamMembers(doc, pageURL, e.maxTitleLen)
		e.logger.Debug("scanned team page", "url", pageURL, "candidates", len(pc.Team))
	}
	return pc, nil
}

func (e *ContactExtractor) isTeamPage(pageURL string) bool {
	lower := strings.ToLower(pageURL)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ContactCollector folds per-page findings into one ContactReport.
// It is owned by a single crawl and is not safe for concurrent use.
type ContactCollector struct {
	website    string
	emails     []types.EmailHit
	emailSeen  map[string]bool
	socials    []types.SocialLink
	platforms  map[string]bool
	candidates []types.TeamMember
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewContactCollector creates a collector for website.
func NewContactCollector(website string, metrics *observability.Metrics, logger *slog.Logger) *ContactCollector {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &ContactCollector{
		website:   website,
		emailSeen: make(map[string]bool),
		platforms: make(map[string]bool),
		metrics:   metrics,
		logger:    logger.With("component", "contact_collector"),
	}
}

// Add merges one page. The first page to report an email or a platform
// keeps it.
func (c *ContactCollector) Add(pc *types.PageContacts) {
	for _, email := range pc.Emails {
		if c.emailSeen[email] {
			continue
		}
		c.emailSeen[email] = true
		c.emails = append(c.emails, types.EmailHit{Email: email, SourceURL: pc.URL})
		c.metrics.EmailsFound.Add(1)
	}
	for _, s := range pc.Socials {
		if c.platforms[s.Platform] {
			continue
		}
		c.platforms[s.Platform] = true
		c.socials = append(c.socials, s)
		c.metrics.SocialLinksFound.Add(1)
	}
	c.candidates = append(c.candidates, pc.Team...)
}

// Report validates team candidates and returns the aggregate.
func (c *ContactCollector) Report() *types.ContactReport {
	report := &types.ContactReport{
		Website:     c.website,
		Emails:      append([]types.EmailHit{}, c.emails...),
		SocialMedia: append([]types.SocialLink{}, c.socials...),
		TeamMembers: []types.TeamMember{},
	}

	seen := make(map[string]bool)
	filtered := 0
	for _, m := range c.candidates {
		verdict := JudgeName(m.Name)
		if !verdict.Likely {
			filtered++
			c.logger.Debug("dropped unlikely name", "name", m.Name, "reason", verdict.Reason)
			continue
		}
		key := strings.ToLower(m.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		report.TeamMembers = append(report.TeamMembers, m)
	}
	c.metrics.TeamMembersFound.Add(int64(len(report.TeamMembers)))

	c.logger.Info("contact report ready",
		"emails", len(report.Emails),
		"social", len(report.SocialMedia),
		"team", len(report.TeamMembers),
		"filtered_names", filtered,
	)
	return report
}
