package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/LeadGoat/internal/types"
)

const (
	headingSelector   = "h1, h2, h3, h4, h5, h6"
	teamGridSelector  = ".team-grid, .team-container, .team-members, .staff-list, .people-list"
	gridMemberFilter  = ".member, .profile, .person, .card, .col"
	memberNameFilter  = "h1, h2, h3, h4, h5, h6, strong, b"
	memberTitleFilter = "p, span, div"

	sourceHeading   = "heading-pattern"
	sourceContainer = "container-pattern"
	unknownTitle    = "Unknown"
)

// jobTitleTags may carry the job title right after a name heading.
var jobTitleTags = map[string]bool{
	"p": true, "h3": true, "h4": true, "h5": true, "span": true, "div": true,
}

// FindTeamMembers scans a team/about page for people. Candidates are not
// validated here; ContactCollector filters them with IsLikelyPersonName.
func FindTeamMembers(doc *goquery.Document, pageURL string, maxTitleLen int) []types.TeamMember {
	var members []types.TeamMember
	add := func(name, title, source string) {
		if title == "" {
			title = unknownTitle
		}
		members = append(members, types.TeamMember{
			Name:      name,
			Title:     truncate(title, maxTitleLen),
			Source:    source,
			SourceURL: pageURL,
		})
	}

	// A short heading followed by a paragraph usually names a person.
	doc.Find(headingSelector).Each(func(_ int, h *goquery.Selection) {
		name := collapse(h.Text())
		if name == "" || len(strings.Fields(name)) > 4 {
			return
		}
		next := h.Next()
		if next.Length() == 0 {
			return
		}
		tag := goquery.NodeName(next)
		if tag != "p" && next.Find("p").Length() == 0 {
			return
		}
		title := ""
		if jobTitleTags[tag] {
			title = firstLine(next.Text())
		}
		add(name, title, sourceHeading)
	})

	doc.Find(teamGridSelector).Each(func(_ int, grid *goquery.Selection) {
		cards := grid.Find(gridMemberFilter).AddSelection(grid.ChildrenFiltered("div"))
		cards.Each(func(_ int, card *goquery.Selection) {
			heading := card.Find(memberNameFilter).First()
			if heading.Length() == 0 {
				return
			}
			name := collapse(heading.Text())
			if name == "" {
				return
			}
			title := collapse(card.Find(memberTitleFilter).First().Text())
			add(name, title, sourceContainer)
		})
	})

	return members
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
