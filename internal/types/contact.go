package types

// EmailHit is an email address and the page it was found on.
type EmailHit struct {
	Email     string `json:"email"`
	SourceURL string `json:"source_url"`
}

// SocialLink is the first profile link found for one platform.
type SocialLink struct {
	Platform  string `json:"platform"`
	URL       string `json:"url"`
	Handle    string `json:"handle"`
	SourceURL string `json:"source_url"`
}

// TeamMember is a person listed on a team/about page.
type TeamMember struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url"`
}

// PageContacts holds everything found on a single page of a contact crawl.
type PageContacts struct {
	URL     string
	Emails  []string
	Socials []SocialLink
	Team    []TeamMember
	Links   []string
}

// ContactReport is the aggregated result of crawling one website.
type ContactReport struct {
	Website     string       `json:"website"`
	Emails      []EmailHit   `json:"emails"`
	SocialMedia []SocialLink `json:"social_media"`
	TeamMembers []TeamMember `json:"team_members"`
}
