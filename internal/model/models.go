package model

import "time"

// Profile is a snapshot of a GitHub user account. It is fetched fresh per
// search and never merged across searches.
type Profile struct {
	Login       string    `json:"login"`
	Name        string    `json:"name"`
	AvatarURL   string    `json:"avatar_url"`
	HTMLURL     string    `json:"html_url"`
	Bio         *string   `json:"bio,omitempty"`
	Company     *string   `json:"company,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Blog        *string   `json:"blog,omitempty"`
	Twitter     *string   `json:"twitter_username,omitempty"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	PublicRepos int       `json:"public_repos"`
	PublicGists int       `json:"public_gists"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName returns the profile's name, falling back to the login.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Login
}

// Repository is the metadata of a single repository owned by the profile
// being viewed.
type Repository struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Description   *string   `json:"description,omitempty"`
	Language      *string   `json:"language,omitempty"`
	Homepage      *string   `json:"homepage,omitempty"`
	License       *string   `json:"license,omitempty"`
	DefaultBranch string    `json:"default_branch"`
	HTMLURL       string    `json:"html_url"`
	Stars         int       `json:"stargazers_count"`
	Forks         int       `json:"forks_count"`
	OpenIssues    int       `json:"open_issues_count"`
	Watchers      int       `json:"watchers_count"`
	Size          int       `json:"size"`
	Private       bool      `json:"private"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PushedAt      time.Time `json:"pushed_at"`
}

// UserSummary is the short form of a user returned by the followers and
// following endpoints.
type UserSummary struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// RecentSearch is one entry of the recent-searches dropdown, deduplicated by
// login and capped at five.
type RecentSearch struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// HistoryEntry records a raw submitted search term, including ones that
// failed to resolve.
type HistoryEntry struct {
	Term      string    `json:"term"`
	Timestamp time.Time `json:"timestamp"`
}

// Bookmark is a user-curated saved profile.
type Bookmark struct {
	Login        string    `json:"login"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatar_url"`
	HTMLURL      string    `json:"html_url"`
	BookmarkedAt time.Time `json:"bookmarked_at"`
}
