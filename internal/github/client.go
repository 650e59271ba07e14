package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/user/devscope/internal/model"
)

// Client is a read-only wrapper around the go-github client. No retries are
// performed; each failure is classified once and surfaced to the caller.
// Callers must validate handles before calling: no request is ever issued
// with an empty login.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates a Client. The token may be empty: requests then go out
// unauthenticated and are subject to GitHub's 60 requests/hour ceiling.
// apiURL overrides the API base URL (tests, GitHub Enterprise).
func NewClient(token, apiURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = timeout
	}

	gh := github.NewClient(httpClient)
	if apiURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, err
		}
	}

	return &Client{gh: gh, logger: logger}, nil
}

// ValidSort reports whether key is a repository sort order the API accepts.
func ValidSort(key string) bool {
	switch key {
	case "updated", "created", "pushed", "full_name":
		return true
	}
	return false
}

// FetchProfile fetches a user profile. A remote 404 maps to
// model.ErrNotFound, anything else to model.ErrService.
func (c *Client) FetchProfile(ctx context.Context, login string) (*model.Profile, error) {
	user, _, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		c.logger.Warn("profile fetch failed", "login", login, "error", err)
		return nil, classify(err)
	}
	return toProfile(user), nil
}

// FetchRepositories fetches a single page of the user's repositories. It
// does not paginate transparently; the session drives pages one at a time.
func (c *Client) FetchRepositories(ctx context.Context, login string, page, perPage int, sort string) ([]model.Repository, error) {
	opts := &github.RepositoryListByUserOptions{
		Sort: sort,
		ListOptions: github.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}

	c.logger.Debug("fetching repositories page", "login", login, "page", page, "sort", sort)
	repos, _, err := c.gh.Repositories.ListByUser(ctx, login, opts)
	if err != nil {
		return nil, classify(err)
	}

	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		out = append(out, toRepository(r))
	}
	return out, nil
}

// FetchStarred fetches the first page of repositories the user has starred.
func (c *Client) FetchStarred(ctx context.Context, login string, limit int) ([]model.Repository, error) {
	opts := &github.ActivityListStarredOptions{
		ListOptions: github.ListOptions{PerPage: limit},
	}

	starred, _, err := c.gh.Activity.ListStarred(ctx, login, opts)
	if err != nil {
		return nil, classify(err)
	}

	out := make([]model.Repository, 0, len(starred))
	for _, s := range starred {
		if s.Repository == nil {
			continue
		}
		out = append(out, toRepository(s.Repository))
	}
	return out, nil
}

// FetchFollowers fetches the first page of the user's followers.
func (c *Client) FetchFollowers(ctx context.Context, login string, limit int) ([]model.UserSummary, error) {
	opts := &github.ListOptions{PerPage: limit}
	users, _, err := c.gh.Users.ListFollowers(ctx, login, opts)
	if err != nil {
		return nil, classify(err)
	}
	return toUserSummaries(users), nil
}

// FetchFollowing fetches the first page of users the user follows.
func (c *Client) FetchFollowing(ctx context.Context, login string, limit int) ([]model.UserSummary, error) {
	opts := &github.ListOptions{PerPage: limit}
	users, _, err := c.gh.Users.ListFollowing(ctx, login, opts)
	if err != nil {
		return nil, classify(err)
	}
	return toUserSummaries(users), nil
}

// classify maps a transport or API error to one of the model error kinds.
func classify(err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
		return model.ErrNotFound
	}
	return fmt.Errorf("%w: %v", model.ErrService, err)
}

func toProfile(u *github.User) *model.Profile {
	return &model.Profile{
		Login:       u.GetLogin(),
		Name:        u.GetName(),
		AvatarURL:   u.GetAvatarURL(),
		HTMLURL:     u.GetHTMLURL(),
		Bio:         u.Bio,
		Company:     u.Company,
		Location:    u.Location,
		Blog:        u.Blog,
		Twitter:     u.TwitterUsername,
		Followers:   u.GetFollowers(),
		Following:   u.GetFollowing(),
		PublicRepos: u.GetPublicRepos(),
		PublicGists: u.GetPublicGists(),
		CreatedAt:   u.GetCreatedAt().Time,
		UpdatedAt:   u.GetUpdatedAt().Time,
	}
}

func toRepository(r *github.Repository) model.Repository {
	var license *string
	if l := r.GetLicense(); l != nil {
		id := l.GetSPDXID()
		license = &id
	}

	return model.Repository{
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Description:   r.Description,
		Language:      r.Language,
		Homepage:      r.Homepage,
		License:       license,
		DefaultBranch: r.GetDefaultBranch(),
		HTMLURL:       r.GetHTMLURL(),
		Stars:         r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
		OpenIssues:    r.GetOpenIssuesCount(),
		Watchers:      r.GetWatchersCount(),
		Size:          r.GetSize(),
		Private:       r.GetPrivate(),
		Archived:      r.GetArchived(),
		CreatedAt:     r.GetCreatedAt().Time,
		UpdatedAt:     r.GetUpdatedAt().Time,
		PushedAt:      r.GetPushedAt().Time,
	}
}

func toUserSummaries(users []*github.User) []model.UserSummary {
	out := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, model.UserSummary{
			Login:     u.GetLogin(),
			AvatarURL: u.GetAvatarURL(),
			HTMLURL:   u.GetHTMLURL(),
		})
	}
	return out
}
