// Package session is the state container behind the dashboard: it sequences
// API calls, paginates repositories, derives chart datasets, persists
// preferences, and publishes a snapshot to the presentation layer after each
// completed command.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/user/devscope/internal/charts"
	"github.com/user/devscope/internal/github"
	"github.com/user/devscope/internal/model"
	"github.com/user/devscope/internal/store"
)

// State is the lifecycle of a search session.
type State string

const (
	StateIdle        State = "idle"
	StateSearching   State = "searching"
	StateLoaded      State = "loaded"
	StateFailed      State = "failed"
	StateLoadingMore State = "loading-more"
)

// Fetcher is the session's view of the remote profile client.
type Fetcher interface {
	FetchProfile(ctx context.Context, login string) (*model.Profile, error)
	FetchRepositories(ctx context.Context, login string, page, perPage int, sort string) ([]model.Repository, error)
	FetchStarred(ctx context.Context, login string, limit int) ([]model.Repository, error)
	FetchFollowers(ctx context.Context, login string, limit int) ([]model.UserSummary, error)
	FetchFollowing(ctx context.Context, login string, limit int) ([]model.UserSummary, error)
}

type Options struct {
	PageSize       int
	SortKey        string
	StarredLimit   int
	FollowersLimit int
	FollowingLimit int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Snapshot is the read-only view published to the presentation layer.
type Snapshot struct {
	State          State
	Username       string
	ErrorText      string
	Profile        *model.Profile
	Repos          []model.Repository
	HasMore        bool
	Page           int
	SortKey        string
	Starred        []model.Repository
	Followers      []model.UserSummary
	Following      []model.UserSummary
	Compared       *model.Profile
	Comparing      bool
	LanguageStats  []charts.LanguageCount
	Activity       []charts.ActivityPoint
	CommitActivity []charts.CommitPoint
	Radar          []charts.RadarMetric
	Notifications  []Notification
	DarkMode       bool
	IsBookmarked   bool
	RecentSearches []model.RecentSearch
	History        []model.HistoryEntry
	Bookmarks      []model.Bookmark
}

// Session holds all state for one user of the dashboard. Commands run on
// whatever goroutine the presentation layer invokes them from; the mutex
// serializes commits while network calls happen outside it. Each submitted
// search bumps a generation counter, and results arriving for a stale
// generation are discarded wholesale, which is how superseded searches are
// "cancelled".
type Session struct {
	fetcher Fetcher
	prefs   *store.Store
	logger  *slog.Logger
	opts    Options
	now     func() time.Time

	notifications *queue

	mu          sync.Mutex
	subscribers []func(Snapshot)
	generation  uint64

	state     State
	username  string
	errText   string
	profile   *model.Profile
	repos     []model.Repository
	page      int
	hasMore   bool
	sortKey   string
	starred   []model.Repository
	followers []model.UserSummary
	following []model.UserSummary
	compared  *model.Profile
	comparing bool

	starredLoaded   bool
	followersLoaded bool
	followingLoaded bool

	languageStats  []charts.LanguageCount
	activity       []charts.ActivityPoint
	commitActivity []charts.CommitPoint
	radar          []charts.RadarMetric

	darkMode bool
}

func New(fetcher Fetcher, prefs *store.Store, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.SortKey == "" {
		opts.SortKey = "updated"
	}
	if opts.StarredLimit <= 0 {
		opts.StarredLimit = 5
	}
	if opts.FollowersLimit <= 0 {
		opts.FollowersLimit = 10
	}
	if opts.FollowingLimit <= 0 {
		opts.FollowingLimit = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		fetcher:  fetcher,
		prefs:    prefs,
		logger:   opts.Logger,
		opts:     opts,
		now:      opts.Now,
		state:    StateIdle,
		sortKey:  opts.SortKey,
		darkMode: prefs.DarkMode(),
	}
	s.notifications = newQueue(s.publish)
	return s
}

// Subscribe registers fn to receive a snapshot after every completed command,
// including notification expiry.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	bookmarked := false
	if s.profile != nil {
		bookmarked = s.prefs.IsBookmarked(s.profile.Login)
	}

	return Snapshot{
		State:          s.state,
		Username:       s.username,
		ErrorText:      s.errText,
		Profile:        s.profile,
		Repos:          s.repos,
		HasMore:        s.hasMore,
		Page:           s.page,
		SortKey:        s.sortKey,
		Starred:        s.starred,
		Followers:      s.followers,
		Following:      s.following,
		Compared:       s.compared,
		Comparing:      s.comparing,
		LanguageStats:  s.languageStats,
		Activity:       s.activity,
		CommitActivity: s.commitActivity,
		Radar:          s.radar,
		Notifications:  s.notifications.list(),
		DarkMode:       s.darkMode,
		IsBookmarked:   bookmarked,
		RecentSearches: s.prefs.RecentSearches(),
		History:        s.prefs.SearchHistory(),
		Bookmarks:      s.prefs.Bookmarks(),
	}
}

// publish sends the current snapshot to all subscribers. Never call it while
// holding the mutex.
func (s *Session) publish() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Search loads the profile and first repository page for handle. The
// previous profile and all session collections are cleared before the first
// network call, so a fresh search always starts from a blank slate; a failed
// search therefore shows the error state rather than a stale profile.
func (s *Session) Search(ctx context.Context, handle string) error {
	raw := handle
	handle = strings.TrimSpace(handle)
	if handle == "" {
		// Rejected before any I/O; session state is left untouched.
		s.notifications.push(model.ErrInvalidInput.Error(), SeverityError)
		s.publish()
		return model.ErrInvalidInput
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = StateSearching
	s.username = handle
	s.errText = ""
	s.resetCollectionsLocked()
	pageSize := s.opts.PageSize
	sortKey := s.sortKey
	s.mu.Unlock()

	// The term is recorded as submitted, untrimmed, even when the fetch
	// later fails.
	if err := s.prefs.AddHistoryEntry(raw, s.now()); err != nil {
		s.logger.Warn("could not persist search history", "error", err)
	}
	s.publish()

	profile, err := s.fetcher.FetchProfile(ctx, handle)
	if err != nil {
		return s.failSearch(gen, err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.profile = profile
	s.mu.Unlock()

	if err := s.prefs.AddRecentSearch(model.RecentSearch{
		Login:     profile.Login,
		Name:      profile.DisplayName(),
		AvatarURL: profile.AvatarURL,
	}); err != nil {
		s.logger.Warn("could not persist recent search", "error", err)
	}

	repos, err := s.fetcher.FetchRepositories(ctx, handle, 1, pageSize, sortKey)
	if err != nil {
		return s.failSearch(gen, err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.repos = repos
	s.page = 1
	s.hasMore = len(repos) == pageSize
	s.recomputeChartsLocked()
	s.state = StateLoaded
	s.mu.Unlock()

	s.logger.Info("profile loaded", "login", profile.Login, "repos", len(repos))
	s.notifications.push(fmt.Sprintf("Successfully loaded profile for %s", profile.Login), SeveritySuccess)
	s.publish()
	return nil
}

func (s *Session) failSearch(gen uint64, err error) error {
	s.mu.Lock()
	if gen != s.generation {
		// A newer search superseded this one; drop the late result.
		s.mu.Unlock()
		return nil
	}
	s.state = StateFailed
	s.errText = err.Error()
	s.mu.Unlock()

	s.logger.Warn("search failed", "error", err)
	s.notifications.push(err.Error(), SeverityError)
	s.publish()
	return err
}

// LoadMore fetches the next repository page. It is a no-op while a page load
// is already in flight or when the previous page came back shorter than the
// page size (the API exposes no total count, so that is the only signal).
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoaded || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoadingMore
	gen := s.generation
	next := s.page + 1
	login := s.username
	pageSize := s.opts.PageSize
	sortKey := s.sortKey
	s.mu.Unlock()
	s.publish()

	repos, err := s.fetcher.FetchRepositories(ctx, login, next, pageSize, sortKey)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.state = StateLoaded
		s.mu.Unlock()
		s.notifications.push(fmt.Sprintf("Failed to load repositories: %v", err), SeverityError)
		s.publish()
		return err
	}
	s.repos = append(s.repos, repos...)
	s.page = next
	s.hasMore = len(repos) == pageSize
	// Aggregates cover the full accumulated set, not just the new page, so
	// the charts stay consistent with the list on screen.
	s.recomputeChartsLocked()
	s.state = StateLoaded
	s.mu.Unlock()
	s.publish()
	return nil
}

// SetSortOrder changes the repository sort and, when a profile is loaded,
// refetches page one under the new order.
func (s *Session) SetSortOrder(ctx context.Context, key string) error {
	if !github.ValidSort(key) {
		return fmt.Errorf("%w: unknown sort %q", model.ErrInvalidInput, key)
	}

	s.mu.Lock()
	s.sortKey = key
	if s.state != StateLoaded || s.username == "" {
		s.mu.Unlock()
		s.publish()
		return nil
	}
	s.generation++ // supersede any in-flight page load
	gen := s.generation
	login := s.username
	pageSize := s.opts.PageSize
	s.state = StateSearching
	s.mu.Unlock()
	s.publish()

	repos, err := s.fetcher.FetchRepositories(ctx, login, 1, pageSize, key)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		s.state = StateLoaded
		s.mu.Unlock()
		s.notifications.push(fmt.Sprintf("Failed to load repositories: %v", err), SeverityError)
		s.publish()
		return err
	}
	s.repos = repos
	s.page = 1
	s.hasMore = len(repos) == pageSize
	s.recomputeChartsLocked()
	s.state = StateLoaded
	s.mu.Unlock()
	s.publish()
	return nil
}

// Compare fetches a second profile on the side. It never disturbs the
// primary session; a failure keeps any previously compared profile.
func (s *Session) Compare(ctx context.Context, handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		s.notifications.push("Please enter a username to compare with", SeverityError)
		s.publish()
		return model.ErrInvalidInput
	}

	s.mu.Lock()
	gen := s.generation
	s.comparing = true
	s.mu.Unlock()
	s.publish()

	profile, err := s.fetcher.FetchProfile(ctx, handle)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.comparing = false
	if err != nil {
		s.mu.Unlock()
		msg := err.Error()
		if errors.Is(err, model.ErrNotFound) {
			msg = "Comparison user not found"
		}
		s.notifications.push(msg, SeverityError)
		s.publish()
		return err
	}
	s.compared = profile
	s.radar = charts.ComparisonRadar(s.profile, profile, s.now())
	s.mu.Unlock()

	s.notifications.push(fmt.Sprintf("Comparing with %s", profile.Login), SeveritySuccess)
	s.publish()
	return nil
}

// EnsureStarred lazily fetches the starred tab. It fires at most once per
// search session, on first tab activation; a failure is surfaced as a
// notification only and never fails the session.
func (s *Session) EnsureStarred(ctx context.Context) {
	s.mu.Lock()
	if s.starredLoaded || s.profile == nil {
		s.mu.Unlock()
		return
	}
	s.starredLoaded = true
	gen := s.generation
	login := s.username
	limit := s.opts.StarredLimit
	s.mu.Unlock()

	starred, err := s.fetcher.FetchStarred(ctx, login, limit)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.notifications.push(fmt.Sprintf("Failed to load starred repos: %v", err), SeverityError)
		s.publish()
		return
	}
	s.starred = starred
	s.mu.Unlock()
	s.publish()
}

// EnsureFollowers lazily fetches the followers tab; same contract as
// EnsureStarred.
func (s *Session) EnsureFollowers(ctx context.Context) {
	s.mu.Lock()
	if s.followersLoaded || s.profile == nil {
		s.mu.Unlock()
		return
	}
	s.followersLoaded = true
	gen := s.generation
	login := s.username
	limit := s.opts.FollowersLimit
	s.mu.Unlock()

	followers, err := s.fetcher.FetchFollowers(ctx, login, limit)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.notifications.push(fmt.Sprintf("Failed to load followers: %v", err), SeverityError)
		s.publish()
		return
	}
	s.followers = followers
	s.mu.Unlock()
	s.publish()
}

// EnsureFollowing lazily fetches the following tab; same contract as
// EnsureStarred.
func (s *Session) EnsureFollowing(ctx context.Context) {
	s.mu.Lock()
	if s.followingLoaded || s.profile == nil {
		s.mu.Unlock()
		return
	}
	s.followingLoaded = true
	gen := s.generation
	login := s.username
	limit := s.opts.FollowingLimit
	s.mu.Unlock()

	following, err := s.fetcher.FetchFollowing(ctx, login, limit)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.notifications.push(fmt.Sprintf("Failed to load following: %v", err), SeverityError)
		s.publish()
		return
	}
	s.following = following
	s.mu.Unlock()
	s.publish()
}

// ToggleBookmark toggles the currently displayed profile in the durable
// bookmark set. No-op when nothing is loaded.
func (s *Session) ToggleBookmark() error {
	s.mu.Lock()
	profile := s.profile
	s.mu.Unlock()
	if profile == nil {
		return nil
	}

	added, err := s.prefs.ToggleBookmark(model.Bookmark{
		Login:        profile.Login,
		Name:         profile.DisplayName(),
		AvatarURL:    profile.AvatarURL,
		HTMLURL:      profile.HTMLURL,
		BookmarkedAt: s.now(),
	})
	if err != nil {
		s.logger.Warn("could not persist bookmark", "error", err)
		return err
	}

	if added {
		s.notifications.push(fmt.Sprintf("Added %s to bookmarks", profile.Login), SeverityInfo)
	} else {
		s.notifications.push(fmt.Sprintf("Removed %s from bookmarks", profile.Login), SeverityInfo)
	}
	s.publish()
	return nil
}

func (s *Session) ClearRecentSearches() error {
	if err := s.prefs.ClearRecentSearches(); err != nil {
		return err
	}
	s.notifications.push("Recent searches cleared", SeveritySuccess)
	s.publish()
	return nil
}

func (s *Session) ClearHistory() error {
	if err := s.prefs.ClearHistory(); err != nil {
		return err
	}
	s.notifications.push("Search history cleared", SeveritySuccess)
	s.publish()
	return nil
}

func (s *Session) ClearBookmarks() error {
	if err := s.prefs.ClearBookmarks(); err != nil {
		return err
	}
	s.notifications.push("All bookmarks cleared", SeveritySuccess)
	s.publish()
	return nil
}

func (s *Session) SetDarkMode(dark bool) error {
	s.mu.Lock()
	s.darkMode = dark
	s.mu.Unlock()
	err := s.prefs.SetDarkMode(dark)
	s.publish()
	return err
}

// Dismiss removes a notification before its timer expires.
func (s *Session) Dismiss(id string) {
	s.notifications.dismiss(id)
	s.publish()
}

func (s *Session) resetCollectionsLocked() {
	s.profile = nil
	s.repos = nil
	s.page = 0
	s.hasMore = false
	s.starred = nil
	s.starredLoaded = false
	s.followers = nil
	s.followersLoaded = false
	s.following = nil
	s.followingLoaded = false
	s.compared = nil
	s.comparing = false
	s.languageStats = nil
	s.activity = nil
	s.commitActivity = nil
	s.radar = nil
}

func (s *Session) recomputeChartsLocked() {
	s.languageStats = charts.LanguageDistribution(s.repos)
	s.activity = charts.RecentActivity(s.repos)
	s.commitActivity = charts.CommitActivity(s.repos, s.now())
}
