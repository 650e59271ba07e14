package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/devscope/internal/model"
	"github.com/user/devscope/internal/store"
)

// fakeFetcher is an in-memory Fetcher with call counting and optional gates
// to hold a fetch in flight.
type fakeFetcher struct {
	mu          sync.Mutex
	profiles    map[string]*model.Profile
	profileErrs map[string]error
	repoPages   map[int][]model.Repository
	repoErr     error
	starred     []model.Repository
	starredErr  error
	followers   []model.UserSummary
	following   []model.UserSummary

	profileCalls   int
	repoCalls      int
	starredCalls   int
	followersCalls int
	followingCalls int

	profileGates map[string]chan struct{}
	repoGate     chan struct{} // blocks pages > 1
	repoStarted  chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		profiles:     make(map[string]*model.Profile),
		profileErrs:  make(map[string]error),
		repoPages:    make(map[int][]model.Repository),
		profileGates: make(map[string]chan struct{}),
	}
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, login string) (*model.Profile, error) {
	f.mu.Lock()
	f.profileCalls++
	gate := f.profileGates[login]
	err := f.profileErrs[login]
	p := f.profiles[login]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrNotFound
	}
	return p, nil
}

func (f *fakeFetcher) FetchRepositories(ctx context.Context, login string, page, perPage int, sort string) ([]model.Repository, error) {
	f.mu.Lock()
	f.repoCalls++
	started := f.repoStarted
	gate := f.repoGate
	err := f.repoErr
	repos := f.repoPages[page]
	f.mu.Unlock()

	if page > 1 {
		if started != nil {
			started <- struct{}{}
		}
		if gate != nil {
			<-gate
		}
	}
	if err != nil {
		return nil, err
	}
	return repos, nil
}

func (f *fakeFetcher) FetchStarred(ctx context.Context, login string, limit int) ([]model.Repository, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starredCalls++
	if f.starredErr != nil {
		return nil, f.starredErr
	}
	return f.starred, nil
}

func (f *fakeFetcher) FetchFollowers(ctx context.Context, login string, limit int) ([]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followersCalls++
	return f.followers, nil
}

func (f *fakeFetcher) FetchFollowing(ctx context.Context, login string, limit int) ([]model.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followingCalls++
	return f.following, nil
}

func langRepo(name, lang string) model.Repository {
	r := model.Repository{Name: name, UpdatedAt: time.Now()}
	if lang != "" {
		r.Language = &lang
	}
	return r
}

func newTestSession(t *testing.T, fetcher *fakeFetcher, opts Options) *Session {
	t.Helper()
	prefs, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { prefs.Close() })
	return New(fetcher, prefs, opts)
}

func octocatFetcher() *fakeFetcher {
	f := newFakeFetcher()
	f.profiles["octocat"] = &model.Profile{
		Login:       "octocat",
		Name:        "The Octocat",
		PublicRepos: 2,
		Followers:   10,
		CreatedAt:   time.Date(2011, time.January, 25, 0, 0, 0, 0, time.UTC),
	}
	f.repoPages[1] = []model.Repository{
		langRepo("Hello-World", "JavaScript"),
		langRepo("Spoon-Knife", ""),
	}
	return f
}

func hasNotification(snap Snapshot, severity Severity) bool {
	for _, n := range snap.Notifications {
		if n.Severity == severity {
			return true
		}
	}
	return false
}

func TestSearch_EmptyHandleIsRejectedBeforeIO(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})

	err := sess.Search(context.Background(), "   ")

	assert.ErrorIs(t, err, model.ErrInvalidInput)
	snap := sess.Snapshot()
	assert.Equal(t, StateIdle, snap.State, "session state must be unchanged")
	assert.True(t, hasNotification(snap, SeverityError))
	assert.Equal(t, 0, f.profileCalls, "no network call may be issued")
	assert.Equal(t, 0, f.repoCalls)
}

func TestSearch_Success(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})

	err := sess.Search(context.Background(), "octocat")
	require.NoError(t, err)

	snap := sess.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "octocat", snap.Profile.Login)
	assert.Len(t, snap.Repos, 2)
	assert.False(t, snap.HasMore, "2 repos < page size means no more pages")

	require.Len(t, snap.LanguageStats, 1)
	assert.Equal(t, "JavaScript", snap.LanguageStats[0].Name)
	assert.Equal(t, 1, snap.LanguageStats[0].Count)
	assert.Len(t, snap.CommitActivity, 6)

	require.Len(t, snap.RecentSearches, 1)
	assert.Equal(t, "octocat", snap.RecentSearches[0].Login)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "octocat", snap.History[0].Term)
	assert.True(t, hasNotification(snap, SeveritySuccess))
}

func TestSearch_HistoryKeepsRawTerm(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})

	require.NoError(t, sess.Search(context.Background(), "  octocat "))

	snap := sess.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "octocat", snap.Profile.Login, "the fetch uses the trimmed handle")
	require.Len(t, snap.History, 1)
	assert.Equal(t, "  octocat ", snap.History[0].Term, "history stores the term as submitted")
}

func TestSearch_NotFound(t *testing.T) {
	f := newFakeFetcher() // knows nobody
	sess := newTestSession(t, f, Options{})

	err := sess.Search(context.Background(), "nosuchuser")

	assert.ErrorIs(t, err, model.ErrNotFound)
	snap := sess.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Profile, "reset-before-fetch leaves no stale profile")
	assert.NotEmpty(t, snap.ErrorText)
	assert.True(t, hasNotification(snap, SeverityError))

	// The raw term is recorded even though the fetch failed.
	require.Len(t, snap.History, 1)
	assert.Equal(t, "nosuchuser", snap.History[0].Term)
	assert.Empty(t, snap.RecentSearches, "only resolved profiles enter recent searches")
}

func TestSearch_RepoFetchFailureFailsSession(t *testing.T) {
	f := octocatFetcher()
	f.repoErr = model.ErrService
	sess := newTestSession(t, f, Options{})

	err := sess.Search(context.Background(), "octocat")

	assert.ErrorIs(t, err, model.ErrService)
	snap := sess.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
}

func TestSearch_NewSearchClearsPreviousProfile(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})

	require.NoError(t, sess.Search(context.Background(), "octocat"))
	require.NotNil(t, sess.Snapshot().Profile)

	// A failing search starts from a blank slate; the old profile is gone.
	sess.Search(context.Background(), "nosuchuser")
	snap := sess.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Nil(t, snap.Profile)
}

func TestLoadMore_PaginatesAndRecomputesCharts(t *testing.T) {
	f := newFakeFetcher()
	f.profiles["octocat"] = &model.Profile{Login: "octocat"}
	f.repoPages[1] = []model.Repository{langRepo("a", "Go"), langRepo("b", "Go")}
	f.repoPages[2] = []model.Repository{langRepo("c", "Go"), langRepo("d", "Rust")}
	f.repoPages[3] = []model.Repository{langRepo("e", "Go")}
	sess := newTestSession(t, f, Options{PageSize: 2})

	require.NoError(t, sess.Search(context.Background(), "octocat"))
	snap := sess.Snapshot()
	assert.True(t, snap.HasMore)
	assert.Equal(t, 1, snap.Page)

	require.NoError(t, sess.LoadMore(context.Background()))
	snap = sess.Snapshot()
	assert.Len(t, snap.Repos, 4)
	assert.Equal(t, 2, snap.Page)
	assert.True(t, snap.HasMore)

	// Aggregates cover the accumulated set, not just the new page.
	require.Len(t, snap.LanguageStats, 2)
	assert.Equal(t, "Go", snap.LanguageStats[0].Name)
	assert.Equal(t, 3, snap.LanguageStats[0].Count)

	require.NoError(t, sess.LoadMore(context.Background()))
	snap = sess.Snapshot()
	assert.Len(t, snap.Repos, 5)
	assert.False(t, snap.HasMore, "short page ends pagination")

	calls := f.repoCalls
	require.NoError(t, sess.LoadMore(context.Background()))
	assert.Equal(t, calls, f.repoCalls, "no fetch once pagination is exhausted")
}

func TestLoadMore_NoOpWhileInFlight(t *testing.T) {
	f := newFakeFetcher()
	f.profiles["octocat"] = &model.Profile{Login: "octocat"}
	f.repoPages[1] = []model.Repository{langRepo("a", "Go"), langRepo("b", "Go")}
	f.repoPages[2] = []model.Repository{langRepo("c", "Go")}
	sess := newTestSession(t, f, Options{PageSize: 2})

	require.NoError(t, sess.Search(context.Background(), "octocat"))

	f.mu.Lock()
	f.repoGate = make(chan struct{})
	f.repoStarted = make(chan struct{}, 1)
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		sess.LoadMore(context.Background())
		close(done)
	}()
	<-f.repoStarted // first LoadMore is now in flight

	require.NoError(t, sess.LoadMore(context.Background()), "second call must be a no-op")

	f.mu.Lock()
	calls := f.repoCalls
	f.mu.Unlock()
	assert.Equal(t, 2, calls, "one search page + one in-flight page, no duplicate")

	close(f.repoGate)
	<-done
	assert.Len(t, sess.Snapshot().Repos, 3)
}

func TestSearch_StaleResultsDiscarded(t *testing.T) {
	f := newFakeFetcher()
	f.profiles["alice"] = &model.Profile{Login: "alice"}
	f.profiles["bob"] = &model.Profile{Login: "bob"}
	f.repoPages[1] = []model.Repository{langRepo("shared", "Go")}

	aliceGate := make(chan struct{})
	f.profileGates["alice"] = aliceGate
	sess := newTestSession(t, f, Options{})

	done := make(chan struct{})
	go func() {
		sess.Search(context.Background(), "alice")
		close(done)
	}()

	// Wait until the alice fetch is parked on its gate.
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.profileCalls == 1
	}, time.Second, 5*time.Millisecond)

	// The user types a new handle before the first search resolves.
	require.NoError(t, sess.Search(context.Background(), "bob"))

	close(aliceGate)
	<-done

	snap := sess.Snapshot()
	assert.Equal(t, StateLoaded, snap.State)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "bob", snap.Profile.Login, "late alice result must be discarded")
	assert.Equal(t, "bob", snap.Username)
}

func TestEnsureStarred_AtMostOncePerSession(t *testing.T) {
	f := octocatFetcher()
	f.starred = []model.Repository{langRepo("neat-tool", "Go")}
	sess := newTestSession(t, f, Options{})

	// Before any search there is nothing to fetch for.
	sess.EnsureStarred(context.Background())
	assert.Equal(t, 0, f.starredCalls)

	require.NoError(t, sess.Search(context.Background(), "octocat"))
	sess.EnsureStarred(context.Background())
	sess.EnsureStarred(context.Background())
	assert.Equal(t, 1, f.starredCalls)
	assert.Len(t, sess.Snapshot().Starred, 1)

	// A new search resets the lazy flags.
	require.NoError(t, sess.Search(context.Background(), "octocat"))
	assert.Empty(t, sess.Snapshot().Starred)
	sess.EnsureStarred(context.Background())
	assert.Equal(t, 2, f.starredCalls)
}

func TestEnsureStarred_FailureDoesNotFailSession(t *testing.T) {
	f := octocatFetcher()
	f.starredErr = model.ErrService
	sess := newTestSession(t, f, Options{})

	require.NoError(t, sess.Search(context.Background(), "octocat"))
	sess.EnsureStarred(context.Background())

	snap := sess.Snapshot()
	assert.Equal(t, StateLoaded, snap.State, "tab failure must not fail the session")
	assert.True(t, hasNotification(snap, SeverityError))
}

func TestLazyTabs_FollowersAndFollowing(t *testing.T) {
	f := octocatFetcher()
	f.followers = []model.UserSummary{{Login: "fan"}}
	f.following = []model.UserSummary{{Login: "idol"}}
	sess := newTestSession(t, f, Options{})

	require.NoError(t, sess.Search(context.Background(), "octocat"))
	sess.EnsureFollowers(context.Background())
	sess.EnsureFollowers(context.Background())
	sess.EnsureFollowing(context.Background())

	assert.Equal(t, 1, f.followersCalls)
	assert.Equal(t, 1, f.followingCalls)
	snap := sess.Snapshot()
	assert.Len(t, snap.Followers, 1)
	assert.Len(t, snap.Following, 1)
}

func TestToggleBookmark_IdempotentInverse(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})
	require.NoError(t, sess.Search(context.Background(), "octocat"))

	require.NoError(t, sess.ToggleBookmark())
	snap := sess.Snapshot()
	assert.True(t, snap.IsBookmarked)
	assert.Len(t, snap.Bookmarks, 1)

	require.NoError(t, sess.ToggleBookmark())
	snap = sess.Snapshot()
	assert.False(t, snap.IsBookmarked)
	assert.Empty(t, snap.Bookmarks)
}

func TestCompare(t *testing.T) {
	f := octocatFetcher()
	f.profiles["rival"] = &model.Profile{
		Login:       "rival",
		PublicRepos: 4,
		CreatedAt:   time.Date(2018, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
	sess := newTestSession(t, f, Options{})
	require.NoError(t, sess.Search(context.Background(), "octocat"))

	require.NoError(t, sess.Compare(context.Background(), "rival"))
	snap := sess.Snapshot()
	require.NotNil(t, snap.Compared)
	assert.Equal(t, "rival", snap.Compared.Login)
	assert.Len(t, snap.Radar, 5)
	assert.False(t, snap.Comparing)

	// A failed comparison keeps the previous compared profile.
	err := sess.Compare(context.Background(), "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
	snap = sess.Snapshot()
	require.NotNil(t, snap.Compared)
	assert.Equal(t, "rival", snap.Compared.Login)
	assert.False(t, snap.Comparing)

	// The primary session is untouched throughout.
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, "octocat", snap.Profile.Login)
}

func TestCompare_EmptyHandle(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})

	err := sess.Compare(context.Background(), "  ")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Equal(t, 0, f.profileCalls)
}

func TestSetSortOrder(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})

	err := sess.SetSortOrder(context.Background(), "alphabetical")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	require.NoError(t, sess.Search(context.Background(), "octocat"))
	calls := f.repoCalls
	require.NoError(t, sess.SetSortOrder(context.Background(), "created"))

	snap := sess.Snapshot()
	assert.Equal(t, "created", snap.SortKey)
	assert.Equal(t, StateLoaded, snap.State)
	assert.Equal(t, calls+1, f.repoCalls, "sort change refetches page one")
	assert.Equal(t, 1, snap.Page)
}

func TestDismissNotification(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})
	require.NoError(t, sess.Search(context.Background(), "octocat"))

	snap := sess.Snapshot()
	require.NotEmpty(t, snap.Notifications)
	id := snap.Notifications[0].ID

	sess.Dismiss(id)
	for _, n := range sess.Snapshot().Notifications {
		assert.NotEqual(t, id, n.ID)
	}
}

func TestSubscribe_PublishesAfterCommands(t *testing.T) {
	f := octocatFetcher()
	sess := newTestSession(t, f, Options{})

	var mu sync.Mutex
	var states []State
	sess.Subscribe(func(snap Snapshot) {
		mu.Lock()
		states = append(states, snap.State)
		mu.Unlock()
	})

	require.NoError(t, sess.Search(context.Background(), "octocat"))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, StateSearching, states[0], "searching is published before the fetch")
	assert.Equal(t, StateLoaded, states[len(states)-1])
}
