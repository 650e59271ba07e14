package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/user/devscope/internal/model"
)

const (
	darkModeKey       = "dark_mode"
	recentSearchesKey = "recent_searches"
	searchHistoryKey  = "search_history"
	bookmarksKey      = "bookmarks"

	maxRecentSearches = 5
	maxSearchHistory  = 20
)

// Store persists user preferences as string-keyed JSON blobs in sqlite.
// Reads never fail: a missing or malformed value degrades to the
// collection's empty/default value. Every mutation is flushed immediately.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prefs (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) get(key string) string {
	var value string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO prefs (key, value) VALUES (?, ?)`, key, value)
	return err
}

// getJSON unmarshals the blob stored under key into out. Corrupted or
// missing data leaves out at its zero value.
func (s *Store) getJSON(key string, out interface{}) {
	raw := s.get(key)
	if raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), out)
}

func (s *Store) setJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.set(key, string(data))
}

func (s *Store) DarkMode() bool {
	var dark bool
	s.getJSON(darkModeKey, &dark)
	return dark
}

func (s *Store) SetDarkMode(dark bool) error {
	return s.setJSON(darkModeKey, dark)
}

func (s *Store) RecentSearches() []model.RecentSearch {
	var entries []model.RecentSearch
	s.getJSON(recentSearchesKey, &entries)
	return entries
}

// AddRecentSearch prepends the entry, dropping any older entry with the same
// login and trimming the list to five.
func (s *Store) AddRecentSearch(entry model.RecentSearch) error {
	existing := s.RecentSearches()

	entries := make([]model.RecentSearch, 0, len(existing)+1)
	entries = append(entries, entry)
	for _, e := range existing {
		if e.Login != entry.Login {
			entries = append(entries, e)
		}
	}
	if len(entries) > maxRecentSearches {
		entries = entries[:maxRecentSearches]
	}

	return s.setJSON(recentSearchesKey, entries)
}

func (s *Store) ClearRecentSearches() error {
	return s.setJSON(recentSearchesKey, []model.RecentSearch{})
}

func (s *Store) SearchHistory() []model.HistoryEntry {
	var entries []model.HistoryEntry
	s.getJSON(searchHistoryKey, &entries)
	return entries
}

// AddHistoryEntry prepends the raw search term, trimming the list to twenty.
// Terms are recorded unconditionally, including ones that fail to resolve.
func (s *Store) AddHistoryEntry(term string, at time.Time) error {
	entries := append([]model.HistoryEntry{{Term: term, Timestamp: at}}, s.SearchHistory()...)
	if len(entries) > maxSearchHistory {
		entries = entries[:maxSearchHistory]
	}
	return s.setJSON(searchHistoryKey, entries)
}

func (s *Store) ClearHistory() error {
	return s.setJSON(searchHistoryKey, []model.HistoryEntry{})
}

func (s *Store) Bookmarks() []model.Bookmark {
	var bookmarks []model.Bookmark
	s.getJSON(bookmarksKey, &bookmarks)
	return bookmarks
}

func (s *Store) IsBookmarked(login string) bool {
	for _, b := range s.Bookmarks() {
		if b.Login == login {
			return true
		}
	}
	return false
}

// ToggleBookmark adds the bookmark if absent and removes it if present,
// returning true when it was added.
func (s *Store) ToggleBookmark(bookmark model.Bookmark) (bool, error) {
	existing := s.Bookmarks()

	kept := make([]model.Bookmark, 0, len(existing))
	removed := false
	for _, b := range existing {
		if b.Login == bookmark.Login {
			removed = true
			continue
		}
		kept = append(kept, b)
	}

	if !removed {
		kept = append(kept, bookmark)
	}

	if err := s.setJSON(bookmarksKey, kept); err != nil {
		return false, err
	}
	return !removed, nil
}

func (s *Store) ClearBookmarks() error {
	return s.setJSON(bookmarksKey, []model.Bookmark{})
}
