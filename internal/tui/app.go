package tui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/devscope/internal/config"
	"github.com/user/devscope/internal/github"
	"github.com/user/devscope/internal/logger"
	"github.com/user/devscope/internal/model"
	"github.com/user/devscope/internal/session"
	"github.com/user/devscope/internal/store"
)

type tab int

const (
	tabOverview tab = iota
	tabRepos
	tabStarred
	tabFollowers
	tabFollowing
	tabCompare
)

var tabNames = [...]string{"Overview", "Repos", "Starred", "Followers", "Following", "Compare"}

var sortCycle = []string{"updated", "created", "pushed", "full_name"}

type appModel struct {
	cfg  *config.Config
	sess *session.Session

	snaps chan session.Snapshot
	snap  session.Snapshot

	searchInput  textinput.Model
	compareInput textinput.Model
	repoList     list.Model
	progress     progress.Model
	pct          float64

	activeTab tab
	width     int
	height    int
	searching bool // search input focused
	comparing bool // compare input focused
}

type repoItem struct {
	repo model.Repository
}

func (r repoItem) Title() string {
	return fmt.Sprintf("%s  *%d  f%d", r.repo.Name, r.repo.Stars, r.repo.Forks)
}

func (r repoItem) Description() string {
	if r.repo.Description != nil && *r.repo.Description != "" {
		desc := *r.repo.Description
		if len(desc) > 80 {
			desc = desc[:80] + "..."
		}
		return desc
	}
	if r.repo.Language != nil {
		return *r.repo.Language
	}
	return r.repo.HTMLURL
}

func (r repoItem) FilterValue() string {
	return r.repo.Name
}

type snapshotMsg struct {
	snap session.Snapshot
}

type progressTickMsg struct{}

func initialModel(cfg *config.Config, sess *session.Session, snaps chan session.Snapshot) appModel {
	ti := textinput.New()
	ti.Placeholder = "Search GitHub users..."
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 40

	ci := textinput.New()
	ci.Placeholder = "Compare with..."
	ci.CharLimit = 64
	ci.Width = 40

	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Repositories"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return appModel{
		cfg:          cfg,
		sess:         sess,
		snaps:        snaps,
		snap:         sess.Snapshot(),
		searchInput:  ti,
		compareInput: ci,
		repoList:     l,
		progress:     progress.New(progress.WithDefaultGradient()),
		searching:    true,
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForSnapshot(), tickCmd())
}

func (m appModel) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg{snap: <-m.snaps}
	}
}

func tickCmd() tea.Cmd {
	// Drives the cosmetic loading bar: +10% every 300ms, capped at 90%,
	// snapped to 100% when the session commits. Not a real measurement.
	return tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

func (m appModel) doSearch(handle string) tea.Cmd {
	return func() tea.Msg {
		m.sess.Search(context.Background(), handle)
		return nil
	}
}

func (m appModel) doCompare(handle string) tea.Cmd {
	return func() tea.Msg {
		m.sess.Compare(context.Background(), handle)
		return nil
	}
}

func (m appModel) doLoadMore() tea.Cmd {
	return func() tea.Msg {
		m.sess.LoadMore(context.Background())
		return nil
	}
}

func (m appModel) doSetSort(key string) tea.Cmd {
	return func() tea.Msg {
		m.sess.SetSortOrder(context.Background(), key)
		return nil
	}
}

func (m appModel) activateTab(t tab) (appModel, tea.Cmd) {
	m.activeTab = t
	switch t {
	case tabStarred:
		return m, func() tea.Msg { m.sess.EnsureStarred(context.Background()); return nil }
	case tabFollowers:
		return m, func() tea.Msg { m.sess.EnsureFollowers(context.Background()); return nil }
	case tabFollowing:
		return m, func() tea.Msg { m.sess.EnsureFollowing(context.Background()); return nil }
	case tabCompare:
		m.comparing = true
		m.compareInput.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.searching {
				m.searching = false
				m.searchInput.Blur()
				return m, nil
			}
			if m.comparing {
				m.comparing = false
				m.compareInput.Blur()
				return m, nil
			}
		case "enter":
			if m.searching {
				m.searching = false
				m.searchInput.Blur()
				m.pct = 0
				m.activeTab = tabOverview
				return m, m.doSearch(m.searchInput.Value())
			}
			if m.comparing {
				m.comparing = false
				m.compareInput.Blur()
				return m, m.doCompare(m.compareInput.Value())
			}
		}

		if m.searching {
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}
		if m.comparing {
			var cmd tea.Cmd
			m.compareInput, cmd = m.compareInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "/":
			m.searching = true
			m.searchInput.Focus()
			return m, textinput.Blink
		case "tab":
			return m.activateTab((m.activeTab + 1) % tab(len(tabNames)))
		case "shift+tab":
			return m.activateTab((m.activeTab + tab(len(tabNames)) - 1) % tab(len(tabNames)))
		case "1", "2", "3", "4", "5", "6":
			return m.activateTab(tab(msg.String()[0] - '1'))
		case "m":
			return m, m.doLoadMore()
		case "s":
			return m, m.doSetSort(nextSort(m.snap.SortKey))
		case "b":
			return m, func() tea.Msg { m.sess.ToggleBookmark(); return nil }
		case "c":
			return m.activateTab(tabCompare)
		case "d":
			return m, func() tea.Msg { m.sess.SetDarkMode(!m.snap.DarkMode); return nil }
		case "x":
			if len(m.snap.Notifications) > 0 {
				id := m.snap.Notifications[0].ID
				return m, func() tea.Msg { m.sess.Dismiss(id); return nil }
			}
		case "o":
			if m.activeTab == tabRepos {
				if item, ok := m.repoList.SelectedItem().(repoItem); ok {
					openBrowser(item.repo.HTMLURL)
				}
			} else if m.snap.Profile != nil {
				openBrowser(m.snap.Profile.HTMLURL)
			}
		case "j", "down", "k", "up", "g", "G":
			if m.activeTab == tabRepos {
				var cmd tea.Cmd
				m.repoList, cmd = m.repoList.Update(msg)
				return m, cmd
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.repoList.SetSize(msg.Width-4, msg.Height-12)
		m.progress.Width = msg.Width - 8
		m.searchInput.Width = msg.Width - 24

	case snapshotMsg:
		m.snap = msg.snap
		m.repoList.SetItems(reposToItems(msg.snap.Repos))
		switch msg.snap.State {
		case session.StateLoaded, session.StateFailed:
			m.pct = 1.0
		}
		cmds = append(cmds, m.waitForSnapshot())

	case progressTickMsg:
		if m.snap.State == session.StateSearching || m.snap.State == session.StateLoadingMore {
			m.pct += 0.10
			if m.pct > 0.90 {
				m.pct = 0.90
			}
		}
		cmds = append(cmds, tickCmd())
	}

	return m, tea.Batch(cmds...)
}

func nextSort(current string) string {
	for i, s := range sortCycle {
		if s == current {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

func reposToItems(repos []model.Repository) []list.Item {
	items := make([]list.Item, 0, len(repos))
	for _, r := range repos {
		items = append(items, repoItem{repo: r})
	}
	return items
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}
	if cmd != nil {
		cmd.Start()
	}
}

// sendSnapshot delivers snap without blocking the session's command path.
// When the TUI falls behind, the oldest queued snapshot is dropped so the
// latest state always lands.
func sendSnapshot(snaps chan session.Snapshot, snap session.Snapshot) {
	for {
		select {
		case snaps <- snap:
			return
		default:
		}
		select {
		case <-snaps:
		default:
		}
	}
}

// Run wires up the client, store and session, and starts the TUI.
func Run(cfg *config.Config) error {
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	log := logger.Setup(logFile, cfg.LogLevel)

	client, err := github.NewClient(cfg.GitHub.Token, cfg.GitHub.APIURL, cfg.HTTPTimeout, log)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	prefs, err := store.NewStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open preference store: %w", err)
	}
	defer prefs.Close()

	sess := session.New(client, prefs, session.Options{
		PageSize:       cfg.GitHub.PageSize,
		SortKey:        cfg.GitHub.Sort,
		StarredLimit:   cfg.GitHub.StarredLimit,
		FollowersLimit: cfg.GitHub.FollowersLimit,
		FollowingLimit: cfg.GitHub.FollowingLimit,
		Logger:         log,
	})

	snaps := make(chan session.Snapshot, 32)
	sess.Subscribe(func(snap session.Snapshot) { sendSnapshot(snaps, snap) })

	p := tea.NewProgram(initialModel(cfg, sess, snaps), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
