package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/devscope/internal/charts"
	"github.com/user/devscope/internal/model"
	"github.com/user/devscope/internal/session"
)

type palette struct {
	accent  lipgloss.Color
	text    lipgloss.Color
	dim     lipgloss.Color
	errText lipgloss.Color
	success lipgloss.Color
	info    lipgloss.Color
}

func newPalette(dark bool) palette {
	if dark {
		return palette{
			accent:  lipgloss.Color("86"),
			text:    lipgloss.Color("252"),
			dim:     lipgloss.Color("240"),
			errText: lipgloss.Color("196"),
			success: lipgloss.Color("42"),
			info:    lipgloss.Color("75"),
		}
	}
	return palette{
		accent:  lipgloss.Color("25"),
		text:    lipgloss.Color("235"),
		dim:     lipgloss.Color("245"),
		errText: lipgloss.Color("124"),
		success: lipgloss.Color("28"),
		info:    lipgloss.Color("31"),
	}
}

func (m appModel) View() string {
	pal := newPalette(m.snap.DarkMode)

	var b strings.Builder

	b.WriteString(m.renderHeader(pal))
	b.WriteString("\n")

	if m.snap.State == session.StateSearching || m.snap.State == session.StateLoadingMore {
		b.WriteString("  " + m.progress.ViewAs(m.pct) + "\n")
	}

	if m.snap.State == session.StateFailed && m.snap.ErrorText != "" {
		banner := lipgloss.NewStyle().Foreground(pal.errText).Bold(true)
		b.WriteString("  " + banner.Render("Error: "+m.snap.ErrorText) + "\n")
	}

	b.WriteString(m.renderTabBar(pal))
	b.WriteString("\n\n")

	switch m.activeTab {
	case tabOverview:
		b.WriteString(m.renderOverview(pal))
	case tabRepos:
		b.WriteString(m.renderRepos(pal))
	case tabStarred:
		b.WriteString(renderRepoLines("Starred", m.snap.Starred, pal))
	case tabFollowers:
		b.WriteString(renderUserLines("Followers", m.snap.Followers, pal))
	case tabFollowing:
		b.WriteString(renderUserLines("Following", m.snap.Following, pal))
	case tabCompare:
		b.WriteString(m.renderCompare(pal))
	}

	b.WriteString("\n")
	b.WriteString(renderNotifications(m.snap.Notifications, pal))
	b.WriteString(renderHelp(pal))

	return b.String()
}

func (m appModel) renderHeader(pal palette) string {
	searchStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(pal.accent).
		Padding(0, 1)

	mode := "light"
	if m.snap.DarkMode {
		mode = "dark"
	}
	meta := lipgloss.NewStyle().Foreground(pal.dim).
		Render(fmt.Sprintf("sort:%s  %s", m.snap.SortKey, mode))

	return lipgloss.JoinHorizontal(lipgloss.Center,
		searchStyle.Render(m.searchInput.View()), "  ", meta)
}

func (m appModel) renderTabBar(pal palette) string {
	active := lipgloss.NewStyle().Foreground(pal.accent).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(pal.dim)

	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("[%d]%s", i+1, name)
		if tab(i) == m.activeTab {
			parts = append(parts, active.Render(label))
		} else {
			parts = append(parts, inactive.Render(label))
		}
	}
	return "  " + strings.Join(parts, " ")
}

func (m appModel) renderOverview(pal palette) string {
	var b strings.Builder

	if m.snap.Profile == nil {
		dim := lipgloss.NewStyle().Foreground(pal.dim)
		b.WriteString(dim.Render("  Search for a GitHub user to get started.") + "\n\n")
		b.WriteString(renderRecentSearches(m.snap, pal))
		b.WriteString(renderBookmarks(m.snap, pal))
		return b.String()
	}

	p := m.snap.Profile
	title := lipgloss.NewStyle().Foreground(pal.accent).Bold(true)
	dim := lipgloss.NewStyle().Foreground(pal.dim)

	name := p.DisplayName()
	if m.snap.IsBookmarked {
		name += " ★"
	}
	b.WriteString("  " + title.Render(name) + dim.Render("  @"+p.Login) + "\n")

	if p.Bio != nil && *p.Bio != "" {
		b.WriteString("  " + *p.Bio + "\n")
	}

	var details []string
	if p.Company != nil && *p.Company != "" {
		details = append(details, *p.Company)
	}
	if p.Location != nil && *p.Location != "" {
		details = append(details, *p.Location)
	}
	if p.Blog != nil && *p.Blog != "" {
		details = append(details, *p.Blog)
	}
	if p.Twitter != nil && *p.Twitter != "" {
		details = append(details, "@"+*p.Twitter)
	}
	if len(details) > 0 {
		b.WriteString("  " + dim.Render(strings.Join(details, " · ")) + "\n")
	}

	b.WriteString(fmt.Sprintf("  Repos %s  Gists %s  Followers %s  Following %s  Joined %s\n\n",
		formatNumber(p.PublicRepos), formatNumber(p.PublicGists),
		formatNumber(p.Followers), formatNumber(p.Following),
		formatDate(p.CreatedAt)))

	b.WriteString(renderLanguageBars(m.snap.LanguageStats, pal))
	b.WriteString(renderActivityTable(m.snap.Activity, pal))
	b.WriteString(renderCommitBars(m.snap.CommitActivity, pal))

	return b.String()
}

func (m appModel) renderRepos(pal palette) string {
	var b strings.Builder
	b.WriteString(m.repoList.View())
	if m.snap.HasMore {
		dim := lipgloss.NewStyle().Foreground(pal.dim)
		b.WriteString("\n  " + dim.Render("[m] load more"))
	}
	return b.String()
}

func (m appModel) renderCompare(pal palette) string {
	var b strings.Builder

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(pal.accent).
		Padding(0, 1)
	b.WriteString("  " + inputStyle.Render(m.compareInput.View()) + "\n\n")

	if m.snap.Comparing {
		b.WriteString("  Comparing...\n")
		return b.String()
	}
	if m.snap.Profile == nil || m.snap.Compared == nil {
		dim := lipgloss.NewStyle().Foreground(pal.dim)
		b.WriteString(dim.Render("  Load a profile, then enter a second user to compare.") + "\n")
		return b.String()
	}

	title := lipgloss.NewStyle().Foreground(pal.accent).Bold(true)
	b.WriteString("  " + title.Render(m.snap.Profile.Login+" vs "+m.snap.Compared.Login) + "\n\n")

	for _, metric := range m.snap.Radar {
		b.WriteString(fmt.Sprintf("  %-11s %8.0f %s\n", metric.Subject, metric.A,
			bar(metric.A, metric.FullMark, 20, pal.accent)))
		b.WriteString(fmt.Sprintf("  %-11s %8.0f %s\n", "", metric.B,
			bar(metric.B, metric.FullMark, 20, pal.info)))
	}
	return b.String()
}

func renderRecentSearches(snap session.Snapshot, pal palette) string {
	if len(snap.RecentSearches) == 0 {
		return ""
	}
	var b strings.Builder
	dim := lipgloss.NewStyle().Foreground(pal.dim)
	b.WriteString(dim.Render("  Recent searches:") + "\n")
	for _, r := range snap.RecentSearches {
		b.WriteString(fmt.Sprintf("    %s (%s)\n", r.Name, r.Login))
	}
	b.WriteString("\n")
	return b.String()
}

func renderBookmarks(snap session.Snapshot, pal palette) string {
	if len(snap.Bookmarks) == 0 {
		return ""
	}
	var b strings.Builder
	dim := lipgloss.NewStyle().Foreground(pal.dim)
	b.WriteString(dim.Render("  Bookmarks:") + "\n")
	for _, bm := range snap.Bookmarks {
		b.WriteString(fmt.Sprintf("    ★ %s (%s)\n", bm.Name, bm.Login))
	}
	b.WriteString("\n")
	return b.String()
}

func renderLanguageBars(stats []charts.LanguageCount, pal palette) string {
	if len(stats) == 0 {
		return ""
	}
	var b strings.Builder
	header := lipgloss.NewStyle().Foreground(pal.text).Bold(true)
	b.WriteString("  " + header.Render("Languages") + "\n")

	max := stats[0].Count
	for _, s := range stats {
		if s.Count > max {
			max = s.Count
		}
	}
	for _, s := range stats {
		b.WriteString(fmt.Sprintf("  %-12s %3d %s\n", s.Name, s.Count,
			bar(float64(s.Count), float64(max), 24, pal.accent)))
	}
	b.WriteString("\n")
	return b.String()
}

func renderActivityTable(points []charts.ActivityPoint, pal palette) string {
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	header := lipgloss.NewStyle().Foreground(pal.text).Bold(true)
	dim := lipgloss.NewStyle().Foreground(pal.dim)
	b.WriteString("  " + header.Render("Recently updated") + "\n")
	b.WriteString("  " + dim.Render(fmt.Sprintf("%-14s %6s %6s %7s", "repo", "stars", "forks", "issues")) + "\n")
	for _, p := range points {
		b.WriteString(fmt.Sprintf("  %-14s %6d %6d %7d\n", p.Name, p.Stars, p.Forks, p.Issues))
	}
	b.WriteString("\n")
	return b.String()
}

func renderCommitBars(points []charts.CommitPoint, pal palette) string {
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	header := lipgloss.NewStyle().Foreground(pal.text).Bold(true)
	dim := lipgloss.NewStyle().Foreground(pal.dim)
	// Estimated from repo update months, not real commit counts.
	b.WriteString("  " + header.Render("Activity (estimated)") + "\n")

	max := 0
	for _, p := range points {
		if p.Commits > max {
			max = p.Commits
		}
	}
	for _, p := range points {
		b.WriteString(fmt.Sprintf("  %-4s %s\n", p.Month,
			bar(float64(p.Commits), float64(max), 24, pal.info)))
	}
	b.WriteString("  " + dim.Render("synthetic estimate, not real commit data") + "\n\n")
	return b.String()
}

func renderRepoLines(title string, repos []model.Repository, pal palette) string {
	header := lipgloss.NewStyle().Foreground(pal.text).Bold(true)
	dim := lipgloss.NewStyle().Foreground(pal.dim)

	var b strings.Builder
	b.WriteString("  " + header.Render(title) + "\n")
	if len(repos) == 0 {
		b.WriteString("  " + dim.Render("Nothing here yet.") + "\n")
		return b.String()
	}
	for _, r := range repos {
		line := fmt.Sprintf("  %-30s *%s", r.FullName, formatNumber(r.Stars))
		if r.Language != nil {
			line += dim.Render("  " + *r.Language)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func renderUserLines(title string, users []model.UserSummary, pal palette) string {
	header := lipgloss.NewStyle().Foreground(pal.text).Bold(true)
	dim := lipgloss.NewStyle().Foreground(pal.dim)

	var b strings.Builder
	b.WriteString("  " + header.Render(title) + "\n")
	if len(users) == 0 {
		b.WriteString("  " + dim.Render("Nothing here yet.") + "\n")
		return b.String()
	}
	for _, u := range users {
		b.WriteString(fmt.Sprintf("  %-20s %s\n", u.Login, dim.Render(u.HTMLURL)))
	}
	return b.String()
}

func renderNotifications(notes []session.Notification, pal palette) string {
	if len(notes) == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range notes {
		var style lipgloss.Style
		switch n.Severity {
		case session.SeverityError:
			style = lipgloss.NewStyle().Foreground(pal.errText)
		case session.SeveritySuccess:
			style = lipgloss.NewStyle().Foreground(pal.success)
		default:
			style = lipgloss.NewStyle().Foreground(pal.info)
		}
		b.WriteString("  " + style.Render("• "+n.Message) + "\n")
	}
	return b.String()
}

func renderHelp(pal palette) string {
	help := "[/]search [tab]tabs [m]ore [s]ort [b]ookmark [c]ompare [d]ark [o]pen [x]dismiss [q]uit"
	return lipgloss.NewStyle().Foreground(pal.dim).MarginTop(1).Render("  " + help)
}

func bar(value, max float64, width int, color lipgloss.Color) string {
	if max <= 0 {
		max = 1
	}
	filled := int(float64(width) * value / max)
	if filled > width {
		filled = width
	}
	style := lipgloss.NewStyle().Foreground(color)
	return style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)
}

func formatNumber(n int) string {
	switch {
	case n >= 1000000:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	case n >= 1000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}
