// Package charts derives chart-ready datasets from already-fetched profile
// and repository records. All functions are pure over their inputs and do no
// I/O.
package charts

import (
	"math/rand"
	"sort"
	"time"

	"github.com/user/devscope/internal/model"
)

type LanguageCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type ActivityPoint struct {
	Name   string `json:"name"`
	Stars  int    `json:"stars"`
	Forks  int    `json:"forks"`
	Issues int    `json:"issues"`
	Size   int    `json:"size"`
}

type CommitPoint struct {
	Month   string `json:"month"`
	Commits int    `json:"commits"`
}

type RadarMetric struct {
	Subject  string  `json:"subject"`
	A        float64 `json:"a"`
	B        float64 `json:"b"`
	FullMark float64 `json:"full_mark"`
}

// LanguageDistribution counts repositories grouped by primary language,
// descending by count with ties kept in first-encountered order.
// Repositories without a language are excluded.
func LanguageDistribution(repos []model.Repository) []LanguageCount {
	counts := make(map[string]int)
	var order []string

	for _, r := range repos {
		if r.Language == nil || *r.Language == "" {
			continue
		}
		if _, seen := counts[*r.Language]; !seen {
			order = append(order, *r.Language)
		}
		counts[*r.Language]++
	}

	out := make([]LanguageCount, 0, len(order))
	for _, name := range order {
		out = append(out, LanguageCount{Name: name, Count: counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// RecentActivity maps the five most recently updated repositories to chart
// points, ordered oldest-of-the-five first so the chart reads left to right.
func RecentActivity(repos []model.Repository) []ActivityPoint {
	sorted := make([]model.Repository, len(repos))
	copy(sorted, repos)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	if len(sorted) > 5 {
		sorted = sorted[:5]
	}

	out := make([]ActivityPoint, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		r := sorted[i]
		out = append(out, ActivityPoint{
			Name:   shortName(r.Name),
			Stars:  r.Stars,
			Forks:  r.Forks,
			Issues: r.OpenIssues,
			Size:   r.Size,
		})
	}
	return out
}

// CommitActivity builds a six-month activity series ending at now's month,
// oldest first, wrapping the year boundary. The values are synthetic
// visualization filler derived from repository update months plus random
// jitter, NOT real commit counts; only the floor of 5 and the month ordering
// are contractual.
func CommitActivity(repos []model.Repository, now time.Time) []CommitPoint {
	currentMonth := int(now.Month()) - 1 // zero-based

	out := make([]CommitPoint, 0, 6)
	for i := 5; i >= 0; i-- {
		monthIndex := (currentMonth - i + 12) % 12
		month := time.Month(monthIndex + 1)

		updated := 0
		for _, r := range repos {
			if r.UpdatedAt.Month() == month {
				updated++
			}
		}

		commits := updated*15 + rand.Intn(30)
		if commits < 5 {
			commits = 5
		}

		out = append(out, CommitPoint{
			Month:   month.String()[:3],
			Commits: commits,
		})
	}
	return out
}

// ComparisonRadar produces the five head-to-head metrics for two profiles.
// Account age is whole calendar years, no day-level precision. FullMark is
// 1.2x the larger value, or 1 when both are zero so the scale never
// degenerates.
func ComparisonRadar(a, b *model.Profile, now time.Time) []RadarMetric {
	if a == nil || b == nil {
		return nil
	}

	ageA := float64(now.Year() - a.CreatedAt.Year())
	ageB := float64(now.Year() - b.CreatedAt.Year())

	metrics := []struct {
		subject string
		a, b    float64
	}{
		{"Repos", float64(a.PublicRepos), float64(b.PublicRepos)},
		{"Gists", float64(a.PublicGists), float64(b.PublicGists)},
		{"Followers", float64(a.Followers), float64(b.Followers)},
		{"Following", float64(a.Following), float64(b.Following)},
		{"Experience", ageA, ageB},
	}

	out := make([]RadarMetric, 0, len(metrics))
	for _, m := range metrics {
		fullMark := m.a
		if m.b > fullMark {
			fullMark = m.b
		}
		fullMark *= 1.2
		if fullMark == 0 {
			fullMark = 1
		}
		out = append(out, RadarMetric{Subject: m.subject, A: m.a, B: m.b, FullMark: fullMark})
	}
	return out
}

func shortName(name string) string {
	runes := []rune(name)
	if len(runes) <= 10 {
		return name
	}
	return string(runes[:10]) + "..."
}
