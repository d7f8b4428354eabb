// Package views derives presentation groupings from stored memories. Every
// function here is pure: the caller supplies the records and the clock, so
// the same inputs always produce the same output.
package views

import (
	"sort"
	"strings"
	"time"

	"github.com/keepsake-app/keepsake/pkg/types"
)

// suggestionLimit caps how many memories a suggestion set carries.
const suggestionLimit = 5

// Suggestion reason labels, surfaced to clients so the UI can title the set.
const (
	ReasonMorningRecap     = "morning-recap"
	ReasonAfternoonRecent  = "afternoon-recent"
	ReasonEveningFavorites = "evening-favorites"
	ReasonRecentFallback   = "recent-fallback"
)

// DayGroup is one calendar date's worth of memories.
type DayGroup struct {
	Date     time.Time      `json:"date"`
	Label    string         `json:"label"`
	Memories []types.Memory `json:"memories"`
}

// Suggestions is a time-of-day pick of memories plus the rule that chose it.
type Suggestions struct {
	Reason   string         `json:"reason"`
	Memories []types.Memory `json:"memories"`
}

// GroupByDay buckets memories by the calendar date they were captured on,
// in now's location. Groups come back date-descending; within a group the
// input order is preserved, so a newest-first input yields newest-first
// groups throughout.
func GroupByDay(memories []types.Memory, now time.Time) []DayGroup {
	loc := now.Location()

	var groups []DayGroup
	index := make(map[time.Time]int)

	for _, m := range memories {
		day := dateOf(m.CreatedAt.In(loc))
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DayGroup{
				Date:  day,
				Label: dayLabel(day, now),
			})
		}
		groups[i].Memories = append(groups[i].Memories, m)
	}

	sortGroupsNewestFirst(groups)
	return groups
}

// Suggest picks a small set of memories to resurface based on the time of
// day. Mornings recap yesterday, afternoons show the latest captures, and
// evenings bring back the most revisited entries. When the preferred rule
// has nothing to show, the five most recent memories stand in and the
// reason reports the fallback.
func Suggest(memories []types.Memory, now time.Time) Suggestions {
	hour := now.Hour()

	switch {
	case hour < 12:
		yesterday := dateOf(now.AddDate(0, 0, -1))
		picked := onDate(memories, yesterday, now.Location())
		if len(picked) > 0 {
			return Suggestions{Reason: ReasonMorningRecap, Memories: limitTo(picked)}
		}
	case hour < 17:
		return Suggestions{Reason: ReasonAfternoonRecent, Memories: limitTo(memories)}
	default:
		picked := mostViewed(memories)
		if len(picked) > 0 {
			return Suggestions{Reason: ReasonEveningFavorites, Memories: limitTo(picked)}
		}
	}

	return Suggestions{Reason: ReasonRecentFallback, Memories: limitTo(memories)}
}

// MatchesGoal reports whether a memory relates to a focus goal. The goal
// name is lowercased and split on whitespace; the memory matches when any
// keyword appears as a substring of its lowercased content or of any
// lowercased focus tag.
func MatchesGoal(memory types.Memory, goalName string) bool {
	keywords := strings.Fields(strings.ToLower(goalName))
	if len(keywords) == 0 {
		return false
	}

	content := strings.ToLower(memory.Content)
	tags := strings.ToLower(memory.FocusTags)
	for _, kw := range keywords {
		if strings.Contains(content, kw) || strings.Contains(tags, kw) {
			return true
		}
	}
	return false
}

// FilterByGoal keeps only the memories matching the goal, preserving order.
func FilterByGoal(memories []types.Memory, goalName string) []types.Memory {
	var out []types.Memory
	for _, m := range memories {
		if MatchesGoal(m, goalName) {
			out = append(out, m)
		}
	}
	return out
}

// dayLabel renders a calendar date relative to now: "Today", "Yesterday",
// or a long form like "Monday, Jan 2".
func dayLabel(day, now time.Time) string {
	today := dateOf(now)
	switch day {
	case today:
		return "Today"
	case today.AddDate(0, 0, -1):
		return "Yesterday"
	default:
		return day.Format("Monday, Jan 2")
	}
}

// dateOf truncates t to midnight in its own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// onDate keeps memories captured on the given calendar date, viewed in loc.
func onDate(memories []types.Memory, day time.Time, loc *time.Location) []types.Memory {
	var out []types.Memory
	for _, m := range memories {
		if dateOf(m.CreatedAt.In(loc)).Equal(day) {
			out = append(out, m)
		}
	}
	return out
}

// mostViewed keeps viewed memories ordered by view count descending, with
// newer captures breaking ties.
func mostViewed(memories []types.Memory) []types.Memory {
	var out []types.Memory
	for _, m := range memories {
		if m.ViewCount > 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ViewCount != out[j].ViewCount {
			return out[i].ViewCount > out[j].ViewCount
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// sortGroupsNewestFirst orders day groups date-descending.
func sortGroupsNewestFirst(groups []DayGroup) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date)
	})
}

// limitTo trims a slice to the suggestion limit without mutating the input.
func limitTo(memories []types.Memory) []types.Memory {
	if len(memories) > suggestionLimit {
		return memories[:suggestionLimit]
	}
	return memories
}
