package cohort

import (
	"sort"

	"ad-metrics-pipeline/internal/domain"
)

// Context holds the per-run cohort index and event histories. It is
// built once at the start of a run, owned by that run, and never shared
// across runs. Rate lookups must not be issued before construction
// completes: the per-user event lists are time-sorted here and every
// forward-scan rule depends on that order.
type Context struct {
	windows domain.RunWindows

	// index buckets cohort members under all four specificity levels.
	index map[domain.CohortKey][]*domain.Attribution

	// events holds each user's full history, sorted by event time ASC.
	events map[string][]*domain.LifecycleEvent
}

// BuildContext constructs the cohort index and the sorted event lookup.
// Only attributions whose credited date falls inside the trial cohort
// window become cohort members; the guard is re-checked here so callers
// may pass a broader set.
func BuildContext(windows domain.RunWindows, attrs []*domain.Attribution, events []*domain.LifecycleEvent) *Context {
	c := &Context{
		windows: windows,
		index:   make(map[domain.CohortKey][]*domain.Attribution),
		events:  make(map[string][]*domain.LifecycleEvent),
	}

	for _, a := range attrs {
		if !a.Valid || !windows.InTrialCohortWindow(a.CreditedDate) {
			continue
		}
		for _, level := range searchLevels {
			key := KeyAtLevel(a, level)
			c.index[key] = append(c.index[key], a)
		}
	}

	for _, e := range events {
		c.events[e.UserID] = append(c.events[e.UserID], e)
	}
	for _, list := range c.events {
		sort.Slice(list, func(i, j int) bool {
			return list[i].EventTime.Before(list[j].EventTime)
		})
	}

	return c
}

// Windows returns the run windows the context was built with.
func (c *Context) Windows() domain.RunWindows {
	return c.windows
}

// Members returns the cohort bucket for a key.
func (c *Context) Members(key domain.CohortKey) []*domain.Attribution {
	return c.index[key]
}

// EventsForUser returns a user's history, sorted by event time ASC.
func (c *Context) EventsForUser(userID string) []*domain.LifecycleEvent {
	return c.events[userID]
}
