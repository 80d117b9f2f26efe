// Package season maps a calendar date to the season year a league's pages
// are filed under.
package season

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Start describes when a league's season begins. Wrap is set for seasons
// that cross New Year and are named after the year they end in.
type Start struct {
	Month time.Month
	Wrap  bool
}

// Starts lists the supported leagues.
var Starts = map[string]Start{
	"mlb":   {Month: time.April},
	"nba":   {Month: time.October, Wrap: true},
	"ncaab": {Month: time.November, Wrap: true},
	"ncaaf": {Month: time.August},
	"nfl":   {Month: time.September},
	"nhl":   {Month: time.October, Wrap: true},
	"mls":   {Month: time.March},
}

// ErrUnknownLeague is returned for a league missing from Starts.
type ErrUnknownLeague struct {
	League string
}

func (e ErrUnknownLeague) Error() string {
	return fmt.Sprintf("unknown league %q", e.League)
}

// Leagues returns the supported league keys, sorted.
func Leagues() []string {
	out := make([]string, 0, len(Starts))
	for k := range Starts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// YearFor returns the season year in effect for league on now. The month
// before the season opens already counts as the new season, so preseason
// lookups land on the coming year.
func YearFor(league string, now time.Time) (int, error) {
	st, ok := Starts[league]
	if !ok {
		return 0, ErrUnknownLeague{League: league}
	}
	year, month := now.Year(), now.Month()
	inWindow := month >= st.Month-1

	switch {
	case st.Wrap && inWindow:
		return year + 1, nil
	case !st.Wrap && st.Month == time.January && month == time.December:
		return year + 1, nil
	case !st.Wrap && !inWindow:
		return year - 1, nil
	default:
		return year, nil
	}
}

// ExistsFunc reports whether a league's page for year is published.
type ExistsFunc func(ctx context.Context, year int) bool

// Resolve is YearFor plus a single fallback: when the inferred season's page
// is not up yet but the previous season's is, the previous year is used. A
// nil exists skips the check.
func Resolve(ctx context.Context, league string, now time.Time, exists ExistsFunc) (int, error) {
	year, err := YearFor(league, now)
	if err != nil {
		return 0, err
	}
	if exists == nil {
		return year, nil
	}
	if !exists(ctx, year) && exists(ctx, year-1) {
		return year - 1, nil
	}
	return year, nil
}
