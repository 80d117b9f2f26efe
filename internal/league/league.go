// Package league holds the per-sport page catalogs and turns fetched pages
// into teams, schedules and boxscores.
package league

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"sportsref/internal/extracthtml"
	"sportsref/internal/season"
)

//go:embed schemes/*.json
var catalogFS embed.FS

// Page is one season page and the table containers read from it, in order.
type Page struct {
	URL    string   `json:"url"`
	Tables []string `json:"tables"`
}

// TeamsSpec describes the bulk team pass. ExistsURL is checked when the season
// has to be inferred.
type TeamsSpec struct {
	ExistsURL string                 `json:"exists_url"`
	Pages     []Page                 `json:"pages"`
	Scheme    extracthtml.SchemeFile `json:"scheme"`
	scheme    *extracthtml.Scheme
}

// ScheduleSpec describes a team's season schedule page.
type ScheduleSpec struct {
	URL   string `json:"url"`
	Table string `json:"table"`
	// DateLayout is a time layout for the date column. DateAppendYear adds
	// the season year for sites that print dates without one.
	DateLayout     string                 `json:"date_layout"`
	DateAppendYear bool                   `json:"date_append_year,omitempty"`
	LowerAbbr      bool                   `json:"lower_abbr,omitempty"`
	Scheme         extracthtml.SchemeFile `json:"scheme"`
	scheme         *extracthtml.Scheme
}

// BoxscoreSpec describes a single game page. SubIndex picks one part of a
// composite cell ("rush_att-rush_yds-rush_td") for fields that need it.
type BoxscoreSpec struct {
	URL      string                 `json:"url"`
	SubIndex map[string]int         `json:"sub_index,omitempty"`
	Scheme   extracthtml.SchemeFile `json:"scheme"`
	scheme   *extracthtml.Scheme
}

// PlayerSpec describes pages whose rows belong to players: a player's career
// page keyed by season, or a team's season pages keyed by player id. Name is
// a page selector for the player's display name.
type PlayerSpec struct {
	Pages  []Page                 `json:"pages"`
	Name   string                 `json:"name,omitempty"`
	Scheme extracthtml.SchemeFile `json:"scheme"`
	scheme *extracthtml.Scheme
}

// League is one sport's catalog.
type League struct {
	Name     string        `json:"league"`
	Site     string        `json:"site"`
	Teams    TeamsSpec     `json:"teams"`
	Schedule *ScheduleSpec `json:"schedule,omitempty"`
	Boxscore *BoxscoreSpec `json:"boxscore,omitempty"`
	Player   *PlayerSpec   `json:"player,omitempty"`
	Roster   *PlayerSpec   `json:"roster,omitempty"`
}

// TeamScheme returns the compiled team scheme.
func (l *League) TeamScheme() *extracthtml.Scheme { return l.Teams.scheme }

// ParseCatalog decodes and validates one league catalog.
func ParseCatalog(b []byte) (*League, error) {
	var lg League
	if err := json.Unmarshal(b, &lg); err != nil {
		return nil, fmt.Errorf("parse catalog json: %w", err)
	}
	if _, ok := season.Starts[lg.Name]; !ok {
		return nil, season.ErrUnknownLeague{League: lg.Name}
	}
	if len(lg.Teams.Pages) == 0 {
		return nil, fmt.Errorf("league %s: teams has no pages", lg.Name)
	}
	var err error
	if lg.Teams.scheme, err = compile(lg.Name+" teams", &lg.Teams.Scheme); err != nil {
		return nil, err
	}
	for _, p := range lg.Teams.Pages {
		for _, tbl := range p.Tables {
			if err := extracthtml.ValidateSelector(tbl); err != nil {
				return nil, fmt.Errorf("league %s: table %q: %w", lg.Name, tbl, err)
			}
		}
	}
	if lg.Schedule != nil {
		if err := extracthtml.ValidateSelector(lg.expand(lg.Schedule.Table, 2000, "abc", "")); err != nil {
			return nil, fmt.Errorf("league %s: schedule table: %w", lg.Name, err)
		}
		if lg.Schedule.scheme, err = compile(lg.Name+" schedule", &lg.Schedule.Scheme); err != nil {
			return nil, err
		}
	}
	if lg.Boxscore != nil {
		if lg.Boxscore.scheme, err = compile(lg.Name+" boxscore", &lg.Boxscore.Scheme); err != nil {
			return nil, err
		}
		for name := range lg.Boxscore.SubIndex {
			if _, ok := lg.Boxscore.scheme.Lookup(name); !ok {
				return nil, fmt.Errorf("league %s: sub_index names unknown field %q", lg.Name, name)
			}
		}
	}
	for _, ps := range []struct {
		what string
		spec *PlayerSpec
	}{{"player", lg.Player}, {"roster", lg.Roster}} {
		if ps.spec == nil {
			continue
		}
		if err := ps.spec.compile(lg.Name + " " + ps.what); err != nil {
			return nil, err
		}
	}
	return &lg, nil
}

func (ps *PlayerSpec) compile(what string) error {
	if len(ps.Pages) == 0 {
		return fmt.Errorf("%s: no pages", what)
	}
	if ps.Scheme.Key() == extracthtml.AbbreviationField {
		return fmt.Errorf("%s: key_field is required", what)
	}
	for _, p := range ps.Pages {
		for _, tbl := range p.Tables {
			if err := extracthtml.ValidateSelector(tbl); err != nil {
				return fmt.Errorf("%s: table %q: %w", what, tbl, err)
			}
		}
	}
	if ps.Name != "" {
		if err := extracthtml.ValidateSelector(ps.Name); err != nil {
			return fmt.Errorf("%s: name: %w", what, err)
		}
	}
	var err error
	ps.scheme, err = compile(what, &ps.Scheme)
	return err
}

func compile(what string, sf *extracthtml.SchemeFile) (*extracthtml.Scheme, error) {
	s, err := extracthtml.CompileSchemeFile(sf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return s, nil
}

var (
	catalogOnce sync.Once
	catalogs    map[string]*League
	catalogErr  error
)

func loadCatalogs() {
	catalogs = make(map[string]*League)
	entries, err := catalogFS.ReadDir("schemes")
	if err != nil {
		catalogErr = err
		return
	}
	for _, e := range entries {
		b, err := catalogFS.ReadFile(path.Join("schemes", e.Name()))
		if err != nil {
			catalogErr = err
			return
		}
		lg, err := ParseCatalog(b)
		if err != nil {
			catalogErr = fmt.Errorf("%s: %w", e.Name(), err)
			return
		}
		catalogs[lg.Name] = lg
	}
}

// Get returns the built-in catalog for name.
func Get(name string) (*League, error) {
	catalogOnce.Do(loadCatalogs)
	if catalogErr != nil {
		return nil, catalogErr
	}
	lg, ok := catalogs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, season.ErrUnknownLeague{League: name}
	}
	return lg, nil
}

// Names lists the built-in leagues, sorted.
func Names() []string {
	catalogOnce.Do(loadCatalogs)
	out := make([]string, 0, len(catalogs))
	for k := range catalogs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// playerURL fills {site}, {id} and {initial}, the id's first letter.
func (l *League) playerURL(tmpl, id string) string {
	return strings.NewReplacer(
		"{site}", strings.TrimRight(l.Site, "/"),
		"{id}", id,
		"{initial}", id[:1],
	).Replace(tmpl)
}

// expand fills {site}, {year}, {abbr} and {uri} in a URL template.
func (l *League) expand(tmpl string, year int, abbr, uri string) string {
	return strings.NewReplacer(
		"{site}", strings.TrimRight(l.Site, "/"),
		"{year}", strconv.Itoa(year),
		"{abbr}", abbr,
		"{uri}", uri,
	).Replace(tmpl)
}
