package league

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sportsref/internal/extracthtml"
	"sportsref/internal/metrics"
)

var rePlayerID = regexp.MustCompile(`^[a-z][a-z0-9.'-]*$`)

// PlayerSeason is one season line of a player, composed from every table
// that lists the season. Traded players keep the first row of each table.
type PlayerSeason struct {
	Season string
	Record extracthtml.Record
}

// Int returns field name as an int, or nil.
func (s PlayerSeason) Int(name string) *int { return s.Record.Int(name) }

// Float returns field name as a float64, or nil.
func (s PlayerSeason) Float(name string) *float64 { return s.Record.Float(name) }

// Player is a player's career, one entry per season in page order.
type Player struct {
	League  string
	ID      string
	Name    string
	Seasons []PlayerSeason
}

// Season returns the line for season as printed, e.g. "2017" or "2016-17".
func (p *Player) Season(season string) (PlayerSeason, bool) {
	for _, s := range p.Seasons {
		if s.Season == season {
			return s, true
		}
	}
	return PlayerSeason{}, false
}

// Rows flattens every season with the player's identity columns.
func (p *Player) Rows() []map[string]any {
	out := make([]map[string]any, len(p.Seasons))
	for i, s := range p.Seasons {
		row := s.Record.Map()
		row["league"] = p.League
		row["player_id"] = p.ID
		row["name"] = p.Name
		row["season"] = s.Season
		out[i] = row
	}
	return out
}

// Player fetches a player's career pages. id is the site's player id, such
// as "troutmi01".
func (c *Client) Player(ctx context.Context, lg *League, id string) (*Player, error) {
	start := time.Now()
	p, err := c.player(ctx, lg, id)
	metrics.RecordStep("player", stepStatus(err), time.Since(start))
	if err == nil {
		metrics.RecordRecords("player_season", len(p.Seasons))
	}
	return p, err
}

func (c *Client) player(ctx context.Context, lg *League, id string) (*Player, error) {
	spec := lg.Player
	if spec == nil {
		return nil, fmt.Errorf("league %s has no player pages", lg.Name)
	}
	id = strings.ToLower(strings.TrimSpace(id))
	if !rePlayerID.MatchString(id) {
		return nil, fmt.Errorf("invalid player id %q", id)
	}

	var name string
	visit := func(doc *goquery.Document) {
		if name != "" || spec.Name == "" {
			return
		}
		if sel, err := extracthtml.Select(doc.Selection, spec.Name); err == nil {
			name = strings.TrimSpace(sel.First().Text())
		}
	}
	acc, err := c.composePages(ctx, lg, spec.Pages, func(u string) string { return lg.playerURL(u, id) }, &spec.Scheme, spec.scheme, visit)
	if err != nil {
		return nil, err
	}
	if acc.Len() == 0 {
		c.logger().Info("no data found", "league", lg.Name, "player", id)
		return nil, ErrNoData
	}

	p := &Player{League: lg.Name, ID: id, Name: name, Seasons: make([]PlayerSeason, 0, acc.Len())}
	for _, key := range acc.Keys() {
		p.Seasons = append(p.Seasons, PlayerSeason{
			Season: key,
			Record: extracthtml.ParseRecord(spec.scheme, acc.Fragment(key), spec.Scheme.ElementIndex),
		})
	}
	return p, nil
}

// RosterPlayer is one player's line on a team's season pages.
type RosterPlayer struct {
	ID     string
	Name   string
	Record extracthtml.Record
}

// Roster is a team's players for one season, in first-appearance order.
type Roster struct {
	League       string
	Abbreviation string
	Year         int
	Players      []RosterPlayer
}

// Rows flattens every player with the team's identity columns.
func (r *Roster) Rows() []map[string]any {
	out := make([]map[string]any, len(r.Players))
	for i, p := range r.Players {
		row := p.Record.Map()
		row["league"] = r.League
		row["team"] = r.Abbreviation
		row["year"] = r.Year
		row["player_id"] = p.ID
		row["name"] = p.Name
		out[i] = row
	}
	return out
}

// Roster fetches a team's season pages and composes every table row under
// its player id. A zero year is inferred from the clock.
func (c *Client) Roster(ctx context.Context, lg *League, abbr string, year int) (*Roster, error) {
	start := time.Now()
	r, err := c.roster(ctx, lg, abbr, year)
	metrics.RecordStep("roster", stepStatus(err), time.Since(start))
	if err == nil {
		metrics.RecordRecords("roster_player", len(r.Players))
	}
	return r, err
}

func (c *Client) roster(ctx context.Context, lg *League, abbr string, year int) (*Roster, error) {
	spec := lg.Roster
	if spec == nil {
		return nil, fmt.Errorf("league %s has no roster pages", lg.Name)
	}
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	year, err := c.resolveYear(ctx, lg, year, func(y int) string { return lg.expand(spec.Pages[0].URL, y, abbr, "") })
	if err != nil {
		return nil, err
	}

	acc, err := c.composePages(ctx, lg, spec.Pages, func(u string) string { return lg.expand(u, year, abbr, "") }, &spec.Scheme, spec.scheme, nil)
	if err != nil {
		return nil, err
	}
	if acc.Len() == 0 {
		c.logger().Info("no data found", "league", lg.Name, "team", abbr, "year", year)
		return nil, ErrNoData
	}

	r := &Roster{League: lg.Name, Abbreviation: abbr, Year: year, Players: make([]RosterPlayer, 0, acc.Len())}
	for _, key := range acc.Keys() {
		rec := extracthtml.ParseRecord(spec.scheme, acc.Fragment(key), spec.Scheme.ElementIndex)
		r.Players = append(r.Players, RosterPlayer{ID: key, Name: rec.String("name"), Record: rec})
	}
	return r, nil
}
