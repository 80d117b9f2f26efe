package league

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sportsref/internal/coerce"
	"sportsref/internal/extracthtml"
	"sportsref/internal/fetch"
	"sportsref/internal/metrics"
	"sportsref/internal/season"
)

// ErrNoData means the season pages exist but none of the expected tables
// held any rows.
var ErrNoData = errors.New("no data found")

// Client fetches and parses league pages.
type Client struct {
	Fetcher fetch.Fetcher
	Log     *slog.Logger
	// Now is the clock used to infer the season; nil means time.Now.
	Now func() time.Time
}

func (c *Client) logger() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// resolveYear returns year, or infers it when year is 0, checking urlFor(y)
// exists before falling back to the previous season.
func (c *Client) resolveYear(ctx context.Context, lg *League, year int, urlFor func(int) string) (int, error) {
	if year != 0 {
		return year, nil
	}
	return season.Resolve(ctx, lg.Name, c.now(), func(ctx context.Context, y int) bool {
		return c.Fetcher.Exists(ctx, urlFor(y))
	})
}

// Team is one team's season line, composed from every table that lists it.
type Team struct {
	League       string
	Abbreviation string
	Name         string
	// Rank is the team's row position in the first table it appears in.
	Rank   int
	Year   int
	Record extracthtml.Record
}

// Int returns field name as an int, or nil.
func (t Team) Int(name string) *int { return t.Record.Int(name) }

// Float returns field name as a float64, or nil.
func (t Team) Float(name string) *float64 { return t.Record.Float(name) }

// String returns the raw value of name.
func (t Team) String(name string) string { return t.Record.String(name) }

// Wins reads the "wins" field, falling back to the first part of a "W-L"
// "record" field.
func (t Team) Wins() *int {
	if v := t.Record.Int("wins"); v != nil {
		return v
	}
	w, _ := coerce.Record(t.Record.Get("record"))
	return w
}

// Losses is Wins for the losing side.
func (t Team) Losses() *int {
	if v := t.Record.Int("losses"); v != nil {
		return v
	}
	_, l := coerce.Record(t.Record.Get("record"))
	return l
}

// Map flattens the team into named values: the identity columns followed by
// every scheme field.
func (t Team) Map() map[string]any {
	out := t.Record.Map()
	out["league"] = t.League
	out["abbreviation"] = t.Abbreviation
	out["name"] = t.Name
	out["rank"] = t.Rank
	out["year"] = t.Year
	return out
}

// Teams runs the bulk pass for a season. A zero year is inferred from the
// clock. Rows from every declared page and table are composed per team
// abbreviation, in declaration order, before any field is read.
func (c *Client) Teams(ctx context.Context, lg *League, year int) ([]Team, error) {
	start := time.Now()
	teams, err := c.teams(ctx, lg, year)
	metrics.RecordStep("teams", stepStatus(err), time.Since(start))
	if err == nil {
		metrics.RecordRecords("team", len(teams))
	}
	return teams, err
}

func (c *Client) teams(ctx context.Context, lg *League, year int) ([]Team, error) {
	existsURL := lg.Teams.ExistsURL
	if existsURL == "" {
		existsURL = lg.Teams.Pages[0].URL
	}
	year, err := c.resolveYear(ctx, lg, year, func(y int) string { return lg.expand(existsURL, y, "", "") })
	if err != nil {
		return nil, err
	}

	sf, s := &lg.Teams.Scheme, lg.Teams.scheme
	acc, err := c.composePages(ctx, lg, lg.Teams.Pages, func(u string) string { return lg.expand(u, year, "", "") }, sf, s, nil)
	if err != nil {
		return nil, err
	}

	if acc.Len() == 0 {
		c.logger().Info("no data found", "league", lg.Name, "year", year)
		return nil, ErrNoData
	}

	out := make([]Team, 0, acc.Len())
	for _, key := range acc.Keys() {
		rec := extracthtml.ParseRecord(s, acc.Fragment(key), sf.ElementIndex)
		out = append(out, Team{
			League:       lg.Name,
			Abbreviation: key,
			Name:         rec.String("name"),
			Rank:         acc.Rank(key),
			Year:         year,
			Record:       rec,
		})
	}
	return out, nil
}

// composePages fetches every page and adds the rows of its tables to one
// accumulator under sf.Key(), in declaration order. Missing pages are
// skipped. visit, when set, sees each parsed page before its tables.
func (c *Client) composePages(ctx context.Context, lg *League, pages []Page, urlFor func(string) string,
	sf *extracthtml.SchemeFile, s *extracthtml.Scheme, visit func(*goquery.Document)) (*extracthtml.Accumulator, error) {
	acc := extracthtml.NewAccumulator()
	for _, p := range pages {
		u := urlFor(p.URL)
		body, err := c.Fetcher.Fetch(ctx, u)
		if errors.Is(err, fetch.ErrNotFound) {
			c.logger().Debug("page missing", "league", lg.Name, "url", u)
			continue
		}
		if err != nil {
			return nil, err
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", u, err)
		}
		metrics.RecordPage(lg.Name)
		if visit != nil {
			visit(doc)
		}
		for _, tbl := range p.Tables {
			if _, err := extracthtml.ComposeTable(doc.Selection, tbl, sf, s, acc); err != nil {
				return nil, fmt.Errorf("%s: %w", u, err)
			}
		}
	}
	return acc, nil
}

func stepStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusOK
	case errors.Is(err, ErrNoData):
		return metrics.StatusNoData
	default:
		return metrics.StatusError
	}
}
