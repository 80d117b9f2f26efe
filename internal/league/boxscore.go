package league

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sportsref/internal/extracthtml"
	"sportsref/internal/fetch"
	"sportsref/internal/metrics"
)

// Boxscore is one game's summary. Away and home values come from the same
// selectors at element index 0 and 1.
type Boxscore struct {
	League   string
	URI      string
	Record   extracthtml.Record
	subIndex map[string]int
}

// Int returns field name as an int. Fields with a sub-index read that part
// of a composite cell ("29-126-1"); a malformed cell gives nil.
func (b *Boxscore) Int(name string) *int {
	if i, ok := b.subIndex[name]; ok {
		return b.Record.PartInt(name, i)
	}
	return b.Record.Int(name)
}

// String returns the raw value of name.
func (b *Boxscore) String(name string) string { return b.Record.String(name) }

// Winner compares "away_points" and "home_points". It reports ok=false when
// either is missing or the game is tied.
func (b *Boxscore) Winner() (Location, bool) {
	away, home := b.Int("away_points"), b.Int("home_points")
	if away == nil || home == nil || *away == *home {
		return "", false
	}
	if *away > *home {
		return Away, true
	}
	return Home, true
}

// Map flattens the boxscore with sub-indexed fields already split.
func (b *Boxscore) Map() map[string]any {
	out := b.Record.Map()
	for _, f := range b.Record.Fields() {
		if _, ok := b.subIndex[f.Name]; !ok {
			continue
		}
		if v := b.Int(f.Name); v != nil {
			out[f.ColumnName()] = *v
		} else {
			out[f.ColumnName()] = nil
		}
	}
	out["uri"] = b.URI
	if w, ok := b.Winner(); ok {
		out["winner"] = string(w)
	} else {
		out["winner"] = nil
	}
	return out
}

// Boxscore fetches the game page for uri, as returned by Game.BoxscoreURI.
func (c *Client) Boxscore(ctx context.Context, lg *League, uri string) (*Boxscore, error) {
	start := time.Now()
	b, err := c.boxscore(ctx, lg, uri)
	metrics.RecordStep("boxscore", stepStatus(err), time.Since(start))
	if err == nil {
		metrics.RecordRecords("boxscore", 1)
	}
	return b, err
}

func (c *Client) boxscore(ctx context.Context, lg *League, uri string) (*Boxscore, error) {
	spec := lg.Boxscore
	if spec == nil {
		return nil, fmt.Errorf("league %s has no boxscore pages", lg.Name)
	}
	u := lg.expand(spec.URL, 0, "", uri)
	body, err := c.Fetcher.Fetch(ctx, u)
	if errors.Is(err, fetch.ErrNotFound) {
		c.logger().Info("no data found", "league", lg.Name, "boxscore", uri, "url", u)
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordPage(lg.Name)

	rec, err := extracthtml.ExtractOneHTML(extracthtml.Unwrap(body), spec.scheme, spec.Scheme.ElementIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u, err)
	}
	if rec.Len() == 0 {
		c.logger().Info("no data found", "league", lg.Name, "boxscore", uri)
		return nil, ErrNoData
	}
	return &Boxscore{League: lg.Name, URI: uri, Record: rec, subIndex: spec.SubIndex}, nil
}
