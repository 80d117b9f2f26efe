package league

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sportsref/internal/extracthtml"
	"sportsref/internal/fetch"
	"sportsref/internal/metrics"
)

// Location is where a game was played from the team's point of view.
type Location string

const (
	Home    Location = "home"
	Away    Location = "away"
	Neutral Location = "neutral"
)

// Result is a game outcome from the team's point of view. Unplayed games
// have an empty Result.
type Result string

const (
	Win  Result = "win"
	Loss Result = "loss"
	Tie  Result = "tie"
)

// ErrGameNotFound is returned by Schedule.Game when no game matches.
var ErrGameNotFound = errors.New("no games found for requested date")

var (
	reGameNumber   = regexp.MustCompile(`\((\d+)\)`)
	reDateGameNo   = regexp.MustCompile(`\s*\(\d+\)`)
	reBoxscorePath = regexp.MustCompile(`.*/box(es|scores)/`)
	reBoxscoreExt  = regexp.MustCompile(`\.s?html?.*`)
	reSchoolPath   = regexp.MustCompile(`.*/schools/`)
)

// Game is one row of a team schedule.
type Game struct {
	Record extracthtml.Record
	Year   int

	layout     string
	appendYear bool
}

// Date returns the date column as printed, including any "(2)" suffix.
func (g Game) Date() string { return g.Record.String("date") }

// GameNumberForDay is 1 unless the date carries a double-header suffix
// such as "(2)".
func (g Game) GameNumberForDay() int {
	m := reGameNumber.FindStringSubmatch(g.Date())
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 1
	}
	return n
}

// Time parses the date column with the league's layout.
func (g Game) Time() (time.Time, bool) {
	raw := strings.TrimSpace(reDateGameNo.ReplaceAllString(g.Date(), ""))
	if raw == "" || g.layout == "" {
		return time.Time{}, false
	}
	if g.appendYear {
		raw += " " + strconv.Itoa(g.Year)
	}
	t, err := time.Parse(g.layout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Location maps the location marker: "@" is away, "N" neutral, else home.
func (g Game) Location() Location {
	switch strings.TrimSpace(g.Record.String("location")) {
	case "@":
		return Away
	case "N":
		return Neutral
	default:
		return Home
	}
}

// Result maps the result column by its first letter.
func (g Game) Result() Result {
	r := strings.ToUpper(strings.TrimSpace(g.Record.String("result")))
	switch {
	case strings.HasPrefix(r, "W"):
		return Win
	case strings.HasPrefix(r, "L"):
		return Loss
	case strings.HasPrefix(r, "T"):
		return Tie
	default:
		return ""
	}
}

// OpponentAbbr returns the opponent's code. Schools outside Division I have
// no school page; their display name stands in and NonDI reports true.
func (g Game) OpponentAbbr() string {
	if href, ok := g.Record.Get("opponent_href"); ok && strings.Contains(href, "/schools/") {
		abbr := reSchoolPath.ReplaceAllString(href, "")
		if i := strings.Index(abbr, "/"); i >= 0 {
			abbr = abbr[:i]
		}
		return abbr
	}
	if abbr, ok := g.Record.Get("opponent_abbr"); ok {
		return abbr
	}
	return g.Record.String("opponent_name")
}

// NonDI reports an opponent without a school page.
func (g Game) NonDI() bool {
	if _, ok := g.Record.Get("opponent_abbr"); ok {
		return false
	}
	_, hasName := g.Record.Get("opponent_name")
	return hasName && !strings.Contains(g.Record.String("opponent_href"), "/schools/")
}

// BoxscoreURI returns the game's boxscore id, the path between the boxscore
// directory and the extension.
func (g Game) BoxscoreURI() string {
	return BoxscoreURI(g.Record.String("boxscore"))
}

// BoxscoreURI reduces a boxscore link to its id:
//
//	/boxes/HOU/HOU201704030.shtml -> HOU/HOU201704030
//	/boxscores/201802040nwe.htm   -> 201802040nwe
func BoxscoreURI(href string) string {
	if href == "" {
		return ""
	}
	uri := reBoxscorePath.ReplaceAllString(href, "")
	return reBoxscoreExt.ReplaceAllString(uri, "")
}

// Map flattens the game with its derived columns.
func (g Game) Map() map[string]any {
	out := g.Record.Map()
	out["game_number_for_day"] = g.GameNumberForDay()
	out["location"] = string(g.Location())
	out["result"] = string(g.Result())
	out["opponent_abbr"] = g.OpponentAbbr()
	out["non_di"] = g.NonDI()
	out["boxscore_uri"] = g.BoxscoreURI()
	if t, ok := g.Time(); ok {
		out["datetime"] = t.Format("2006-01-02")
	} else {
		out["datetime"] = nil
	}
	return out
}

// Schedule is one team's season schedule in page order.
type Schedule struct {
	League       string
	Abbreviation string
	Year         int
	Games        []Game
}

// Game returns the n-th game (1-based) played on date's calendar day.
func (s *Schedule) Game(date time.Time, n int) (*Game, error) {
	if n <= 0 {
		n = 1
	}
	y, m, d := date.Date()
	for i := range s.Games {
		g := &s.Games[i]
		t, ok := g.Time()
		if !ok {
			continue
		}
		gy, gm, gd := t.Date()
		if gy == y && gm == m && gd == d && g.GameNumberForDay() == n {
			return g, nil
		}
	}
	return nil, ErrGameNotFound
}

// Schedule fetches a team's schedule. A zero year is inferred from the clock.
func (c *Client) Schedule(ctx context.Context, lg *League, abbr string, year int) (*Schedule, error) {
	start := time.Now()
	sched, err := c.schedule(ctx, lg, abbr, year)
	metrics.RecordStep("schedule", stepStatus(err), time.Since(start))
	if err == nil {
		metrics.RecordRecords("game", len(sched.Games))
	}
	return sched, err
}

func (c *Client) schedule(ctx context.Context, lg *League, abbr string, year int) (*Schedule, error) {
	spec := lg.Schedule
	if spec == nil {
		return nil, fmt.Errorf("league %s has no schedule pages", lg.Name)
	}
	if spec.LowerAbbr {
		abbr = strings.ToLower(abbr)
	} else {
		abbr = strings.ToUpper(abbr)
	}
	year, err := c.resolveYear(ctx, lg, year, func(y int) string { return lg.expand(spec.URL, y, abbr, "") })
	if err != nil {
		return nil, err
	}

	u := lg.expand(spec.URL, year, abbr, "")
	body, err := c.Fetcher.Fetch(ctx, u)
	if errors.Is(err, fetch.ErrNotFound) {
		c.logger().Info("no data found", "league", lg.Name, "team", abbr, "year", year, "url", u)
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}
	metrics.RecordPage(lg.Name)

	table := lg.expand(spec.Table, year, abbr, "")
	rows, _, err := extracthtml.StatsTable(doc.Selection, table, spec.Scheme.Rows())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u, err)
	}

	sched := &Schedule{League: lg.Name, Abbreviation: abbr, Year: year}
	for _, row := range rows {
		if spec.Scheme.Skip(row) {
			continue
		}
		rec := extracthtml.ParseRecord(spec.scheme, extracthtml.NewFragment(row), spec.Scheme.ElementIndex)
		if rec.Len() == 0 {
			continue
		}
		sched.Games = append(sched.Games, Game{
			Record:     rec,
			Year:       year,
			layout:     spec.DateLayout,
			appendYear: spec.DateAppendYear,
		})
	}
	if len(sched.Games) == 0 {
		c.logger().Info("no data found", "league", lg.Name, "team", abbr, "year", year)
		return nil, ErrNoData
	}
	return sched, nil
}
