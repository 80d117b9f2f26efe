package league

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"sportsref/internal/fetch"
	"sportsref/internal/season"
)

type fakeFetcher struct {
	pages   map[string]string
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) (string, error) {
	f.fetched = append(f.fetched, u)
	if b, ok := f.pages[u]; ok {
		return b, nil
	}
	return "", &fetch.StatusError{URL: u, Status: 404}
}

func (f *fakeFetcher) Exists(_ context.Context, u string) bool {
	_, ok := f.pages[u]
	return ok
}

func mustLeague(t *testing.T, name string) *League {
	t.Helper()
	lg, err := Get(name)
	if err != nil {
		t.Fatalf("Get(%q): %v", name, err)
	}
	return lg
}

func TestCatalogs(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff(season.Leagues(), Names()); diff != "" {
		t.Fatalf("catalog leagues (-season +catalog):\n%s", diff)
	}
	for _, name := range Names() {
		lg := mustLeague(t, name)
		if lg.TeamScheme() == nil || lg.TeamScheme().Len() == 0 {
			t.Fatalf("%s: empty team scheme", name)
		}
	}

	mlb := mustLeague(t, " MLB ")
	require.Equal(t, 1, mlb.Teams.Scheme.ElementIndex.For("home_runs_against"))
	require.Equal(t, "https://www.baseball-reference.com/teams/HOU/2017-schedule-scores.shtml",
		mlb.expand(mlb.Schedule.URL, 2017, "HOU", ""))

	nfl := mustLeague(t, "nfl")
	require.Equal(t, 2, nfl.Boxscore.SubIndex["away_rush_touchdowns"])

	if _, err := Get("cricket"); !errors.As(err, &season.ErrUnknownLeague{}) {
		t.Fatalf("unknown league err=%v", err)
	}
}

func TestParseCatalog_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad_json", `{`, "parse catalog json"},
		{"unknown_league", `{"league":"xfl","teams":{"pages":[{"url":"x"}],"scheme":{"fields":[{"name":"a","selector":"a"}]}}}`, "unknown league"},
		{"no_pages", `{"league":"mlb","teams":{"scheme":{"fields":[{"name":"a","selector":"a"}]}}}`, "no pages"},
		{"bad_table", `{"league":"mlb","teams":{"pages":[{"url":"x","tables":["div[["]}],"scheme":{"fields":[{"name":"a","selector":"a"}]}}}`, "table"},
		{"bad_sub_index", `{"league":"nfl","teams":{"pages":[{"url":"x"}],"scheme":{"fields":[{"name":"a","selector":"a"}]}},
			"boxscore":{"url":"x","sub_index":{"nope":1},"scheme":{"fields":[{"name":"a","selector":"a"}]}}}`, "sub_index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

const mlbStandings2017 = `<html><body>
<div id="all_expanded_standings_overall"><!--
<table id="expanded_standings_overall"><tbody>
<tr><th data-stat="ranker">1</th><td data-stat="team_ID"><a href="/teams/HOU/2017.shtml">Houston Astros</a></td><td data-stat="lg_ID">AL</td><td data-stat="G">162</td><td data-stat="W">101</td><td data-stat="L">61</td><td data-stat="record_home">48-33</td></tr>
<tr><th data-stat="ranker">2</th><td data-stat="team_ID"><a href="/teams/BOS/2017.shtml">Boston Red Sox</a></td><td data-stat="lg_ID">AL</td><td data-stat="G">162</td><td data-stat="W">93</td><td data-stat="L">69</td><td data-stat="record_home">46-35</td></tr>
<tr class="league_average_table"><th></th><td data-stat="team_ID"><a href="/leagues/MLB/2017.shtml">Avg</a></td><td data-stat="W">81</td></tr>
</tbody></table>
--></div>
</body></html>`

const mlbTeamStats2017 = `<html><body>
<div id="all_teams_standard_batting"><!--
<table><tbody>
<tr><th data-stat="team_name"><a href="/teams/BOS/2017.shtml">Boston Red Sox</a></th><td data-stat="R">785</td><td data-stat="HR">168</td><td data-stat="batting_avg">.258</td></tr>
<tr><th data-stat="team_name"><a href="/teams/HOU/2017.shtml">Houston Astros</a></th><td data-stat="R">896</td><td data-stat="HR">238</td><td data-stat="batting_avg">.282</td></tr>
<tr class="league_average_table"><th><a href="/leagues/MLB/2017.shtml">League Average</a></th><td data-stat="R">753</td><td data-stat="HR">187</td></tr>
</tbody></table>
--></div>
<div id="all_teams_standard_pitching"><!--
<table><tbody>
<tr><th data-stat="team_name"><a href="/teams/HOU/2017.shtml">Houston Astros</a></th><td data-stat="R">700</td><td data-stat="HR">192</td></tr>
<tr><th data-stat="team_name"><a href="/teams/BOS/2017.shtml">Boston Red Sox</a></th><td data-stat="R">668</td><td data-stat="HR">195</td></tr>
</tbody></table>
--></div>
</body></html>`

func mlbPages(year string) map[string]string {
	return map[string]string{
		"https://www.baseball-reference.com/leagues/MLB/" + year + "-standings.shtml": mlbStandings2017,
		"https://www.baseball-reference.com/leagues/MLB/" + year + ".shtml":           mlbTeamStats2017,
	}
}

func TestTeams_MLB(t *testing.T) {
	t.Parallel()

	c := &Client{Fetcher: &fakeFetcher{pages: mlbPages("2017")}}
	teams, err := c.Teams(context.Background(), mustLeague(t, "mlb"), 2017)
	require.NoError(t, err)
	require.Len(t, teams, 2)

	hou, bos := teams[0], teams[1]
	require.Equal(t, "HOU", hou.Abbreviation)
	require.Equal(t, "Houston Astros", hou.Name)
	require.Equal(t, 1, hou.Rank)
	require.Equal(t, 2017, hou.Year)
	require.Equal(t, "BOS", bos.Abbreviation)
	require.Equal(t, 2, bos.Rank)

	require.Equal(t, 101, *hou.Wins())
	require.Equal(t, 61, *hou.Losses())
	require.Equal(t, 238, *hou.Int("home_runs"))
	require.Equal(t, 192, *hou.Int("home_runs_against"))
	require.Equal(t, 700, *hou.Int("total_runs"), "second R is the pitching line")
	require.Equal(t, 168, *bos.Int("home_runs"))
	require.Equal(t, 195, *bos.Int("home_runs_against"))
	require.InDelta(t, 0.282, *hou.Float("batting_average"), 1e-9)
	require.Nil(t, hou.Int("saves"))
	require.Equal(t, "48-33", hou.String("home_record"))

	m := hou.Map()
	require.Equal(t, "HOU", m["abbreviation"])
	require.Equal(t, 1, m["rank"])
	require.Nil(t, m["saves"])
}

func TestTeams_InfersYearWithFallback(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: mlbPages("2017")}
	c := &Client{
		Fetcher: f,
		Now:     func() time.Time { return time.Date(2018, time.March, 15, 0, 0, 0, 0, time.UTC) },
	}
	teams, err := c.Teams(context.Background(), mustLeague(t, "mlb"), 0)
	require.NoError(t, err)
	require.Equal(t, 2017, teams[0].Year)
}

func TestTeams_NoDataIsLogged(t *testing.T) {
	t.Parallel()

	empty := "<html><body><p>Season not started</p></body></html>"
	var logs bytes.Buffer
	c := &Client{
		Fetcher: &fakeFetcher{pages: map[string]string{
			"https://www.baseball-reference.com/leagues/MLB/2031-standings.shtml": empty,
			"https://www.baseball-reference.com/leagues/MLB/2031.shtml":           empty,
		}},
		Log: slog.New(slog.NewTextHandler(&logs, nil)),
	}
	_, err := c.Teams(context.Background(), mustLeague(t, "mlb"), 2031)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err=%v, want ErrNoData", err)
	}
	if !strings.Contains(logs.String(), "no data found") {
		t.Fatalf("log=%q, want a no data message", logs.String())
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	teams := []Team{
		{Abbreviation: "HOU", Name: "Houston Astros"},
		{Abbreviation: "46ef01c0", Name: "Atlético Madrid"},
		{Abbreviation: "NYCFC", Name: "New York City FC"},
	}
	tests := []struct {
		query  string
		want   string
		wantOK bool
	}{
		{"hou", "HOU", true},
		{"atletico madrid", "46ef01c0", true},
		{"Houston Astro", "HOU", true},
		{"New York City", "NYCFC", true},
		{"zzzz", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		got, ok := Lookup(teams, tt.query)
		if ok != tt.wantOK || got.Abbreviation != tt.want {
			t.Fatalf("Lookup(%q)=(%q,%v), want (%q,%v)", tt.query, got.Abbreviation, ok, tt.want, tt.wantOK)
		}
	}
}
