package league

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const houSchedule2017 = `<html><body>
<div id="all_team_schedule">
<table id="team_schedule"><tbody>
<tr><th data-stat="team_game">1</th><td data-stat="date_game"><a href="/boxes/?date=2017-04-03">Monday, Apr 3</a></td><td data-stat="boxscore"><a href="/boxes/HOU/HOU201704030.shtml">boxscore</a></td><td data-stat="homeORvis"></td><td data-stat="opp_ID"><a href="/teams/SEA/2017.shtml">SEA</a></td><td data-stat="win_loss_result">W</td><td data-stat="R">3</td><td data-stat="RA">0</td><td data-stat="win_loss_record">1-0</td><td data-stat="attendance">43,021</td></tr>
<tr class="thead"><th>Gm#</th><td>Date</td></tr>
<tr><th data-stat="team_game">80</th><td data-stat="date_game">Saturday, Jul 1 (1)</td><td data-stat="boxscore"><a href="/boxes/NYA/NYA201707011.shtml">boxscore</a></td><td data-stat="homeORvis">@</td><td data-stat="opp_ID">NYY</td><td data-stat="win_loss_result">L</td><td data-stat="R">2</td><td data-stat="RA">6</td><td data-stat="win_loss_record">55-25</td></tr>
<tr><th data-stat="team_game">81</th><td data-stat="date_game">Saturday, Jul 1 (2)</td><td data-stat="boxscore"><a href="/boxes/NYA/NYA201707012.shtml">boxscore</a></td><td data-stat="homeORvis">@</td><td data-stat="opp_ID">NYY</td><td data-stat="win_loss_result">W-wo</td><td data-stat="R">7</td><td data-stat="RA">1</td><td data-stat="win_loss_record">56-25</td></tr>
</tbody></table>
</div>
</body></html>`

func TestSchedule_MLB(t *testing.T) {
	t.Parallel()

	c := &Client{Fetcher: &fakeFetcher{pages: map[string]string{
		"https://www.baseball-reference.com/teams/HOU/2017-schedule-scores.shtml": houSchedule2017,
	}}}
	sched, err := c.Schedule(context.Background(), mustLeague(t, "mlb"), "hou", 2017)
	require.NoError(t, err)
	require.Equal(t, "HOU", sched.Abbreviation)
	require.Len(t, sched.Games, 3)

	opener := sched.Games[0]
	require.Equal(t, 1, *opener.Record.Int("game"))
	require.Equal(t, 1, opener.GameNumberForDay())
	require.Equal(t, Home, opener.Location())
	require.Equal(t, Win, opener.Result())
	require.Equal(t, "SEA", opener.OpponentAbbr())
	require.False(t, opener.NonDI())
	require.Equal(t, "HOU/HOU201704030", opener.BoxscoreURI())
	require.Equal(t, 43021, *opener.Record.Int("attendance"))
	when, ok := opener.Time()
	require.True(t, ok)
	require.Equal(t, time.Date(2017, time.April, 3, 0, 0, 0, 0, time.UTC), when)

	second, err := sched.Game(time.Date(2017, time.July, 1, 19, 5, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	require.Equal(t, 81, *second.Record.Int("game"))
	require.Equal(t, 2, second.GameNumberForDay())
	require.Equal(t, Away, second.Location())
	require.Equal(t, Win, second.Result())
	require.Equal(t, "NYA/NYA201707012", second.BoxscoreURI())

	first, err := sched.Game(time.Date(2017, time.July, 1, 0, 0, 0, 0, time.UTC), 0)
	require.NoError(t, err)
	require.Equal(t, Loss, first.Result())

	if _, err := sched.Game(time.Date(2017, time.July, 2, 0, 0, 0, 0, time.UTC), 1); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("err=%v, want ErrGameNotFound", err)
	}

	m := opener.Map()
	require.Equal(t, "2017-04-03", m["datetime"])
	require.Equal(t, "home", m["location"])
}

const purdueSchedule2018 = `<html><body>
<table id="schedule"><tbody>
<tr><th data-stat="g">1</th><td data-stat="date_game"><a href="/cbb/boxscores/2017-11-10-19-purdue.html">Fri, Nov 10, 2017</a></td><td data-stat="game_location"></td><td data-stat="opp_name">Chaminade</td><td data-stat="game_result">W</td><td data-stat="pts">86</td><td data-stat="opp_pts">59</td></tr>
<tr><th data-stat="g">2</th><td data-stat="date_game"><a href="/cbb/boxscores/2017-11-22-17-purdue.html">Wed, Nov 22, 2017</a></td><td data-stat="game_location">N</td><td data-stat="opp_name"><a href="/cbb/schools/tennessee/2018.html">Tennessee</a></td><td data-stat="game_result">W</td><td data-stat="pts">78</td><td data-stat="opp_pts">75</td></tr>
</tbody></table>
</body></html>`

func TestSchedule_NCAABNonDivisionOne(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{pages: map[string]string{
		"https://www.sports-reference.com/cbb/schools/purdue/2018-schedule.html": purdueSchedule2018,
	}}
	c := &Client{Fetcher: f}
	sched, err := c.Schedule(context.Background(), mustLeague(t, "ncaab"), "PURDUE", 2018)
	require.NoError(t, err)
	require.Len(t, sched.Games, 2)

	g0, g1 := sched.Games[0], sched.Games[1]
	require.True(t, g0.NonDI())
	require.Equal(t, "Chaminade", g0.OpponentAbbr())
	require.Equal(t, Home, g0.Location())
	require.Equal(t, "2017-11-10-19-purdue", g0.BoxscoreURI())

	require.False(t, g1.NonDI())
	require.Equal(t, "tennessee", g1.OpponentAbbr())
	require.Equal(t, Neutral, g1.Location())
	when, ok := g1.Time()
	require.True(t, ok)
	require.Equal(t, time.November, when.Month())
	require.Equal(t, 22, when.Day())
}

func TestSchedule_MissingTableIsNoData(t *testing.T) {
	t.Parallel()

	c := &Client{Fetcher: &fakeFetcher{pages: map[string]string{
		"https://www.hockey-reference.com/teams/DET/2018_games.html": "<html><body></body></html>",
	}}}
	_, err := c.Schedule(context.Background(), mustLeague(t, "nhl"), "det", 2018)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err=%v, want ErrNoData", err)
	}

	if _, err := c.Schedule(context.Background(), mustLeague(t, "mls"), "x", 2018); err == nil {
		t.Fatalf("mls has no schedule pages; want error")
	}
}

func TestBoxscoreURI(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/boxes/HOU/HOU201704030.shtml":              "HOU/HOU201704030",
		"/boxscores/201802040nwe.htm":                "201802040nwe",
		"/cbb/boxscores/2017-11-10-19-purdue.html":   "2017-11-10-19-purdue",
		"https://www.hockey-reference.com/boxscores/201710040WPG.html": "201710040WPG",
		"": "",
	}
	for in, want := range tests {
		if got := BoxscoreURI(in); got != want {
			t.Fatalf("BoxscoreURI(%q)=%q, want %q", in, got, want)
		}
	}
}
