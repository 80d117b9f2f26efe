package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sportsref/internal/league"
)

func newTeamsCmd(a *app) *cobra.Command {
	var (
		year    int
		store   bool
		columns []string
	)
	cmd := &cobra.Command{
		Use:   "teams <league>",
		Short: "Print every team's season line.",
		Args:  args(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			lg, err := getLeague(argv[0])
			if err != nil {
				return err
			}
			teams, err := a.client().Teams(cmd.Context(), lg, year)
			if err != nil {
				return err
			}
			rows := make([]map[string]any, len(teams))
			for i, t := range teams {
				rows[i] = t.Map()
			}
			if store {
				if err := a.store(cmd.Context(), lg.Name+"_teams", rows, []string{"league", "abbreviation", "year"}); err != nil {
					return err
				}
			}
			return a.print(cmd, columnsOr(columns, "rank", "abbreviation", "name", "year"), rows)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "season year (default: inferred from today)")
	cmd.Flags().BoolVar(&store, "store", false, "also write the rows to the configured storage")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "table columns to print")
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	var (
		year    int
		date    string
		game    int
		store   bool
		columns []string
	)
	cmd := &cobra.Command{
		Use:   "schedule <league> <team>",
		Short: "Print a team's season schedule, or one game with --date.",
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			lg, err := getLeague(argv[0])
			if err != nil {
				return err
			}
			var day time.Time
			if date != "" {
				if day, err = time.Parse(time.DateOnly, date); err != nil {
					return usagef("--date: %w", err)
				}
			}
			sched, err := a.client().Schedule(cmd.Context(), lg, argv[1], year)
			if err != nil {
				return err
			}

			if date != "" {
				g, err := sched.Game(day, game)
				if err != nil {
					return fmt.Errorf("%s %s: %w", sched.Abbreviation, date, err)
				}
				return a.printRecord(cmd, scheduleRow(sched, *g))
			}

			rows := make([]map[string]any, len(sched.Games))
			for i, g := range sched.Games {
				rows[i] = scheduleRow(sched, g)
			}
			if store {
				if err := a.store(cmd.Context(), lg.Name+"_schedules", rows, []string{"row_hash"}); err != nil {
					return err
				}
			}
			return a.print(cmd, columnsOr(columns, "datetime", "location", "opponent_abbr", "result", "boxscore_uri"), rows)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "season year (default: inferred from today)")
	cmd.Flags().StringVar(&date, "date", "", "print only the game on this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&game, "game", 1, "game number on --date for double headers")
	cmd.Flags().BoolVar(&store, "store", false, "also write the rows to the configured storage")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "table columns to print")
	return cmd
}

func scheduleRow(s *league.Schedule, g league.Game) map[string]any {
	row := g.Map()
	row["league"] = s.League
	row["team"] = s.Abbreviation
	row["year"] = s.Year
	return row
}

func newBoxscoreCmd(a *app) *cobra.Command {
	var store bool
	cmd := &cobra.Command{
		Use:   "boxscore <league> <uri>",
		Short: "Print one game's summary. The uri is a schedule's boxscore_uri.",
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			lg, err := getLeague(argv[0])
			if err != nil {
				return err
			}
			b, err := a.client().Boxscore(cmd.Context(), lg, league.BoxscoreURI(argv[1]))
			if err != nil {
				return err
			}
			row := b.Map()
			row["league"] = b.League
			if store {
				if err := a.store(cmd.Context(), lg.Name+"_boxscores", []map[string]any{row}, []string{"uri"}); err != nil {
					return err
				}
			}
			return a.printRecord(cmd, row)
		},
	}
	cmd.Flags().BoolVar(&store, "store", false, "also write the row to the configured storage")
	return cmd
}

func newPlayerCmd(a *app) *cobra.Command {
	var (
		store   bool
		columns []string
	)
	cmd := &cobra.Command{
		Use:   "player <league> <id>",
		Short: "Print a player's season lines. The id is the site's, e.g. troutmi01.",
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			lg, err := getLeague(argv[0])
			if err != nil {
				return err
			}
			p, err := a.client().Player(cmd.Context(), lg, argv[1])
			if err != nil {
				return err
			}
			rows := p.Rows()
			if store {
				if err := a.store(cmd.Context(), lg.Name+"_players", rows, []string{"player_id", "season"}); err != nil {
					return err
				}
			}
			return a.print(cmd, columnsOr(columns, "season", "name", "team", "games"), rows)
		},
	}
	cmd.Flags().BoolVar(&store, "store", false, "also write the rows to the configured storage")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "table columns to print")
	return cmd
}

func newRosterCmd(a *app) *cobra.Command {
	var (
		year    int
		store   bool
		columns []string
	)
	cmd := &cobra.Command{
		Use:   "roster <league> <team>",
		Short: "Print a team's players for a season.",
		Args:  args(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			lg, err := getLeague(argv[0])
			if err != nil {
				return err
			}
			r, err := a.client().Roster(cmd.Context(), lg, argv[1], year)
			if err != nil {
				return err
			}
			rows := r.Rows()
			if store {
				if err := a.store(cmd.Context(), lg.Name+"_rosters", rows, []string{"team", "year", "player_id"}); err != nil {
					return err
				}
			}
			return a.print(cmd, columnsOr(columns, "player_id", "name", "position", "games"), rows)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "season year (default: inferred from today)")
	cmd.Flags().BoolVar(&store, "store", false, "also write the rows to the configured storage")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "table columns to print")
	return cmd
}

func columnsOr(cols []string, def ...string) []string {
	if len(cols) > 0 {
		return cols
	}
	return def
}
