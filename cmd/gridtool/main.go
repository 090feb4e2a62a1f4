// Command gridtool generates a grid from a server config and reports on it
// without starting the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gravitas-games/hexmove/internal/config"
	"github.com/gravitas-games/hexmove/internal/grid"
	"github.com/gravitas-games/hexmove/internal/hex"
	"github.com/gravitas-games/hexmove/internal/movement"
	"github.com/gravitas-games/hexmove/internal/persistence"
	"github.com/gravitas-games/hexmove/pkg/models"
)

type options struct {
	configPath string
	radius     int
	seed       int64
	csvPath    string
	dbPath     string
	name       string
	query      string
	verbose    bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "server config file (embedded defaults when empty)")
	flag.IntVar(&o.radius, "radius", 0, "override grid radius")
	flag.Int64Var(&o.seed, "seed", 0, "override terrain seed (0 keeps the configured one)")
	flag.StringVar(&o.csvPath, "csv", "", "write cells to this CSV file ('-' for stdout)")
	flag.StringVar(&o.dbPath, "db", "", "save a snapshot to this SQLite database")
	flag.StringVar(&o.name, "name", "gridtool", "snapshot name used with -db")
	flag.StringVar(&o.query, "path", "", "plan a move, as q,r:q,r")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()

	if err := run(context.Background(), o, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "gridtool:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, out io.Writer) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.radius > 0 {
		cfg.Grid.Radius = o.radius
	}
	if o.seed != 0 {
		cfg.Terrain.Seed = o.seed
	}

	ix := grid.New(append(cfg.GridOptions(logger), grid.WithTileFactory(grid.TileFactoryFunc(models.NewTile)))...)
	st, err := ix.Generate(cfg.Grid.Radius, cfg.Terrain.Probe())
	if err != nil {
		return err
	}
	if cfg.Grid.WorldNeighbors {
		ix.BuildWorldNeighborCache()
	}
	printStats(out, cfg, ix, st)

	if o.csvPath != "" {
		if err := writeCSV(o.csvPath, ix.Snapshot(), out); err != nil {
			return fmt.Errorf("csv export: %w", err)
		}
	}

	if o.dbPath != "" {
		db, err := persistence.Open(o.dbPath, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		id, err := db.SaveSnapshot(ctx, o.name, ix.Snapshot())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "snapshot %s saved to %s\n", id, o.dbPath)
	}

	if o.query != "" {
		from, to, err := parseQuery(o.query)
		if err != nil {
			return err
		}
		planner := movement.NewPlanner(ix, cfg.PlannerOptions(logger)...)
		mv, err := planner.Plan(from, to)
		if err != nil {
			return err
		}
		printMove(out, mv)
	}
	return nil
}

func printStats(out io.Writer, cfg *config.Config, ix *grid.Index, st grid.Stats) {
	fmt.Fprintf(out, "radius %d, convention %s, orientation %s\n", cfg.Grid.Radius, ix.Convention(), cfg.Grid.Orientation)
	fmt.Fprintf(out, "candidates %d, accepted %d, no hit %d, floor %d, declined %d, collisions %d\n",
		st.Candidates, st.Accepted, st.RejectedNoHit, st.RejectedFloor, st.RejectedFactory, st.Collisions)
	if st.MissingSpecial > 0 {
		fmt.Fprintf(out, "special tiles not generated: %d\n", st.MissingSpecial)
	}
	if ix.WorldCacheValid() {
		fmt.Fprintf(out, "world neighbor mismatches: %d\n", len(ix.Mismatches()))
	}
}

func printMove(out io.Writer, mv movement.Move) {
	steps := make([]string, len(mv.Steps))
	for i, a := range mv.Steps {
		steps[i] = a.String()
	}
	fmt.Fprintf(out, "route %d hops, this turn %d: %s\n", len(mv.Planned)-1, len(mv.Steps)-1, strings.Join(steps, " "))
	if !mv.Reached() {
		fmt.Fprintf(out, "%d hops remain after this turn\n", mv.Remaining())
	}
	if mv.Bridge.Lossy() {
		fmt.Fprintf(out, "bridge dropped %d waypoints\n", mv.Bridge.Dropped)
	}
}

func writeCSV(p string, snap grid.Snapshot, stdout io.Writer) error {
	if p == "-" {
		return persistence.WriteCellsCSV(stdout, snap)
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if err := persistence.WriteCellsCSV(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseQuery(s string) (hex.Axial, hex.Axial, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return hex.Axial{}, hex.Axial{}, errors.New("path query must look like q,r:q,r")
	}
	from, err := hex.ParseAxial(a)
	if err != nil {
		return hex.Axial{}, hex.Axial{}, err
	}
	to, err := hex.ParseAxial(b)
	if err != nil {
		return hex.Axial{}, hex.Axial{}, err
	}
	return from, to, nil
}
