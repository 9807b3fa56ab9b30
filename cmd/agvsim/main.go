/*
agvsim replays a preprocessed multi-floor AGV warehouse workload against the
physical execution engine — the time-expanded pathfinder, the reservation
table, the station queue state machines, and the dispatcher that binds them
— and emits a spatio-temporal event log plus per-task KPIs for delay
analysis. Data preprocessing and visualization are external collaborators;
this binary only runs the core (spec.md §1).
*/
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/hsichihchen-design/agvsim/config"
	"github.com/hsichihchen-design/agvsim/dispatch"
	"github.com/hsichihchen-design/agvsim/eventlog"
	"github.com/hsichihchen-design/agvsim/monitor"
	"github.com/hsichihchen-design/agvsim/mover"
	"github.com/hsichihchen-design/agvsim/reservation"
	"github.com/hsichihchen-design/agvsim/shuffle"
	"github.com/hsichihchen-design/agvsim/siminput"
	"github.com/hsichihchen-design/agvsim/station"
	"github.com/hsichihchen-design/agvsim/world"
)

var (
	configPath *string
	floorPaths []string
)

func init() {
	configPath = flag.String("config", "./config.yaml", "path to the run config")
	flag.Parse()
	floorPaths = flag.Args()
}

func runApp() error {
	cfg, err := config.FromYaml(*configPath)
	if err != nil {
		return fmt.Errorf("agvsim: %w", err)
	}

	eventsFile, err := os.Create(cfg.OutputDir + "/simulation_events.csv")
	if err != nil {
		return fmt.Errorf("agvsim: %w", err)
	}
	defer eventsFile.Close()
	kpisFile, err := os.Create(cfg.OutputDir + "/simulation_kpi.csv")
	if err != nil {
		return fmt.Errorf("agvsim: %w", err)
	}
	defer kpisFile.Close()

	writer, err := eventlog.NewWriter(eventsFile, kpisFile)
	if err != nil {
		return fmt.Errorf("agvsim: %w", err)
	}

	var sink eventlog.Sink = writer
	var mon *monitor.Server
	if cfg.Monitor.Enabled {
		mon = monitor.NewServer(writer)
		sink = mon
		go func() {
			if err := http.ListenAndServe(cfg.Monitor.Addr, mon.Handler()); err != nil {
				fmt.Println("agvsim: monitor server:", err)
			}
		}()
	}

	engines := make([]*dispatch.Engine, 0, len(floorPaths))
	for i, path := range floorPaths {
		eng, err := buildEngine(path, cfg, sink, int64(i))
		if err != nil {
			return fmt.Errorf("agvsim: %w", err)
		}
		engines = append(engines, eng)
	}

	if err := dispatch.RunFloors(engines); err != nil {
		return fmt.Errorf("agvsim: %w", err)
	}

	writer.Close()
	return nil
}

// buildEngine loads one floor's SimInput and wires it into a runnable
// Engine, per the Component -> Package map (SPEC_FULL.md §5).
func buildEngine(path string, cfg *config.Config, sink eventlog.Sink, floorSeed int64) (*dispatch.Engine, error) {
	in, err := siminput.LoadFloor(path)
	if err != nil {
		return nil, err
	}

	res := reservation.NewTableWithHorizon(cfg.DynamicHorizonSeconds)
	cleanup := shuffle.NewCleanupManager()
	shuffler := &shuffle.Manager{Grid: in.Grid, Res: res, Shelves: in.Shelves}
	mv := &mover.Mover{
		Floor: in.Floor, Grid: in.Grid, Res: res, Shelves: in.Shelves,
		Shuffler: shuffler, Cleanup: cleanup,
	}

	stationIDs := make([]string, 0, len(in.Stations))
	pqms := make(map[string]*station.PQM, len(in.Stations))
	zms := make(map[string]*station.ZoneManager, len(in.Stations))
	for _, s := range in.Stations {
		pos := world.Pos{Row: s.Row, Col: s.Col}
		pqms[s.ID] = station.NewPQM(s.ID, pos)
		zms[s.ID] = station.NewZoneManager()
		stationIDs = append(stationIDs, s.ID)
	}

	agvs := seedAGVs(in.Grid, cfg.AGVsPerFloor, in.Floor)
	pool := dispatch.NewPool(agvs)

	eng := dispatch.NewEngine(
		in.Floor, in.Grid, in.Shelves, mv, pool, cleanup, sink,
		cfg.Seed+floorSeed, in.BaseTime, pqms, zms, stationIDs,
	)
	for _, t := range in.Tasks {
		eng.Enqueue(t)
	}
	return eng, nil
}

// seedAGVs deterministically places n AGVs, row-major over aisle cells then
// storage cells, so two runs with the same grid always start identically
// (spec.md §8 property 7) without needing the engine's RNG for placement.
// Each AGV gets a distinct cell as long as one is available; only once n
// exceeds the floor's entire passable+storage cell count does placement
// wrap and double up, an unavoidable degenerate case given spec.md §3
// invariant 4 (no two AGVs share a cell) and a finite grid.
func seedAGVs(grid *world.Grid, n int, floor string) []*dispatch.AGV {
	spots := parkingCandidates(grid)
	if len(spots) == 0 {
		spots = []world.Pos{{Row: 0, Col: 0}}
	}

	agvs := make([]*dispatch.AGV, n)
	for i := 0; i < n; i++ {
		agvs[i] = &dispatch.AGV{
			ID:   eventlog.AGVObjID(i),
			Pos:  spots[i%len(spots)],
			Dir:  world.Wait,
			Time: 0,
		}
	}
	return agvs
}

// parkingCandidates lists every aisle cell followed by every storage cell,
// in row-major order. Aisles are preferred spawn spots; storage cells are
// the fallback, mirroring the original's _get_strict_spawn_spot falling
// back to storage spots when a floor has no aisle cells at all
// (step4_full_simulation.py), generalized here to a combined, deduplicated
// candidate list rather than a single fallback draw.
func parkingCandidates(grid *world.Grid) []world.Pos {
	var aisles, storage []world.Pos
	for r := 0; r < grid.Rows(); r++ {
		for c := 0; c < grid.Cols(); c++ {
			p := world.Pos{Row: r, Col: c}
			switch {
			case grid.IsPassable(p) && !grid.IsStation(p) && !grid.IsStorage(p):
				aisles = append(aisles, p)
			case grid.IsStorage(p):
				storage = append(storage, p)
			}
		}
	}
	return append(aisles, storage...)
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
