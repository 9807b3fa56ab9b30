// Package dispatch implements the Dispatcher / Main Loop (C10, spec.md
// §4.10): per-floor task intake, AGV selection, and the macro-scripts that
// drive a task (or a rescue) to completion through the Segment Mover.
package dispatch

import (
	"math/rand"

	"github.com/hsichihchen-design/agvsim/eventlog"
	"github.com/hsichihchen-design/agvsim/mover"
	"github.com/hsichihchen-design/agvsim/shelf"
	"github.com/hsichihchen-design/agvsim/shuffle"
	"github.com/hsichihchen-design/agvsim/station"
	"github.com/hsichihchen-design/agvsim/world"
)

// parkWait is how long an AGV waits before retrying station selection when
// no station currently qualifies (spec.md §4.10 step 3).
const parkWait = 5

// Engine runs one floor's simulation to completion. Floors share no mutable
// state (spec.md §5), so each Engine is self-contained and safe to run
// concurrently with another floor's Engine.
type Engine struct {
	Floor   string
	Grid    *world.Grid
	Shelves *shelf.Layer
	Mover   *mover.Mover
	Pool    *Pool
	Cleanup *shuffle.CleanupManager
	Sink    eventlog.Sink
	Rand    *rand.Rand
	BaseTime int64

	PQMs map[string]*station.PQM
	ZMs  map[string]*station.ZoneManager

	StationIDs   []string // deterministic iteration order
	StationTasks map[string][]*Task
	RescueQueue  []*RescueTask
	RescueLocks  map[string]bool
	RetryCounter map[string]int

	// StorageCells is every storage cell on the floor, in row-major order;
	// precomputed once like the original's valid_storage_spots set, and used
	// by parkingSpot to find an idle AGV a cell to sit on.
	StorageCells []world.Pos
}

// NewEngine wires together an already-loaded floor's static/dynamic state
// into a runnable dispatcher, per the Component -> Package map (SPEC_FULL.md
// §5).
func NewEngine(
	floor string,
	grid *world.Grid,
	shelves *shelf.Layer,
	mv *mover.Mover,
	pool *Pool,
	cleanup *shuffle.CleanupManager,
	sink eventlog.Sink,
	seed int64,
	baseTime int64,
	pqms map[string]*station.PQM,
	zms map[string]*station.ZoneManager,
	stationIDs []string,
) *Engine {
	stationTasks := make(map[string][]*Task, len(stationIDs))
	for _, sid := range stationIDs {
		stationTasks[sid] = nil
	}

	var storageCells []world.Pos
	for r := 0; r < grid.Rows(); r++ {
		for c := 0; c < grid.Cols(); c++ {
			p := world.Pos{Row: r, Col: c}
			if grid.IsStorage(p) {
				storageCells = append(storageCells, p)
			}
		}
	}

	return &Engine{
		Floor:        floor,
		Grid:         grid,
		Shelves:      shelves,
		Mover:        mv,
		Pool:         pool,
		Cleanup:      cleanup,
		Sink:         sink,
		Rand:         rand.New(rand.NewSource(seed)),
		BaseTime:     baseTime,
		PQMs:         pqms,
		ZMs:          zms,
		StationIDs:   stationIDs,
		StationTasks: stationTasks,
		RescueQueue:  nil,
		RescueLocks:  make(map[string]bool),
		RetryCounter: make(map[string]int),
		StorageCells: storageCells,
	}
}

// Enqueue appends task to its first stop's station FIFO (spec.md §4.10 step 1).
func (e *Engine) Enqueue(task *Task) {
	if len(task.Stops) == 0 {
		return
	}
	sid := task.Stops[0].Station
	e.StationTasks[sid] = append(e.StationTasks[sid], task)
}

// done reports whether every queue — rescue and per-station — is drained.
func (e *Engine) done() bool {
	if len(e.RescueQueue) > 0 {
		return false
	}
	for _, sid := range e.StationIDs {
		if len(e.StationTasks[sid]) > 0 {
			return false
		}
	}
	return true
}

// emitInit writes the floor's t=0 bootstrap pass: one INIT event per AGV
// and one idle STATION_STATUS per station, mirroring the original's
// pre-dispatch pass (step4_full_simulation.py writes these before its main
// loop starts) so a downstream consumer sees every object from frame one
// instead of only from its first real move.
func (e *Engine) emitInit() {
	for _, sid := range e.StationIDs {
		sx, sy := eventlog.CSVPos(e.PQMs[sid].Pos)
		e.Sink.Event(eventlog.Event{
			StartTS: 0, EndTS: 1, Floor: e.Floor,
			ObjID: eventlog.StationObjID(sid), SX: sx, SY: sy, EX: sx, EY: sy,
			Type: eventlog.StationStatus,
			Text: eventlog.StationStatusText(eventlog.ColorWhite, "IDLE", false),
		})
	}
	for _, agv := range e.Pool.All() {
		sx, sy := eventlog.CSVPos(agv.Pos)
		e.Sink.Event(eventlog.Event{
			StartTS: 0, EndTS: 1, Floor: e.Floor,
			ObjID: agv.ID, SX: sx, SY: sy, EX: sx, EY: sy,
			Type: eventlog.Init, Text: "INIT",
		})
	}
}

// Run drains every queue to completion (spec.md §4.10): select an AGV,
// select its next unit of work, execute the matching macro-script, repeat.
func (e *Engine) Run() {
	e.emitInit()
	for !e.done() {
		agv := e.Pool.LeastRecentlyBusy()

		if rt, ok := e.popRescue(); ok {
			e.runRescue(agv, rt)
			continue
		}

		sid, task, ok := e.selectTask(agv)
		if !ok {
			agv.Time += parkWait
			continue
		}

		if !task.IsRetry {
			e.ZMs[sid].Reserve()
		}
		e.runTask(agv, sid, task)
	}
}

// selectTask implements spec.md §4.10 step 3: among stations with a
// non-empty queue, admitting load, and a head task available to agv, pick
// the one with the lowest `datetime + 60*retry_counter` score.
func (e *Engine) selectTask(agv *AGV) (string, *Task, bool) {
	var bestSid string
	var bestTask *Task
	bestScore := int64(0)
	found := false

	for _, sid := range e.StationIDs {
		q := e.StationTasks[sid]
		if len(q) == 0 {
			continue
		}
		head := q[0]
		if e.RescueLocks[head.ShelfID] {
			continue
		}
		if !e.ZMs[sid].Admits() {
			continue
		}
		if head.AssignedAGV != "" && head.AssignedAGV != agv.ID {
			continue
		}
		score := head.DateTime + 60*int64(e.RetryCounter[head.TaskID])
		if !found || score < bestScore {
			found = true
			bestScore = score
			bestSid = sid
			bestTask = head
		}
	}

	if !found {
		return "", nil, false
	}
	e.StationTasks[bestSid] = e.StationTasks[bestSid][1:]
	return bestSid, bestTask, true
}
