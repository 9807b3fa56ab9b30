// Package mover implements the Segment Mover (C9, spec.md §4.9): the retry
// ladder that drives a single AGV from one cell to another, escalating
// through wait, evict-blocker, shuffle, tunnel, backtrack, and finally
// teleport when every softer option is exhausted.
package mover

import (
	"fmt"

	"github.com/hsichihchen-design/agvsim/eventlog"
	"github.com/hsichihchen-design/agvsim/pathfind"
	"github.com/hsichihchen-design/agvsim/reservation"
	"github.com/hsichihchen-design/agvsim/shelf"
	"github.com/hsichihchen-design/agvsim/shuffle"
	"github.com/hsichihchen-design/agvsim/traffic"
	"github.com/hsichihchen-design/agvsim/world"
)

// Ladder thresholds and fixed costs, per spec.md §4.9.
const (
	backtrackThreshold = 60
	tunnelIgnoreThreshold = 45
	tunnelDynamicThreshold = 20
	shuffleThreshold      = 5
	trafficThreshold      = 3

	forceTeleUnreachableCost = 120
	forceTeleLadderCost      = 60
	tunnelDynamicBonus       = 30
	maxBackoffWait           = 5
)

// Request describes a single segment: drive agvID from Cur/Time/Dir to
// Target, loaded or empty.
type Request struct {
	AgvID    string
	Cur      world.Pos
	Time     int
	Dir      world.Dir
	Target   world.Pos
	IsLoaded bool
	Locator  traffic.AGVLocator
}

// Outcome is the committed result of a Move call: the AGV's new state plus
// every event produced while getting there.
type Outcome struct {
	Pos    world.Pos
	Time   int
	Dir    world.Dir
	Events []eventlog.Event
}

// Blocked is returned instead of an Outcome when the pre-flight soft-path
// check (spec.md §4.9 "loaded-mode early exit") finds the route physically
// obstructed by shelves close enough that no dynamic-conflict retry can
// help — only a rescue/shuffle can. Pos is the first obstructing cell.
type Blocked struct {
	Pos world.Pos
}

func (b *Blocked) Error() string {
	return fmt.Sprintf("mover: blocked by shelf at %v", b.Pos)
}

// Mover drives segments against one floor's world state.
type Mover struct {
	Floor    string
	Grid     *world.Grid
	Res      *reservation.Table
	Shelves  *shelf.Layer
	Shuffler *shuffle.Manager
	Cleanup  *shuffle.CleanupManager
}

// Move runs the full retry ladder described in spec.md §4.9 and returns the
// committed outcome, or a *Blocked error if the route is obstructed by
// shelves in a way no amount of waiting or nudging will resolve.
func (m *Mover) Move(req Request) (Outcome, error) {
	if pos, blocked := m.checkSoftBlocked(req); blocked {
		return Outcome{}, &Blocked{Pos: pos}
	}

	pos, t, dir := req.Cur, req.Time, req.Dir
	var events []eventlog.Event

	if !m.Grid.Connected(pos, req.Target) {
		events = append(events, m.teleEvent(req.AgvID, pos, req.Target, t, eventlog.TeleUnreachable))
		return Outcome{Pos: req.Target, Time: t + forceTeleUnreachableCost, Dir: dir, Events: events}, nil
	}

	startWait := t
	retryCount := 0

	for {
		res, ok := pathfind.Search(pathfind.Request{
			Grid: m.Grid, Res: m.Res, Shelves: m.Shelves,
			Start: pos, StartDir: dir, StartTime: t, Goal: req.Target,
			IsLoaded: req.IsLoaded,
		})
		if ok && res.Reached {
			ev, newT, newDir := m.commitPath(req.AgvID, res)
			events = append(events, ev...)
			return Outcome{Pos: req.Target, Time: newT, Dir: newDir, Events: events}, nil
		}

		elapsed := t - startWait
		switch {
		case elapsed > backtrackThreshold:
			if nb, found := m.findBacktrack(pos, req.Target, req.Locator); found {
				events = append(events, eventlog.Event{
					StartTS: int64(t), EndTS: int64(t), Floor: m.Floor, ObjID: req.AgvID,
					SX: nb.Col, SY: nb.Row, EX: nb.Col, EY: nb.Row,
					Type: eventlog.Yield, Text: "backtrack",
				})
				pos = nb
				startWait = t
				continue
			}
			events = append(events, m.teleEvent(req.AgvID, pos, req.Target, t, eventlog.TeleDeadlock))
			return Outcome{Pos: req.Target, Time: t + forceTeleLadderCost, Dir: dir, Events: events}, nil

		case elapsed > tunnelIgnoreThreshold:
			res2, _ := pathfind.Search(pathfind.Request{
				Grid: m.Grid, Res: m.Res, Shelves: m.Shelves,
				Start: pos, StartDir: dir, StartTime: t, Goal: req.Target,
				IsLoaded: req.IsLoaded, IgnoreDynamic: true, AllowTunneling: true,
			})
			if res2 != nil && res2.Reached {
				ev, newT, newDir := m.commitPath(req.AgvID, res2)
				events = append(events, ev...)
				return Outcome{Pos: req.Target, Time: newT, Dir: newDir, Events: events}, nil
			}
			events = append(events, m.teleEvent(req.AgvID, pos, req.Target, t, eventlog.TeleNoPath))
			return Outcome{Pos: req.Target, Time: t + forceTeleLadderCost, Dir: dir, Events: events}, nil

		case elapsed > tunnelDynamicThreshold:
			res3, ok3 := pathfind.Search(pathfind.Request{
				Grid: m.Grid, Res: m.Res, Shelves: m.Shelves,
				Start: pos, StartDir: dir, StartTime: t, Goal: req.Target,
				IsLoaded: req.IsLoaded, AllowTunneling: true,
			})
			if ok3 && res3.Reached {
				ev, newT, newDir := m.commitPath(req.AgvID, res3)
				events = append(events, ev...)
				return Outcome{Pos: req.Target, Time: newT + tunnelDynamicBonus, Dir: newDir, Events: events}, nil
			}
			// No tunneling path either; keep time moving so the ladder
			// provably reaches the next rung rather than spinning here.
			t++

		case elapsed > shuffleThreshold:
			outcome, shuffled := m.Shuffler.Shuffle(req.AgvID, pos, t, req.Target, m.Cleanup)
			if shuffled {
				pos, t = outcome.Pos, outcome.Time
				events = append(events, outcome.Events...)
				continue
			}
			t++

		case elapsed > trafficThreshold:
			result := traffic.Nudge(m.Grid, m.Res, req.Locator, pos, req.Target, t, req.AgvID)
			if result.Moved {
				t += result.Cost
				events = append(events, eventlog.Event{
					StartTS: int64(t), EndTS: int64(t), Floor: m.Floor, ObjID: result.Blocker,
					SX: result.Sanctuary.Col, SY: result.Sanctuary.Row,
					EX: result.Sanctuary.Col, EY: result.Sanctuary.Row,
					Type: eventlog.Yield, Text: "nudged",
				})
				continue
			}
			t++

		default:
			wait := 1 << retryCount
			if wait > maxBackoffWait {
				wait = maxBackoffWait
			}
			m.Res.LockSpot(pos, t, wait, req.AgvID)
			t += wait
			retryCount++
		}
	}
}

func (m *Mover) teleEvent(agvID string, from, to world.Pos, t int, reason eventlog.TeleReason) eventlog.Event {
	return eventlog.Event{
		StartTS: int64(t), EndTS: int64(t),
		Floor: m.Floor,
		ObjID: agvID,
		SX:    from.Col, SY: from.Row,
		EX: to.Col, EY: to.Row,
		Type: eventlog.ForceTele, Text: string(reason),
	}
}

// commitPath reserves every cell/edge along a successful search result and
// emits one AGV_MOVE event per step, per spec.md §3 invariant 1.
func (m *Mover) commitPath(agvID string, res *pathfind.Result) ([]eventlog.Event, int, world.Dir) {
	events := make([]eventlog.Event, 0, len(res.Path)-1)
	for i := 0; i+1 < len(res.Path); i++ {
		from := res.Path[i]
		to := res.Path[i+1]
		m.Res.ReserveCell(to.Time, to.Pos, agvID)
		m.Res.ReserveEdge(from.Time, from.Pos, to.Pos, agvID)
		events = append(events, eventlog.Event{
			StartTS: int64(from.Time), EndTS: int64(to.Time),
			Floor: m.Floor,
			ObjID: agvID,
			SX:    from.Pos.Col, SY: from.Pos.Row,
			EX: to.Pos.Col, EY: to.Pos.Row,
			Type: eventlog.AGVMove,
		})
	}
	m.Res.NoteAGVTime(agvID, res.EndTime)
	return events, res.EndTime, res.EndDir
}

// findBacktrack returns the neighbor of pos that is passable, unoccupied,
// and maximizes distance from target (spec.md §4.9 step 3).
func (m *Mover) findBacktrack(pos, target world.Pos, locator traffic.AGVLocator) (world.Pos, bool) {
	best := world.Pos{}
	bestDist := -1
	found := false
	for _, nb := range m.Grid.Neighbors(pos) {
		if !m.Grid.IsPassable(nb.Pos) {
			continue
		}
		if _, occupied := locator.AGVAt(nb.Pos); occupied {
			continue
		}
		d := world.Manhattan(nb.Pos, target)
		if d > bestDist {
			bestDist = d
			best = nb.Pos
			found = true
		}
	}
	return best, found
}

// checkSoftBlocked computes the unloaded, dynamic-ignoring path from cur to
// target; if any interior cell (neither start nor goal) holds a shelf, the
// route is physically obstructed in a way no wait/nudge can fix and the
// caller must run the rescue protocol instead (spec.md §4.9).
func (m *Mover) checkSoftBlocked(req Request) (world.Pos, bool) {
	soft, ok := pathfind.Search(pathfind.Request{
		Grid: m.Grid, Res: m.Res, Shelves: m.Shelves,
		Start: req.Cur, StartDir: req.Dir, StartTime: req.Time, Goal: req.Target,
		IsLoaded: false, IgnoreDynamic: true,
	})
	if !ok || soft == nil {
		return world.Pos{}, false
	}
	for i, wp := range soft.Path {
		if i == 0 || wp.Pos == req.Target {
			continue
		}
		if m.Grid.IsStorage(wp.Pos) && m.Shelves.Occupies(wp.Pos) {
			return wp.Pos, true
		}
	}
	return world.Pos{}, false
}
