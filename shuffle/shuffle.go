// Package shuffle implements the Shuffle Manager (spec.md §4.6): evicting a
// shelf that blocks a goal cell to a buffer cell, and the per-floor cleanup
// queue that records where it came from.
package shuffle

import (
	"sort"

	"github.com/hsichihchen-design/agvsim/eventlog"
	"github.com/hsichihchen-design/agvsim/pathfind"
	"github.com/hsichihchen-design/agvsim/reservation"
	"github.com/hsichihchen-design/agvsim/shelf"
	"github.com/hsichihchen-design/agvsim/world"
)

const shuffleStepDuration = 10
const maxBufferBFS = 10

// CleanupRecord is a pending shelf restoration: the shelf currently sits at
// Buffer and should eventually be moved back to Blocker.
type CleanupRecord struct {
	Buffer  world.Pos
	Blocker world.Pos
	Sid     string
}

// CleanupManager is the per-floor FIFO of pending restorations (spec.md
// §4.6 step 3's last bullet). Shuffle enqueues a record for every evicted
// shelf; no part of the engine pops these records, so a shuffled shelf stays
// at its buffer cell.
type CleanupManager struct {
	pending []CleanupRecord
}

func NewCleanupManager() *CleanupManager {
	return &CleanupManager{}
}

func (c *CleanupManager) Enqueue(r CleanupRecord) {
	c.pending = append(c.pending, r)
}

// Pop returns and removes the oldest pending restoration, if any.
func (c *CleanupManager) Pop() (CleanupRecord, bool) {
	if len(c.pending) == 0 {
		return CleanupRecord{}, false
	}
	r := c.pending[0]
	c.pending = c.pending[1:]
	return r, true
}

func (c *CleanupManager) Len() int { return len(c.pending) }

// Manager runs the shuffle procedure against a single floor's world state.
type Manager struct {
	Grid    *world.Grid
	Res     *reservation.Table
	Shelves *shelf.Layer
}

// Outcome is the result of a successful Shuffle call.
type Outcome struct {
	Pos    world.Pos
	Time   int
	Events []eventlog.Event
}

// Shuffle implements spec.md §4.6. agvID is the AGV performing the
// eviction; cur/now are its current position/time; goal is the cell the
// caller ultimately needs clear. On success it returns the AGV's new
// position/time (at the buffer cell) and the events to emit; ok is false
// if no blocker or no buffer could be found, in which case the caller
// (segment mover) escalates further up the retry ladder.
func (m *Manager) Shuffle(
	agvID string,
	cur world.Pos,
	now int,
	goal world.Pos,
	cleanup *CleanupManager,
) (Outcome, bool) {
	blocker, sid, found := m.findBlocker(goal)
	if !found {
		return Outcome{}, false
	}

	buffer, found := m.findBuffer(blocker, goal)
	if !found {
		return Outcome{}, false
	}

	// Reachability is checked up front so the "all-or-nothing" commit never
	// has to unwind a partially-applied shelf move: if either leg cannot
	// reach its target, nothing below has mutated shared state yet.
	if !m.Grid.Connected(cur, blocker) || !m.Grid.Connected(blocker, buffer) {
		return Outcome{}, false
	}

	leg1, ok := pathfind.Search(pathfind.Request{
		Grid: m.Grid, Res: m.Res, Shelves: m.Shelves,
		Start: cur, StartTime: now, Goal: blocker,
		IsLoaded: false, IgnoreDynamic: true,
	})
	if !ok || !leg1.Reached {
		return Outcome{}, false
	}

	t := leg1.EndTime
	var events []eventlog.Event
	sx, sy := eventlog.CSVPos(blocker)
	events = append(events, eventlog.Event{
		StartTS: int64(t), EndTS: int64(t),
		ObjID: agvID, SX: sx, SY: sy, EX: sx, EY: sy,
		Type: eventlog.ShuffleLoad, Text: sid,
	})
	t += shuffleStepDuration

	leg2, ok := pathfind.Search(pathfind.Request{
		Grid: m.Grid, Res: m.Res, Shelves: m.Shelves,
		Start: blocker, StartTime: t, Goal: buffer,
		IsLoaded: true, IgnoreDynamic: true, AllowTunneling: true,
	})
	if !ok || !leg2.Reached {
		return Outcome{}, false
	}

	t = leg2.EndTime
	if err := m.Shelves.MoveShelf(sid, blocker, buffer); err != nil {
		return Outcome{}, false
	}
	bx, by := eventlog.CSVPos(buffer)
	events = append(events, eventlog.Event{
		StartTS: int64(t), EndTS: int64(t),
		ObjID: agvID, SX: bx, SY: by, EX: bx, EY: by,
		Type: eventlog.ShuffleUnload, Text: sid,
	})
	t += shuffleStepDuration

	cleanup.Enqueue(CleanupRecord{Buffer: buffer, Blocker: blocker, Sid: sid})

	return Outcome{Pos: buffer, Time: t, Events: events}, true
}

// findBlocker enumerates storage cells adjacent to goal that are currently
// shelf-occupied and returns the first one (spec.md §4.6 step 1).
func (m *Manager) findBlocker(goal world.Pos) (pos world.Pos, sid string, found bool) {
	for _, nb := range m.Grid.Neighbors(goal) {
		if !m.Grid.IsStorage(nb.Pos) {
			continue
		}
		if s, ok := m.Shelves.SidAt(nb.Pos); ok {
			return nb.Pos, s, true
		}
	}
	return world.Pos{}, "", false
}

// findBuffer does a BFS (<=10 cells) from blocker for a non-wall cell that
// is not occupied and not the goal, preferring storage cells over aisles,
// tie-broken by distance (spec.md §4.6 step 2).
func (m *Manager) findBuffer(blocker, goal world.Pos) (world.Pos, bool) {
	type candidate struct {
		pos      world.Pos
		dist     int
		isStorage bool
	}
	visited := map[world.Pos]bool{blocker: true}
	queue := []candidate{{pos: blocker, dist: 0}}
	var found []candidate

	for len(queue) > 0 && len(visited) <= maxBufferBFS {
		cur := queue[0]
		queue = queue[1:]

		if cur.pos != blocker && cur.pos != goal && !m.Shelves.Occupies(cur.pos) {
			found = append(found, candidate{
				pos: cur.pos, dist: cur.dist, isStorage: m.Grid.IsStorage(cur.pos),
			})
		}

		for _, nb := range m.Grid.Neighbors(cur.pos) {
			if visited[nb.Pos] || !m.Grid.IsPassable(nb.Pos) {
				continue
			}
			visited[nb.Pos] = true
			queue = append(queue, candidate{pos: nb.Pos, dist: cur.dist + 1})
		}
	}

	if len(found) == 0 {
		return world.Pos{}, false
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].isStorage != found[j].isStorage {
			return found[i].isStorage // storage before aisle
		}
		return found[i].dist < found[j].dist
	})
	return found[0].pos, true
}
