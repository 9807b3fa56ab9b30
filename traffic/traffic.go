// Package traffic implements the Traffic Controller (spec.md §4.5): nudging
// a blocking idle AGV to a nearby sanctuary cell so the requesting AGV can
// proceed. Invoked by the segment mover after a short wait.
package traffic

import (
	"github.com/hsichihchen-design/agvsim/reservation"
	"github.com/hsichihchen-design/agvsim/world"
)

// AGVLocator resolves which AGV (if any) occupies a cell right now, so the
// controller can identify the blocker and move it out of the way in the
// state model. Implemented by the caller's AGV pool (dispatch package) to
// avoid a dependency cycle.
type AGVLocator interface {
	AGVAt(pos world.Pos) (id string, ok bool)
	Reposition(id string, to world.Pos)
}

// Result is the outcome of a nudge attempt.
type Result struct {
	Moved     bool
	Blocker   string
	Sanctuary world.Pos
	Cost      int
}

const maxManhattanSteps = 6
const maxSanctuaryBFS = 100

// Nudge steps cell-by-cell along the Manhattan path from cur to goal (up to
// 6 cells), finds the first cell occupied by a different AGV, and if a
// sanctuary is found within 100 BFS cells, teleports that AGV there in the
// state model instantly and reserves the sanctuary.
func Nudge(
	grid *world.Grid,
	res *reservation.Table,
	locator AGVLocator,
	cur, goal world.Pos,
	now int,
	requester string,
) Result {
	blocker, blockerPos, found := findBlocker(grid, locator, cur, goal, requester)
	if !found {
		return Result{Moved: false}
	}

	sanctuary, dist, ok := findSanctuary(grid, res, locator, blockerPos, now)
	if !ok {
		return Result{Moved: false, Blocker: blocker}
	}

	locator.Reposition(blocker, sanctuary)
	cost := dist * 2
	res.LockSpot(sanctuary, now, cost, blocker)

	return Result{Moved: true, Blocker: blocker, Sanctuary: sanctuary, Cost: cost}
}

// findBlocker walks the Manhattan path (row-major steps, then column steps)
// from cur toward goal, up to maxManhattanSteps cells, looking for the
// first cell occupied by an AGV other than the requester.
func findBlocker(
	grid *world.Grid,
	locator AGVLocator,
	cur, goal world.Pos,
	requester string,
) (id string, pos world.Pos, found bool) {
	p := cur
	for i := 0; i < maxManhattanSteps; i++ {
		if p == goal {
			break
		}
		switch {
		case p.Row < goal.Row:
			p.Row++
		case p.Row > goal.Row:
			p.Row--
		case p.Col < goal.Col:
			p.Col++
		case p.Col > goal.Col:
			p.Col--
		default:
			return "", world.Pos{}, false
		}
		if !grid.IsPassable(p) {
			continue
		}
		if occupant, ok := locator.AGVAt(p); ok && occupant != requester {
			return occupant, p, true
		}
	}
	return "", world.Pos{}, false
}

// findSanctuary does a BFS outward from blocker (<=100 cells) for a
// non-wall cell that is unreserved in [now, now+3] and unoccupied.
func findSanctuary(
	grid *world.Grid,
	res *reservation.Table,
	locator AGVLocator,
	blocker world.Pos,
	now int,
) (world.Pos, int, bool) {
	type qitem struct {
		pos  world.Pos
		dist int
	}
	visited := map[world.Pos]bool{blocker: true}
	queue := []qitem{{pos: blocker, dist: 0}}
	visitedCount := 0

	for len(queue) > 0 && visitedCount < maxSanctuaryBFS {
		cur := queue[0]
		queue = queue[1:]
		visitedCount++

		if cur.pos != blocker && isSanctuary(grid, res, locator, cur.pos, now) {
			return cur.pos, cur.dist, true
		}

		for _, nb := range grid.Neighbors(cur.pos) {
			if visited[nb.Pos] || !grid.IsPassable(nb.Pos) {
				continue
			}
			visited[nb.Pos] = true
			queue = append(queue, qitem{pos: nb.Pos, dist: cur.dist + 1})
		}
	}
	return world.Pos{}, 0, false
}

func isSanctuary(
	grid *world.Grid,
	res *reservation.Table,
	locator AGVLocator,
	p world.Pos,
	now int,
) bool {
	if !grid.IsPassable(p) {
		return false
	}
	for sec := now; sec <= now+3; sec++ {
		if res.IsCellReserved(sec, p) {
			return false
		}
	}
	if _, occupied := locator.AGVAt(p); occupied {
		return false
	}
	return true
}
