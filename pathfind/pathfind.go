// Package pathfind implements the time-expanded A* search (spec.md §4.4):
// single-agent pathfinding over the state (cell, time, incoming-direction),
// honoring the shared reservation table within a bounded dynamic-conflict
// lookahead horizon.
package pathfind

import (
	"container/heap"

	"github.com/hsichihchen-design/agvsim/reservation"
	"github.com/hsichihchen-design/agvsim/shelf"
	"github.com/hsichihchen-design/agvsim/world"
)

// Step costs, per spec.md §4.4.
const (
	WaitCost   = 1.0
	TurnCost   = 2.0
	UTurnCost  = 4.0
	TunnelCost = 50.0
	ShelfSoftPenalty = 3.0
)

// Request bundles the parameters of a single A* call.
type Request struct {
	Grid      *world.Grid
	Res       *reservation.Table
	Shelves   *shelf.Layer
	Start     world.Pos
	StartDir  world.Dir
	StartTime int
	Goal      world.Pos

	IsLoaded       bool
	IgnoreDynamic  bool
	AllowTunneling bool
}

// PosTime is one (cell, arrival-time) waypoint of a committed or proposed path.
type PosTime struct {
	Pos  world.Pos
	Time int
}

// Result is the return of a successful (or best-effort) search.
type Result struct {
	Path    []PosTime
	EndTime int
	EndDir  world.Dir
	// Reached reports whether Path actually ends at the goal; false means
	// this is the "best reached node" fallback allowed only when
	// IgnoreDynamic is set (spec.md §4.4).
	Reached bool
}

type stateKey struct {
	cell world.Pos
	t    int
	dir  world.Dir
}

type node struct {
	key    stateKey
	g      float64
	f      float64
	h      int
	parent *node
}

// openQueue is a binary min-heap ordered by (f, h) — the spec's tie-break:
// "primary f, secondary h; this biases expansion toward the goal."
type openQueue []*node

func (q openQueue) Len() int { return len(q) }
func (q openQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].h < q[j].h
}
func (q openQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *openQueue) Push(x interface{}) { *q = append(*q, x.(*node)) }
func (q *openQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

var dirOrder = [5]world.Dir{world.East, world.South, world.West, world.North, world.Wait}

// Search runs the time-expanded A* described in spec.md §4.4 and returns the
// best path found, or (nil, false) on outright failure (which can only
// happen when req.IgnoreDynamic is false — otherwise the best-reached node
// is always returned).
func Search(req Request) (*Result, bool) {
	limit := 15 * world.Manhattan(req.Start, req.Goal)
	if limit < 500 {
		limit = 500
	}

	start := &node{
		key: stateKey{cell: req.Start, t: req.StartTime, dir: req.StartDir},
		g:   0,
	}
	start.h = world.Manhattan(req.Start, req.Goal)
	start.f = start.g + 2*float64(start.h)

	open := &openQueue{start}
	heap.Init(open)
	bestG := map[stateKey]float64{start.key: 0}
	var best *node = start

	expansions := 0
	for open.Len() > 0 && expansions < limit {
		cur := heap.Pop(open).(*node)
		if g, ok := bestG[cur.key]; ok && cur.g > g {
			continue // stale heap entry
		}
		expansions++

		if cur.h < best.h {
			best = cur
		}
		if cur.key.cell == req.Goal {
			return buildResult(cur, true), true
		}

		for _, d := range dirOrder {
			next := cur.key.cell.Step(d)
			if d == world.Wait {
				next = cur.key.cell
			}
			if !req.Grid.IsPassable(next) {
				continue
			}
			nextT := cur.key.t + 1

			if !req.IgnoreDynamic && req.Res.WithinHorizon(req.StartTime, nextT) {
				if req.Res.IsCellReserved(nextT, next) {
					continue
				}
				if req.Res.IsEdgeReserved(cur.key.t, next, cur.key.cell) {
					continue
				}
			}

			stepCost := 0.0
			if d == world.Wait {
				stepCost += WaitCost
			} else if cur.key.dir != d {
				if world.Opposite(cur.key.dir) == d {
					stepCost += UTurnCost
				} else {
					stepCost += TurnCost
				}
			}

			if req.IsLoaded {
				if req.Grid.IsStorage(next) && req.Shelves.Occupies(next) {
					isEndpoint := next == req.Goal || next == req.Start
					if !isEndpoint {
						if !req.AllowTunneling {
							continue
						}
						stepCost += TunnelCost
					}
				}
			} else if req.Grid.IsStorage(next) && req.Shelves.Occupies(next) {
				stepCost += ShelfSoftPenalty
			}

			nextKey := stateKey{cell: next, t: nextT, dir: d}
			nextG := cur.g + stepCost
			if g, ok := bestG[nextKey]; ok && nextG >= g {
				continue
			}
			bestG[nextKey] = nextG
			h := world.Manhattan(next, req.Goal)
			heap.Push(open, &node{
				key:    nextKey,
				g:      nextG,
				h:      h,
				f:      nextG + 2*float64(h),
				parent: cur,
			})
		}
	}

	if req.IgnoreDynamic {
		return buildResult(best, best.key.cell == req.Goal), true
	}
	return nil, false
}

func buildResult(n *node, reached bool) *Result {
	var path []PosTime
	for cur := n; cur != nil; cur = cur.parent {
		path = append([]PosTime{{Pos: cur.key.cell, Time: cur.key.t}}, path...)
	}
	return &Result{
		Path:    path,
		EndTime: n.key.t,
		EndDir:  n.key.dir,
		Reached: reached,
	}
}
