// Package reservation implements the per-floor spatio-temporal reservation
// table (spec.md §3, §4.2): a time->set<cell> map and a time->set<edge> map
// used by the pathfinder to detect conflicts and by the segment mover to
// commit committed paths.
package reservation

import "github.com/hsichihchen-design/agvsim/world"

// Edge is a directed (from, to) cell pair claimed for a single second, used
// as the swap guard: an AGV moving from->to during [t, t+1] forbids the
// reverse move to->from in the same slot (spec.md §3 invariant 1).
type Edge struct {
	From, To world.Pos
}

// Table is the per-floor reservation table. It is mutated only by the
// segment mover (committing a path) and the traffic controller (nudging a
// blocker aside), per spec.md §5 resource policy; all other callers only
// read it.
type Table struct {
	cellOwner map[int]map[world.Pos]string
	edgeOwner map[int]map[Edge]string
	// agvDeadline tracks, per AGV id, the latest clock value noted for that
	// AGV. Cleanup never evicts entries for seconds at or after the clock of
	// an AGV that lags behind the cutoff (spec.md §4.2 invariant), so this is
	// consulted by Cleanup.
	agvDeadline map[string]int
	// horizon is this table's dynamic-conflict lookahead window. spec.md §9
	// flags the 60s default as workload-dependent and "should be a tunable
	// configuration"; NewTable defaults to Horizon, NewTableWithHorizon lets
	// config.Config.DynamicHorizonSeconds override it per run.
	horizon int
}

// NewTable returns an empty reservation table using the default horizon.
func NewTable() *Table {
	return NewTableWithHorizon(Horizon)
}

// NewTableWithHorizon returns an empty reservation table with a caller-set
// dynamic-conflict lookahead window.
func NewTableWithHorizon(horizon int) *Table {
	return &Table{
		cellOwner:   make(map[int]map[world.Pos]string),
		edgeOwner:   make(map[int]map[Edge]string),
		agvDeadline: make(map[string]int),
		horizon:     horizon,
	}
}

// ReserveCell claims cell c at second t for owner.
func (t *Table) ReserveCell(sec int, c world.Pos, owner string) {
	m, ok := t.cellOwner[sec]
	if !ok {
		m = make(map[world.Pos]string)
		t.cellOwner[sec] = m
	}
	m[c] = owner
}

// ReserveEdge claims the from->to transition during [sec, sec+1] for owner.
func (t *Table) ReserveEdge(sec int, from, to world.Pos, owner string) {
	m, ok := t.edgeOwner[sec]
	if !ok {
		m = make(map[Edge]string)
		t.edgeOwner[sec] = m
	}
	m[Edge{From: from, To: to}] = owner
}

// IsCellReserved reports whether cell c is owned by anyone at second sec.
func (t *Table) IsCellReserved(sec int, c world.Pos) bool {
	m, ok := t.cellOwner[sec]
	if !ok {
		return false
	}
	_, reserved := m[c]
	return reserved
}

// CellOwner returns the owning AGV id at (sec, c), or "" if unreserved.
func (t *Table) CellOwner(sec int, c world.Pos) string {
	m, ok := t.cellOwner[sec]
	if !ok {
		return ""
	}
	return m[c]
}

// IsEdgeReserved reports whether the from->to transition is claimed during
// second sec.
func (t *Table) IsEdgeReserved(sec int, from, to world.Pos) bool {
	m, ok := t.edgeOwner[sec]
	if !ok {
		return false
	}
	_, reserved := m[Edge{From: from, To: to}]
	return reserved
}

// LockSpot reserves cell c for every second in [fromT, fromT+duration], used
// to park a stationary AGV (e.g. during backoff or a queue wait) so no other
// AGV plans through its parking spot.
func (t *Table) LockSpot(c world.Pos, fromT, duration int, owner string) {
	for sec := fromT; sec <= fromT+duration; sec++ {
		t.ReserveCell(sec, c, owner)
	}
}

// NoteAGVTime records the AGV's current clock so Cleanup never drops
// entries the AGV itself might still need (spec.md §4.2 invariant).
func (t *Table) NoteAGVTime(agvID string, sec int) {
	if prev, ok := t.agvDeadline[agvID]; !ok || sec > prev {
		t.agvDeadline[agvID] = sec
	}
}

// Cleanup drops all entries older than currentTime-60s; when an AGV's
// recorded clock is at or before that cutoff, only seconds earlier than the
// lowest such clock are dropped (spec.md §4.2).
func (t *Table) Cleanup(currentTime int) {
	cutoff := currentTime - 60
	minKeep := cutoff
	for _, deadline := range t.agvDeadline {
		if deadline <= cutoff && deadline < minKeep {
			minKeep = deadline
		}
	}
	for sec := range t.cellOwner {
		if sec < minKeep {
			delete(t.cellOwner, sec)
		}
	}
	for sec := range t.edgeOwner {
		if sec < minKeep {
			delete(t.edgeOwner, sec)
		}
	}
}

// Horizon is the default dynamic-conflict lookahead window (spec.md §4.4):
// reservations further in the future than this are not honored by the
// pathfinder, which decouples per-call A* cost from simulation length.
const Horizon = 60

// WithinHorizon reports whether sec is within [now, now+horizon], honoring
// this table's configured horizon.
func (t *Table) WithinHorizon(now, sec int) bool {
	return sec >= now && sec <= now+t.horizon
}
