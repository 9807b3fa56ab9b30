package dispatch

import "github.com/hsichihchen-design/agvsim/world"

// AGV is one vehicle's mutable state (spec.md §3): its floor is implicit in
// which Engine owns it, since floors never share AGVs.
type AGV struct {
	ID       string
	Pos      world.Pos
	Dir      world.Dir
	Time     int    // earliest time this AGV is free
	Carrying string // shelf_id, "" when empty
}

// Pool is the per-floor set of AGVs, indexed both by id and by current
// position. It implements traffic.AGVLocator so the traffic controller can
// query and reposition AGVs without importing this package.
type Pool struct {
	byID  map[string]*AGV
	order []string // deterministic id order, for tie-break and iteration
}

// NewPool builds a pool from an ordered AGV list; order is preserved for
// deterministic least-recently-busy tie-breaks.
func NewPool(agvs []*AGV) *Pool {
	p := &Pool{byID: make(map[string]*AGV, len(agvs)), order: make([]string, 0, len(agvs))}
	for _, a := range agvs {
		p.byID[a.ID] = a
		p.order = append(p.order, a.ID)
	}
	return p
}

// Get returns the AGV by id.
func (p *Pool) Get(id string) *AGV { return p.byID[id] }

// AGVAt implements traffic.AGVLocator: the id of whichever AGV currently
// sits at pos, if any.
func (p *Pool) AGVAt(pos world.Pos) (string, bool) {
	for _, id := range p.order {
		if p.byID[id].Pos == pos {
			return id, true
		}
	}
	return "", false
}

// Reposition implements traffic.AGVLocator: instantly moves an AGV in the
// state model (used by the traffic controller's nudge).
func (p *Pool) Reposition(id string, to world.Pos) {
	if a, ok := p.byID[id]; ok {
		a.Pos = to
	}
}

// LeastRecentlyBusy returns the AGV with the smallest Time field, ties
// broken by id order (spec.md §4.10 step 2).
func (p *Pool) LeastRecentlyBusy() *AGV {
	var best *AGV
	for _, id := range p.order {
		a := p.byID[id]
		if best == nil || a.Time < best.Time {
			best = a
		}
	}
	return best
}

// All returns every AGV in deterministic order, used by the smart storage
// heuristic's crowd-density scan.
func (p *Pool) All() []*AGV {
	out := make([]*AGV, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.byID[id])
	}
	return out
}
