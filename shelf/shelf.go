// Package shelf tracks the dynamic shelf layer per floor: which storage
// cells currently hold a shelf and the bidirectional shelf<->cell mapping
// (spec.md §3, §4.3). Mutations happen only during SHELF_* and SHUFFLE_*
// events, always through MoveShelf or the paired Remove/Add, each of which
// updates both mirrored maps together so they cannot drift apart.
package shelf

import (
	"fmt"

	"github.com/hsichihchen-design/agvsim/world"
)

// Layer is the per-floor dynamic shelf layer.
type Layer struct {
	posOf map[string]world.Pos // shelf_id -> cell
	sidAt map[world.Pos]string // cell -> shelf_id
}

// NewLayer returns an empty shelf layer.
func NewLayer() *Layer {
	return &Layer{
		posOf: make(map[string]world.Pos),
		sidAt: make(map[world.Pos]string),
	}
}

// Place performs the initial, unchecked placement of a shelf at load time
// (spec.md §6 SimInput.shelf_coords); it predates any SHUFFLE/SHELF event so
// it bypasses the move invariant checks MoveShelf enforces.
func (l *Layer) Place(sid string, at world.Pos) {
	l.posOf[sid] = at
	l.sidAt[at] = sid
}

// Occupies reports whether cell c currently holds a shelf.
func (l *Layer) Occupies(c world.Pos) bool {
	_, ok := l.sidAt[c]
	return ok
}

// SidAt returns the shelf id occupying cell c, if any.
func (l *Layer) SidAt(c world.Pos) (string, bool) {
	sid, ok := l.sidAt[c]
	return sid, ok
}

// PosOf returns the current cell of shelf sid.
func (l *Layer) PosOf(sid string) (world.Pos, bool) {
	p, ok := l.posOf[sid]
	return p, ok
}

// ErrOccupied is returned by MoveShelf when the destination cell already
// holds a different shelf.
var ErrOccupied = fmt.Errorf("shelf: destination cell already occupied")

// ErrNotFound is returned by MoveShelf when sid has no recorded position.
var ErrNotFound = fmt.Errorf("shelf: unknown shelf id")

// MoveShelf atomically mutates the mirrored position/occupancy maps,
// enforcing the invariant from spec.md §4.3: after the call,
// posOf[sid] == to, from is vacated, to is occupied by sid.
func (l *Layer) MoveShelf(sid string, from, to world.Pos) error {
	cur, ok := l.posOf[sid]
	if !ok {
		return ErrNotFound
	}
	if cur != from {
		return fmt.Errorf("shelf: %s is at %v, not %v", sid, cur, from)
	}
	if occ, ok := l.sidAt[to]; ok && occ != sid {
		return ErrOccupied
	}
	delete(l.sidAt, from)
	l.sidAt[to] = sid
	l.posOf[sid] = to
	return nil
}

// Remove deletes sid from both mirrored maps, used at SHELF_LOAD time: the
// shelf is being carried and briefly has no resting cell until the paired
// Add call at SHELF_UNLOAD (spec.md §5: "a paired add/remove", distinct from
// the atomic MoveShelf used by a shuffle).
func (l *Layer) Remove(sid string) (world.Pos, bool) {
	pos, ok := l.posOf[sid]
	if !ok {
		return world.Pos{}, false
	}
	delete(l.posOf, sid)
	delete(l.sidAt, pos)
	return pos, true
}

// Add reinserts sid at cell, the other half of the SHELF_LOAD/SHELF_UNLOAD
// pair started by Remove.
func (l *Layer) Add(sid string, at world.Pos) {
	l.posOf[sid] = at
	l.sidAt[at] = sid
}

// Count returns the number of tracked shelves, used by the invariant test
// that the live-shelf multiset never changes size (spec.md §3 invariant 5).
func (l *Layer) Count() int {
	return len(l.posOf)
}

// Snapshot returns a defensive copy of the shelf->cell map, for invariant
// checks in tests.
func (l *Layer) Snapshot() map[string]world.Pos {
	out := make(map[string]world.Pos, len(l.posOf))
	for k, v := range l.posOf {
		out[k] = v
	}
	return out
}
