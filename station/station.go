// Package station implements the Physical Queue Manager (C7, spec.md §4.7)
// and the Zone Manager (C8, spec.md §4.8): per-station physical queue cells
// and the soft admission counter gating entry into them.
package station

import "github.com/hsichihchen-design/agvsim/world"

// NumSlots is the fixed physical queue depth per station.
const NumSlots = 3

// mainAisleSplitCol is the column threshold used at init to decide which
// side of the main aisle a station's queue cells extend toward (spec.md
// §4.7: "determined at init from column <= 30 vs > 30"). This is a modeling
// choice the spec leaves as a fixed constant rather than reading it from
// the map; see DESIGN.md.
const mainAisleSplitCol = 30

// PQM is the per-station physical queue manager.
type PQM struct {
	ID    string
	Pos   world.Pos // the processing cell
	Slots [NumSlots]world.Pos
	Exits [2]world.Pos

	occupants     [NumSlots]string // "" means empty
	processing    string           // "" means empty
	stationFreeAt int
	slotFreeAt    [NumSlots]int
}

// NewPQM lays out the three queue cells and two exits relative to the
// station's processing cell, choosing +col or -col direction depending on
// which side of the main aisle the station sits on.
func NewPQM(id string, pos world.Pos) *PQM {
	dir := 1
	if pos.Col > mainAisleSplitCol {
		dir = -1
	}
	p := &PQM{ID: id, Pos: pos}
	for i := 0; i < NumSlots; i++ {
		p.Slots[i] = world.Pos{Row: pos.Row, Col: pos.Col + dir*(i+1)}
		p.slotFreeAt[i] = 0
	}
	p.Exits[0] = world.Pos{Row: p.Slots[0].Row - 1, Col: p.Slots[0].Col}
	p.Exits[1] = world.Pos{Row: p.Slots[0].Row + 1, Col: p.Slots[0].Col}
	return p
}

// HasVacancy reports occupants[2] == nil (spec.md §4.7).
func (p *PQM) HasVacancy() bool {
	return p.occupants[NumSlots-1] == ""
}

const infiniteHold = 1 << 30

// AllocateSlot finds the deepest free slot (highest idx), assigns it to agv,
// holds it (slot_free_at = +inf until the AGV actually departs it), and
// returns the earliest time the AGV may occupy it.
//
// Preferring the deepest slot ensures FIFO progression (spec.md §4.7).
func (p *PQM) AllocateSlot(agv string, now int) (slot world.Pos, availableAt int, idx int, ok bool) {
	for i := NumSlots - 1; i >= 0; i-- {
		if p.occupants[i] != "" {
			continue
		}
		p.occupants[i] = agv
		at := now
		if p.slotFreeAt[i] > at {
			at = p.slotFreeAt[i]
		}
		p.slotFreeAt[i] = infiniteHold
		return p.Slots[i], at, i, true
	}
	return world.Pos{}, 0, 0, false
}

// AdvanceSlot moves agv from its current slot index toward the station. At
// idx 0 the target is the processing cell itself; otherwise it is the next
// shallower slot. The previous slot is released moveDur seconds after the
// advance starts (spec.md §4.7).
func (p *PQM) AdvanceSlot(agv string, curIdx, now, moveDur int) (next world.Pos, startTime int, newIdx int, isProcessing bool) {
	if curIdx == 0 {
		startTime = now
		if p.stationFreeAt > startTime {
			startTime = p.stationFreeAt
		}
		p.slotFreeAt[0] = startTime + moveDur
		p.occupants[0] = ""
		p.processing = agv
		return p.Pos, startTime, -1, true
	}

	targetIdx := curIdx - 1
	startTime = now
	if p.slotFreeAt[targetIdx] > startTime {
		startTime = p.slotFreeAt[targetIdx]
	}
	p.occupants[curIdx] = ""
	p.occupants[targetIdx] = agv
	p.slotFreeAt[curIdx] = startTime + moveDur
	p.slotFreeAt[targetIdx] = infiniteHold
	return p.Slots[targetIdx], startTime, targetIdx, false
}

// ProcessFinished marks the station's processing cell free from finishTime
// onward and clears the processing occupant if it still matches agv.
func (p *PQM) ProcessFinished(agv string, finishTime int) {
	p.stationFreeAt = finishTime
	if p.processing == agv {
		p.processing = ""
	}
}

// ReleaseStation clears the processing occupant if it matches agv, called
// once the AGV has physically departed the processing cell.
func (p *PQM) ReleaseStation(agv string) {
	if p.processing == agv {
		p.processing = ""
	}
}

// ReleaseSlot frees a held slot without advancing (used when a task is
// rolled back mid-macro-script, e.g. a BLOCKED rescue while loaded).
func (p *PQM) ReleaseSlot(idx int) {
	if idx < 0 || idx >= NumSlots {
		return
	}
	p.occupants[idx] = ""
	p.slotFreeAt[idx] = 0
}

// StationFreeAt returns the earliest the processing cell is available.
func (p *PQM) StationFreeAt() int { return p.stationFreeAt }
