package dispatch

import "github.com/hsichihchen-design/agvsim/world"

// parkingFastAttempts mirrors the original ParkingManager's random-sampling
// pass before it falls back to a linear scan
// (step4_full_simulation.py: ParkingManager.get_fast_parking_spot).
const parkingFastAttempts = 50

// parkingSpot returns a storage cell holding neither a shelf nor an AGV, for
// a freshly-unloaded AGV to idle on (spec.md §3's PARKING event). Mirrors
// the original's two-phase pick: a handful of random tries against
// StorageCells, falling back to a deterministic linear scan so a spot is
// still found when the floor is nearly full.
func (e *Engine) parkingSpot() (world.Pos, bool) {
	if len(e.StorageCells) == 0 {
		return world.Pos{}, false
	}

	free := func(p world.Pos) bool {
		if e.Shelves.Occupies(p) {
			return false
		}
		_, occupied := e.Pool.AGVAt(p)
		return !occupied
	}

	for i := 0; i < parkingFastAttempts; i++ {
		cand := e.StorageCells[e.Rand.Intn(len(e.StorageCells))]
		if free(cand) {
			return cand, true
		}
	}
	for _, cand := range e.StorageCells {
		if free(cand) {
			return cand, true
		}
	}
	return world.Pos{}, false
}
