package dispatch

import "github.com/hsichihchen-design/agvsim/world"

const smartStorageCandidates = 30
const crowdRadius = 2
const crowdWeight = 20
const islandPenalty = 1000
const islandWallThreshold = 3

// smartStorageTarget implements spec.md §4.10.h: sample candidate storage
// cells and pick the one minimizing distance + crowd density + island
// penalty + jitter. Falls back to the AGV's current cell if the floor has
// no free storage cell at all (should not happen on a sane input).
func (e *Engine) smartStorageTarget(agv *AGV) world.Pos {
	best := agv.Pos
	bestScore := -1.0
	tried := 0

	for i := 0; i < smartStorageCandidates*4 && tried < smartStorageCandidates; i++ {
		cand := e.randomStorageCell()
		if e.Shelves.Occupies(cand) {
			continue
		}
		if _, occupied := e.Pool.AGVAt(cand); occupied {
			continue
		}
		tried++

		dist := float64(world.Manhattan(agv.Pos, cand))
		crowd := float64(e.crowdDensity(cand))
		island := 0.0
		if e.isIsland(cand) {
			island = islandPenalty
		}
		jitter := e.Rand.Float64()
		score := dist + crowdWeight*crowd + island + jitter

		if bestScore < 0 || score < bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

// randomStorageCell samples a uniformly random in-bounds cell and retries
// until it lands on a storage cell; the grid is small enough (<=32x61) that
// rejection sampling is cheap.
func (e *Engine) randomStorageCell() world.Pos {
	for {
		p := world.Pos{Row: e.Rand.Intn(e.Grid.Rows()), Col: e.Rand.Intn(e.Grid.Cols())}
		if e.Grid.IsStorage(p) {
			return p
		}
	}
}

// crowdDensity counts AGVs within Manhattan radius crowdRadius of p.
func (e *Engine) crowdDensity(p world.Pos) int {
	n := 0
	for _, a := range e.Pool.All() {
		if world.Manhattan(a.Pos, p) <= crowdRadius {
			n++
		}
	}
	return n
}

// isIsland reports whether >= islandWallThreshold of p's orthogonal
// neighbors are walls or shelf-occupied storage cells.
func (e *Engine) isIsland(p world.Pos) bool {
	blocked := 0
	for _, nb := range e.Grid.Neighbors(p) {
		if !e.Grid.IsPassable(nb.Pos) {
			blocked++
			continue
		}
		if e.Grid.IsStorage(nb.Pos) && e.Shelves.Occupies(nb.Pos) {
			blocked++
		}
	}
	return blocked >= islandWallThreshold
}
