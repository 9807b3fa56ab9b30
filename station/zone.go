package station

import "github.com/hsichihchen-design/agvsim/internal/xatomic"

// QueueCapacity is the soft admission ceiling used by the dispatcher before
// a task is allowed to target a station (spec.md §4.8).
const QueueCapacity = 3

// ZoneCapacity is en_route + occupied's hard ceiling (queue depth plus one
// processing slot): 3 + 1 = 4 (spec.md §8 invariant 3).
const ZoneCapacity = 4

// ZoneManager is the per-station soft admission counter. Counters are
// xatomic.Int64 values (see SPEC_FULL.md §3); the monitor's /metrics does
// not report ZM state.
type ZoneManager struct {
	enRoute  *xatomic.Int64
	occupied *xatomic.Int64
}

func NewZoneManager() *ZoneManager {
	return &ZoneManager{
		enRoute:  xatomic.NewInt64(0),
		occupied: xatomic.NewInt64(0),
	}
}

// Reserve increments en_route: a task has been assigned to this station but
// the AGV has not yet entered its physical queue.
func (z *ZoneManager) Reserve() {
	z.enRoute.Add(1)
}

// Release undoes a Reserve without the AGV ever entering the queue (used
// when a rescue rolls a task selection back).
func (z *ZoneManager) Release() {
	if z.enRoute.Load() > 0 {
		z.enRoute.Add(-1)
	}
}

// Enter decrements en_route (floored at 0) and increments occupied: the AGV
// has physically entered the station's queue.
func (z *ZoneManager) Enter() {
	if z.enRoute.Load() > 0 {
		z.enRoute.Add(-1)
	}
	z.occupied.Add(1)
}

// Exit decrements occupied: the AGV has departed the station.
func (z *ZoneManager) Exit() {
	if z.occupied.Load() > 0 {
		z.occupied.Add(-1)
	}
}

// TotalLoad is en_route + occupied.
func (z *ZoneManager) TotalLoad() int64 {
	return z.enRoute.Load() + z.occupied.Load()
}

// Admits reports whether total_load < QueueCapacity (spec.md §4.8
// admission rule).
func (z *ZoneManager) Admits() bool {
	return z.TotalLoad() < QueueCapacity
}
