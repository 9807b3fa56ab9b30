package traffic

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hsichihchen-design/agvsim/reservation"
	"github.com/hsichihchen-design/agvsim/world"
)

// fakeLocator is a minimal AGVLocator fixture, in the teacher's stub-struct
// testing style (tabular/server/fastview/fastview_test.go).
type fakeLocator struct {
	at map[world.Pos]string
}

func newFakeLocator() *fakeLocator {
	return &fakeLocator{at: make(map[world.Pos]string)}
}

func (f *fakeLocator) place(id string, p world.Pos) { f.at[p] = id }

func (f *fakeLocator) AGVAt(pos world.Pos) (string, bool) {
	id, ok := f.at[pos]
	return id, ok
}

func (f *fakeLocator) Reposition(id string, to world.Pos) {
	for p, v := range f.at {
		if v == id {
			delete(f.at, p)
		}
	}
	f.at[to] = id
}

func openGrid(rows, cols int) *world.Grid {
	cells := make([][]int, rows)
	for r := range cells {
		cells[r] = make([]int, cols)
	}
	g, _ := world.NewGrid("2F", cells)
	return g
}

func TestNudgeNoBlocker(t *testing.T) {
	Convey("Given an empty corridor with no AGV between cur and goal", t, func() {
		g := openGrid(1, 10)
		res := reservation.NewTable()
		loc := newFakeLocator()

		Convey("Nudge reports no move", func() {
			result := Nudge(g, res, loc, world.Pos{Row: 0, Col: 0}, world.Pos{Row: 0, Col: 5}, 0, "AGV_requester")
			So(result.Moved, ShouldBeFalse)
		})
	})
}

func TestNudgeWithBlocker(t *testing.T) {
	Convey("Given a blocker AGV sitting between cur and goal, with open space around it", t, func() {
		g := openGrid(5, 10)
		res := reservation.NewTable()
		loc := newFakeLocator()
		loc.place("AGV_blocker", world.Pos{Row: 0, Col: 1})

		Convey("Nudge relocates the blocker to a free sanctuary cell and reserves it", func() {
			result := Nudge(g, res, loc, world.Pos{Row: 0, Col: 0}, world.Pos{Row: 0, Col: 5}, 0, "AGV_requester")
			So(result.Moved, ShouldBeTrue)
			So(result.Blocker, ShouldEqual, "AGV_blocker")
			So(result.Sanctuary, ShouldNotResemble, world.Pos{Row: 0, Col: 1})

			newID, ok := loc.AGVAt(result.Sanctuary)
			So(ok, ShouldBeTrue)
			So(newID, ShouldEqual, "AGV_blocker")

			So(res.IsCellReserved(0, result.Sanctuary), ShouldBeTrue)
		})
	})
}

func TestNudgeNoSanctuaryAvailable(t *testing.T) {
	Convey("Given a blocker whose only neighbor is the requester's own cell, walled in otherwise", t, func() {
		g, _ := world.NewGrid("2F", [][]int{
			{-1, -1, -1, -1},
			{-1, 0, 0, -1},
			{-1, -1, -1, -1},
		})
		res := reservation.NewTable()
		loc := newFakeLocator()
		loc.place("AGV_requester", world.Pos{Row: 1, Col: 1})
		loc.place("AGV_blocker", world.Pos{Row: 1, Col: 2})

		Convey("Nudge identifies the blocker but cannot relocate it", func() {
			result := Nudge(g, res, loc, world.Pos{Row: 1, Col: 1}, world.Pos{Row: 1, Col: 3}, 0, "AGV_requester")
			So(result.Moved, ShouldBeFalse)
			So(result.Blocker, ShouldEqual, "AGV_blocker")
		})
	})
}
