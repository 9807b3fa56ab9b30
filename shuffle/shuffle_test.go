package shuffle

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hsichihchen-design/agvsim/reservation"
	"github.com/hsichihchen-design/agvsim/shelf"
	"github.com/hsichihchen-design/agvsim/world"
)

func TestCleanupManagerFIFO(t *testing.T) {
	Convey("Given an empty cleanup manager", t, func() {
		c := NewCleanupManager()

		Convey("Pop on an empty queue reports not found", func() {
			_, ok := c.Pop()
			So(ok, ShouldBeFalse)
		})

		Convey("Enqueued records pop out in FIFO order", func() {
			c.Enqueue(CleanupRecord{Sid: "S1"})
			c.Enqueue(CleanupRecord{Sid: "S2"})
			So(c.Len(), ShouldEqual, 2)

			first, ok := c.Pop()
			So(ok, ShouldBeTrue)
			So(first.Sid, ShouldEqual, "S1")

			second, ok := c.Pop()
			So(ok, ShouldBeTrue)
			So(second.Sid, ShouldEqual, "S2")
			So(c.Len(), ShouldEqual, 0)
		})
	})
}

// grid layout (0=aisle,1=storage,-1=wall):
//
//	col:  0  1  2  3  4
//	row0: 0  1  0  1  0
//	row1: 0  0  0  0  0
func shuffleGrid() *world.Grid {
	g, err := world.NewGrid("2F", [][]int{
		{0, 1, 0, 1, 0},
		{0, 0, 0, 0, 0},
	})
	if err != nil {
		panic(err)
	}
	return g
}

func TestShuffleRelocatesBlockingShelf(t *testing.T) {
	Convey("Given a goal adjacent to a shelf-occupied storage cell", t, func() {
		g := shuffleGrid()
		res := reservation.NewTable()
		shelves := shelf.NewLayer()
		shelves.Place("S1", world.Pos{Row: 0, Col: 1})
		cleanup := NewCleanupManager()
		mgr := &Manager{Grid: g, Res: res, Shelves: shelves}

		Convey("Shuffle evicts the shelf to a buffer cell and enqueues a cleanup record", func() {
			outcome, ok := mgr.Shuffle("AGV_1", world.Pos{Row: 1, Col: 0}, 0, world.Pos{Row: 1, Col: 1}, cleanup)
			So(ok, ShouldBeTrue)
			So(len(outcome.Events), ShouldEqual, 2)
			So(shelves.Occupies(world.Pos{Row: 0, Col: 1}), ShouldBeFalse)
			So(shelves.Occupies(outcome.Pos), ShouldBeTrue)
			So(cleanup.Len(), ShouldEqual, 1)

			rec, _ := cleanup.Pop()
			So(rec.Sid, ShouldEqual, "S1")
			So(rec.Blocker, ShouldResemble, world.Pos{Row: 0, Col: 1})
		})
	})
}

func TestShuffleNoBlockerFound(t *testing.T) {
	Convey("Given a goal with no adjacent shelf-occupied storage cell", t, func() {
		g := shuffleGrid()
		res := reservation.NewTable()
		shelves := shelf.NewLayer()
		cleanup := NewCleanupManager()
		mgr := &Manager{Grid: g, Res: res, Shelves: shelves}

		Convey("Shuffle reports failure without mutating any state", func() {
			_, ok := mgr.Shuffle("AGV_1", world.Pos{Row: 1, Col: 0}, 0, world.Pos{Row: 1, Col: 1}, cleanup)
			So(ok, ShouldBeFalse)
			So(cleanup.Len(), ShouldEqual, 0)
		})
	})
}
