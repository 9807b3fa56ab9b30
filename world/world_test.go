package world

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func smallGrid() *Grid {
	g, err := NewGrid("2F", [][]int{
		{0, 0, 0},
		{0, -1, 0},
		{0, 0, 1},
	})
	if err != nil {
		panic(err)
	}
	return g
}

func TestNewGrid(t *testing.T) {
	Convey("Given raw cell values", t, func() {
		Convey("A well-formed rectangular grid is accepted", func() {
			g, err := NewGrid("2F", [][]int{{0, 1}, {2, -1}})
			So(err, ShouldBeNil)
			So(g.Rows(), ShouldEqual, 2)
			So(g.Cols(), ShouldEqual, 2)
		})

		Convey("A jagged grid is rejected", func() {
			_, err := NewGrid("2F", [][]int{{0, 1}, {2}})
			So(err, ShouldEqual, ErrCorruptGrid)
		})

		Convey("An out-of-range cell value is rejected", func() {
			_, err := NewGrid("2F", [][]int{{0, 5}})
			So(err, ShouldEqual, ErrCorruptGrid)
		})

		Convey("An empty grid is rejected", func() {
			_, err := NewGrid("2F", nil)
			So(err, ShouldEqual, ErrCorruptGrid)
		})

		Convey("A grid exceeding MaxRows is rejected", func() {
			rows := make([][]int, MaxRows+1)
			for i := range rows {
				rows[i] = []int{0}
			}
			_, err := NewGrid("2F", rows)
			So(err, ShouldEqual, ErrCorruptGrid)
		})
	})
}

func TestGridClassification(t *testing.T) {
	Convey("Given a small mixed grid", t, func() {
		g := smallGrid()

		Convey("Wall cells are not passable", func() {
			So(g.IsPassable(Pos{Row: 1, Col: 1}), ShouldBeFalse)
		})

		Convey("Aisle cells are passable but not storage or station", func() {
			p := Pos{Row: 0, Col: 0}
			So(g.IsPassable(p), ShouldBeTrue)
			So(g.IsStorage(p), ShouldBeFalse)
			So(g.IsStation(p), ShouldBeFalse)
		})

		Convey("Storage cells report IsStorage", func() {
			So(g.IsStorage(Pos{Row: 2, Col: 2}), ShouldBeTrue)
		})

		Convey("Out-of-bounds cells are treated as walls", func() {
			So(g.IsPassable(Pos{Row: -1, Col: 0}), ShouldBeFalse)
			So(g.IsPassable(Pos{Row: 99, Col: 99}), ShouldBeFalse)
		})
	})
}

func TestConnected(t *testing.T) {
	Convey("Given a grid split by a wall column", t, func() {
		g, _ := NewGrid("2F", [][]int{
			{0, -1, 0},
			{0, -1, 0},
		})

		Convey("Cells on the same side are connected", func() {
			So(g.Connected(Pos{0, 0}, Pos{1, 0}), ShouldBeTrue)
		})

		Convey("Cells separated by the wall are not connected", func() {
			So(g.Connected(Pos{0, 0}, Pos{0, 2}), ShouldBeFalse)
		})

		Convey("A wall cell is never connected to anything", func() {
			So(g.Connected(Pos{0, 1}, Pos{0, 1}), ShouldBeFalse)
		})
	})
}

func TestDirAndManhattan(t *testing.T) {
	Convey("Step and Opposite are inverses", t, func() {
		p := Pos{Row: 3, Col: 3}
		for _, d := range []Dir{East, South, West, North} {
			moved := p.Step(d)
			back := moved.Step(Opposite(d))
			So(back, ShouldResemble, p)
		}
	})

	Convey("Manhattan distance is symmetric and zero for equal points", t, func() {
		a := Pos{Row: 1, Col: 2}
		b := Pos{Row: 4, Col: 6}
		So(Manhattan(a, b), ShouldEqual, Manhattan(b, a))
		So(Manhattan(a, a), ShouldEqual, 0)
	})
}
