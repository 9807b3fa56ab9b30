package dispatch

import (
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hsichihchen-design/agvsim/shelf"
	"github.com/hsichihchen-design/agvsim/world"
)

func heuristicGrid() *world.Grid {
	// A 3x3 block of storage cells surrounded by aisle.
	g, err := world.NewGrid("2F", [][]int{
		{0, 0, 0, 0, 0},
		{0, 1, 1, 1, 0},
		{0, 1, 1, 1, 0},
		{0, 1, 1, 1, 0},
		{0, 0, 0, 0, 0},
	})
	if err != nil {
		panic(err)
	}
	return g
}

func TestRandomStorageCell(t *testing.T) {
	Convey("Given a grid with a block of storage cells", t, func() {
		e := &Engine{Grid: heuristicGrid(), Rand: rand.New(rand.NewSource(1))}

		Convey("randomStorageCell always lands on a storage cell", func() {
			for i := 0; i < 20; i++ {
				p := e.randomStorageCell()
				So(e.Grid.IsStorage(p), ShouldBeTrue)
			}
		})
	})
}

func TestCrowdDensity(t *testing.T) {
	Convey("Given a pool with AGVs clustered near one cell", t, func() {
		e := &Engine{Grid: heuristicGrid(), Rand: rand.New(rand.NewSource(1))}
		e.Pool = NewPool([]*AGV{
			{ID: "AGV_0", Pos: world.Pos{Row: 1, Col: 1}},
			{ID: "AGV_1", Pos: world.Pos{Row: 1, Col: 2}},
			{ID: "AGV_2", Pos: world.Pos{Row: 4, Col: 4}},
		})

		Convey("crowdDensity counts only AGVs within the radius", func() {
			n := e.crowdDensity(world.Pos{Row: 1, Col: 1})
			So(n, ShouldEqual, 2)
		})
	})
}

func TestIsIsland(t *testing.T) {
	Convey("Given a storage cell fully enclosed by occupied storage neighbors", t, func() {
		e := &Engine{Grid: heuristicGrid(), Rand: rand.New(rand.NewSource(1)), Shelves: shelf.NewLayer()}
		center := world.Pos{Row: 2, Col: 2}
		for _, nb := range e.Grid.Neighbors(center) {
			e.Shelves.Place("S-"+nb.Pos.String(), nb.Pos)
		}

		Convey("isIsland reports true", func() {
			So(e.isIsland(center), ShouldBeTrue)
		})
	})

	Convey("Given a storage cell with all neighbors free", t, func() {
		e := &Engine{Grid: heuristicGrid(), Rand: rand.New(rand.NewSource(1)), Shelves: shelf.NewLayer()}

		Convey("isIsland reports false", func() {
			So(e.isIsland(world.Pos{Row: 2, Col: 2}), ShouldBeFalse)
		})
	})
}

func TestSmartStorageTargetFindsFreeStorageCell(t *testing.T) {
	Convey("Given an engine with an empty shelf layer and one AGV", t, func() {
		e := &Engine{Grid: heuristicGrid(), Rand: rand.New(rand.NewSource(7)), Shelves: shelf.NewLayer()}
		e.Pool = NewPool([]*AGV{{ID: "AGV_0", Pos: world.Pos{Row: 0, Col: 0}}})
		agv := e.Pool.Get("AGV_0")

		Convey("It returns an unoccupied storage cell", func() {
			target := e.smartStorageTarget(agv)
			So(e.Grid.IsStorage(target), ShouldBeTrue)
			So(e.Shelves.Occupies(target), ShouldBeFalse)
		})
	})
}
