package dispatch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRescueQueueHeadOps(t *testing.T) {
	Convey("Given an engine with an empty rescue queue", t, func() {
		e := &Engine{}

		Convey("popRescue on an empty queue reports not found", func() {
			_, ok := e.popRescue()
			So(ok, ShouldBeFalse)
		})

		Convey("pushRescue inserts at the head, most recent first", func() {
			e.pushRescue(&RescueTask{ShelfID: "S1"})
			e.pushRescue(&RescueTask{ShelfID: "S2"})

			first, ok := e.popRescue()
			So(ok, ShouldBeTrue)
			So(first.ShelfID, ShouldEqual, "S2")

			second, ok := e.popRescue()
			So(ok, ShouldBeTrue)
			So(second.ShelfID, ShouldEqual, "S1")
		})
	})
}

func TestRequeueHead(t *testing.T) {
	Convey("Given an engine with one station queue holding a task", t, func() {
		e := &Engine{StationTasks: map[string][]*Task{
			"A1": {{TaskID: "T2"}},
		}}

		Convey("requeueHead reinserts a task in front of the existing head", func() {
			e.requeueHead("A1", &Task{TaskID: "T1"})
			q := e.StationTasks["A1"]
			So(len(q), ShouldEqual, 2)
			So(q[0].TaskID, ShouldEqual, "T1")
			So(q[1].TaskID, ShouldEqual, "T2")
		})
	})
}
