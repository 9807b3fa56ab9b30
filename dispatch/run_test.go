package dispatch

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRunFloors(t *testing.T) {
	Convey("Given two independent floor engines, each with one task", t, func() {
		e1 := oneStationEngine(&fakeSink{})
		e1.Enqueue(&Task{TaskID: "T1", ShelfID: "S1", Stops: []Stop{{Station: "A1", ProcessingTime: 5}}})
		e2 := oneStationEngine(&fakeSink{})
		e2.Enqueue(&Task{TaskID: "T2", ShelfID: "S1", Stops: []Stop{{Station: "A1", ProcessingTime: 5}}})

		Convey("RunFloors drives both to completion concurrently", func() {
			err := RunFloors([]*Engine{e1, e2})
			So(err, ShouldBeNil)
			So(e1.done(), ShouldBeTrue)
			So(e2.done(), ShouldBeTrue)
		})
	})

	Convey("Given no engines at all", t, func() {
		Convey("RunFloors returns immediately without error", func() {
			So(RunFloors(nil), ShouldBeNil)
		})
	})
}
