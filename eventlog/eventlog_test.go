package eventlog

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hsichihchen-design/agvsim/world"
)

func TestObjIDFormatting(t *testing.T) {
	Convey("Given object id helpers", t, func() {
		Convey("AGVObjID formats as AGV_<n>", func() {
			So(AGVObjID(3), ShouldEqual, "AGV_3")
		})

		Convey("StationObjID formats as WS_<id>", func() {
			So(StationObjID("A12"), ShouldEqual, "WS_A12")
		})
	})
}

func TestStationStatusText(t *testing.T) {
	Convey("Given a color, label, and delayed flag", t, func() {
		Convey("A non-delayed status encodes N", func() {
			text := StationStatusText(ColorBlue, "T1", false)
			So(text, ShouldEqual, "BLUE|T1|N")
		})

		Convey("A delayed status encodes Y", func() {
			text := StationStatusText(ColorGreen, "T2", true)
			So(text, ShouldEqual, "GREEN|T2|Y")
		})
	})
}

func TestClassifyWave(t *testing.T) {
	Convey("Given wave ids with and without a receiving marker", t, func() {
		Convey("A wave id containing RECEIVING classifies as inbound", func() {
			So(ClassifyWave("RECEIVING_2026-07-30"), ShouldEqual, Inbound)
		})

		Convey("Any other wave id classifies as outbound", func() {
			So(ClassifyWave("W1"), ShouldEqual, Outbound)
		})
	})
}

func TestCSVPos(t *testing.T) {
	Convey("CSVPos swaps row/col into column-major x,y", t, func() {
		p := world.Pos{Row: 4, Col: 7}
		x, y := CSVPos(p)
		So(x, ShouldEqual, 7)
		So(y, ShouldEqual, 4)
	})
}

func TestWriterRoundTrip(t *testing.T) {
	Convey("Given a Writer over in-memory buffers", t, func() {
		var eventsBuf, kpisBuf bytes.Buffer
		w, err := NewWriter(&eventsBuf, &kpisBuf)
		So(err, ShouldBeNil)

		Convey("Writing an event and a KPI then closing flushes both CSVs", func() {
			w.Event(Event{
				StartTS: 1, EndTS: 2, Floor: "2F", ObjID: "AGV_0",
				SX: 0, SY: 0, EX: 1, EY: 0, Type: AGVMove,
			})
			w.KPI(KPI{
				FinishTime: 100, Type: Outbound, WaveID: "W1",
				IsDelayed: true, Workstation: "WS_A1", TotalInWave: 5, DeadlineTS: 90,
			})
			w.Close()

			eventsOut := eventsBuf.String()
			So(strings.Contains(eventsOut, "AGV_0"), ShouldBeTrue)
			So(strings.Contains(eventsOut, "AGV_MOVE"), ShouldBeTrue)

			kpisOut := kpisBuf.String()
			So(strings.Contains(kpisOut, "W1"), ShouldBeTrue)
			So(strings.Contains(kpisOut, "Y"), ShouldBeTrue)
		})
	})
}
