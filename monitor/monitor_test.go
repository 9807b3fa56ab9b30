package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hsichihchen-design/agvsim/eventlog"
)

// fakeSink is a minimal eventlog.Sink fixture recording what passes through it.
type fakeSink struct {
	events []eventlog.Event
	kpis   []eventlog.KPI
}

func (f *fakeSink) Event(e eventlog.Event) { f.events = append(f.events, e) }
func (f *fakeSink) KPI(k eventlog.KPI)      { f.kpis = append(f.kpis, k) }

func TestServerHealthz(t *testing.T) {
	Convey("Given a monitor server wrapping a fake sink", t, func() {
		inner := &fakeSink{}
		s := NewServer(inner)

		Convey("GET /healthz returns 200", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestServerEventPassThroughAndCounters(t *testing.T) {
	Convey("Given a monitor server wrapping a fake sink", t, func() {
		inner := &fakeSink{}
		s := NewServer(inner)

		Convey("Event forwards to the inner sink and updates counters", func() {
			s.Event(eventlog.Event{Type: eventlog.AGVMove, ObjID: "AGV_0"})
			s.Event(eventlog.Event{Type: eventlog.ForceTele, Text: string(eventlog.TeleDeadlock)})
			So(len(inner.events), ShouldEqual, 2)

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			So(rec.Code, ShouldEqual, http.StatusOK)

			var body map[string]interface{}
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(body["events_seen"], ShouldEqual, float64(2))
		})

		Convey("KPI passes through and updates the KPI counters without touching event counters", func() {
			s.KPI(eventlog.KPI{WaveID: "W1", FinishTime: 100, DeadlineTS: 90, IsDelayed: true})
			s.KPI(eventlog.KPI{WaveID: "W2", FinishTime: 50, DeadlineTS: 90, IsDelayed: false})
			So(len(inner.kpis), ShouldEqual, 2)

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			var body map[string]interface{}
			So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
			So(body["events_seen"], ShouldEqual, float64(0))
			So(body["kpis_seen"], ShouldEqual, float64(2))
			So(body["kpis_delayed"], ShouldEqual, float64(1))
			So(body["avg_delay_seconds"], ShouldEqual, float64(10))
		})
	})
}
