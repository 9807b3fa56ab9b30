// Package monitor implements the engine's optional live debug surface
// (SPEC_FULL.md §2.4): a /healthz and /metrics HTTP surface plus an /events
// websocket tee of the event stream. It is explicitly NOT the downstream
// visualization consumer spec.md §1 excludes — that's an offline consumer
// of the CSV log; this is an ambient operability surface, off by default.
//
// Routing follows gorilla/mux; the websocket ping/pong keepalive is
// grounded on the teacher's server.Server (tabular/server/server.go).
package monitor

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"

	"github.com/hsichihchen-design/agvsim/eventlog"
	"github.com/hsichihchen-design/agvsim/internal/xatomic"
)

const (
	writeWait      = 1 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Counters tracks the per-reason FORCE_TELE tally spec.md §7 requires
// ("increment a per-reason counter in the monitor") plus a running KPI
// tally. The KPI fields use internal/xatomic so Server.KPI (called from the
// dispatcher's hot path) never blocks on the same mutex the event tee holds.
type Counters struct {
	mu           sync.Mutex
	teleByReason map[eventlog.TeleReason]int
	eventsSeen   int64

	kpisSeen     *xatomic.Int64
	kpisDelayed  *xatomic.Int64
	delaySeconds *xatomic.Float64
}

func NewCounters() *Counters {
	return &Counters{
		teleByReason: make(map[eventlog.TeleReason]int),
		kpisSeen:     xatomic.NewInt64(0),
		kpisDelayed:  xatomic.NewInt64(0),
		delaySeconds: xatomic.NewFloat64(0),
	}
}

func (c *Counters) observe(e eventlog.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eventsSeen++
	if e.Type == eventlog.ForceTele {
		c.teleByReason[eventlog.TeleReason(e.Text)]++
	}
}

// observeKPI tallies a finished task for /metrics: count, delayed count, and
// a running sum of delay seconds (finish - deadline) for delayed tasks,
// which snapshot divides into an average.
func (c *Counters) observeKPI(k eventlog.KPI) {
	c.kpisSeen.Add(1)
	if k.IsDelayed {
		c.kpisDelayed.Add(1)
		c.delaySeconds.Add(float64(k.FinishTime - k.DeadlineTS))
	}
}

func (c *Counters) snapshot() map[string]interface{} {
	c.mu.Lock()
	eventsSeen := c.eventsSeen
	byReason := make(map[string]int, len(c.teleByReason))
	for k, v := range c.teleByReason {
		byReason[string(k)] = v
	}
	c.mu.Unlock()

	kpisDelayed := c.kpisDelayed.Load()
	var avgDelay float64
	if kpisDelayed > 0 {
		avgDelay = c.delaySeconds.Load() / float64(kpisDelayed)
	}
	return map[string]interface{}{
		"events_seen":          eventsSeen,
		"force_tele_by_reason": byReason,
		"kpis_seen":            c.kpisSeen.Load(),
		"kpis_delayed":         kpisDelayed,
		"avg_delay_seconds":    avgDelay,
	}
}

// Server is the monitor HTTP surface. It wraps an eventlog.Sink, forwarding
// every call through unchanged while also teeing events to connected
// websocket clients and updating Counters — disk output is unaffected by
// whether anyone is watching.
type Server struct {
	inner    eventlog.Sink
	counters *Counters

	mu      sync.Mutex
	clients map[*websocket.Conn]chan eventlog.Event

	router *mux.Router
}

// NewServer wraps inner, the real CSV-backed sink, with a teeing layer and
// builds the mux router for /healthz, /metrics, and /events.
func NewServer(inner eventlog.Sink) *Server {
	s := &Server{
		inner:    inner,
		counters: NewCounters(),
		clients:  make(map[*websocket.Conn]chan eventlog.Event),
	}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/events", s.handleEvents)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Event implements eventlog.Sink: forward to inner, tee to websocket
// clients, update counters.
func (s *Server) Event(e eventlog.Event) {
	s.inner.Event(e)
	s.counters.observe(e)

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, ch := range s.clients {
		select {
		case ch <- e:
		default:
			// Slow client; drop rather than block the simulation's hot path.
			_ = conn
		}
	}
}

// KPI implements eventlog.Sink: forward to inner, then tally into Counters.
// KPIs are not teed to websocket clients — /events streams the spatial
// event stream only.
func (s *Server) KPI(k eventlog.KPI) {
	s.inner.KPI(k)
	s.counters.observeKPI(k)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.counters.snapshot())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("monitor: upgrade:", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ch := make(chan eventlog.Event, 64)
	s.mu.Lock()
	s.clients[conn] = ch
	s.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	// channerics.NewTicker ties the ping cadence to this connection's done
	// channel instead of a bare time.Ticker, grounded on the teacher's
	// publishEleUpdates (tabular/server/server.go).
	pings := channerics.NewTicker(done, pingPeriod)

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-pings:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
