// Package siminput loads the preprocessed SimInput bundle (spec.md §6) that
// the core simulator consumes: per-floor grids, station and shelf
// placements, and task queues. Loading is JSON-based; no example repo in
// the retrieval pack ships a warehouse-specific serialization format, so
// this uses encoding/json directly rather than reaching for a third-party
// codec (see DESIGN.md).
package siminput

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hsichihchen-design/agvsim/dispatch"
	"github.com/hsichihchen-design/agvsim/shelf"
	"github.com/hsichihchen-design/agvsim/world"
)

// StationSpec is one station's on-disk placement.
type StationSpec struct {
	ID  string `json:"id"`
	Row int    `json:"row"`
	Col int    `json:"col"`
}

// ShelfSpec is one shelf's initial placement.
type ShelfSpec struct {
	ID  string `json:"id"`
	Row int    `json:"row"`
	Col int    `json:"col"`
}

// TaskSpec is the on-disk shape of a single task (spec.md §3).
type TaskSpec struct {
	TaskID   string `json:"task_id"`
	ShelfID  string `json:"shelf_id"`
	WaveID   string `json:"wave_id"`
	DateTime int64  `json:"datetime"`
	Stops    []struct {
		Station        string `json:"station"`
		ProcessingTime int    `json:"processing_time"`
	} `json:"stops"`
	RawItems int `json:"raw_items"`
}

// FloorInput is one floor's fully prepared, in-memory input.
type FloorInput struct {
	Floor    string
	Grid     *world.Grid
	Shelves  *shelf.Layer
	Stations []StationSpec
	Tasks    []*dispatch.Task
	BaseTime int64
}

// floorFile is the on-disk bundle shape for a single floor.
type floorFile struct {
	Floor    string        `json:"floor"`
	Grid     [][]int       `json:"grid"`
	Stations []StationSpec `json:"stations"`
	Shelves  []ShelfSpec   `json:"shelves"`
	Tasks    []TaskSpec    `json:"tasks"`
	BaseTime int64         `json:"base_time"`
}

// ErrMissingInput is returned when a required file cannot be read (spec.md
// §7: "terminate with a diagnostic; the core refuses to run with stub
// data").
var ErrMissingInput = fmt.Errorf("siminput: missing input file")

// LoadFloor reads and validates one floor's bundle from a JSON file.
func LoadFloor(path string) (*FloorInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingInput, path, err)
	}

	var ff floorFile
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("siminput: %s: %w", path, err)
	}

	grid, err := world.NewGrid(ff.Floor, ff.Grid)
	if err != nil {
		return nil, fmt.Errorf("siminput: %s: %w", path, err)
	}

	shelves := shelf.NewLayer()
	for _, s := range ff.Shelves {
		shelves.Place(s.ID, world.Pos{Row: s.Row, Col: s.Col})
	}

	knownShelf := func(sid string) bool {
		_, ok := shelves.PosOf(sid)
		return ok
	}

	tasks := make([]*dispatch.Task, 0, len(ff.Tasks))
	for _, t := range ff.Tasks {
		if !knownShelf(t.ShelfID) {
			// Task references an unknown shelf; skip it (spec.md §7).
			continue
		}
		stops := make([]dispatch.Stop, 0, len(t.Stops))
		for _, s := range t.Stops {
			stops = append(stops, dispatch.Stop{Station: s.Station, ProcessingTime: s.ProcessingTime})
		}
		tasks = append(tasks, &dispatch.Task{
			TaskID:   t.TaskID,
			ShelfID:  t.ShelfID,
			WaveID:   t.WaveID,
			DateTime: t.DateTime,
			Stops:    stops,
			RawItems: t.RawItems,
		})
	}

	return &FloorInput{
		Floor:    ff.Floor,
		Grid:     grid,
		Shelves:  shelves,
		Stations: ff.Stations,
		Tasks:    tasks,
		BaseTime: ff.BaseTime,
	}, nil
}
