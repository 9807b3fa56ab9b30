package dispatch

// Stop is one stage of a task's itinerary (spec.md §3); this engine treats
// tasks as single-stop except where noted.
type Stop struct {
	Station        string
	ProcessingTime int
}

// Task is a unit of work generated by preprocessing and consumed by the
// dispatcher (spec.md §3, §6).
type Task struct {
	TaskID   string
	ShelfID  string
	WaveID   string
	DateTime int64
	Stops    []Stop
	RawItems int

	// SkipPickup/IsRetry/AssignedAGV are mutated in place by the dispatcher
	// when a loaded-mode BLOCKED forces the task back into its queue head
	// (spec.md §4.10.4.d).
	SkipPickup  bool
	IsRetry     bool
	AssignedAGV string
}

// RescueTask is the synthetic task spec.md §3 inserts at the head of the
// per-floor queue when a pickup or a loaded move is blocked by surrounding
// shelves.
type RescueTask struct {
	ShelfID string
}

// popRescue removes and returns the head of the rescue queue.
func (e *Engine) popRescue() (*RescueTask, bool) {
	if len(e.RescueQueue) == 0 {
		return nil, false
	}
	r := e.RescueQueue[0]
	e.RescueQueue = e.RescueQueue[1:]
	return r, true
}

// pushRescue inserts a rescue task at the head of the queue.
func (e *Engine) pushRescue(r *RescueTask) {
	e.RescueQueue = append([]*RescueTask{r}, e.RescueQueue...)
}

// requeueHead puts task back at the head of station sid's FIFO.
func (e *Engine) requeueHead(sid string, task *Task) {
	e.StationTasks[sid] = append([]*Task{task}, e.StationTasks[sid]...)
}
