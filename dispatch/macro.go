package dispatch

import (
	"time"

	"github.com/hsichihchen-design/agvsim/eventlog"
	"github.com/hsichihchen-design/agvsim/mover"
)

const shelfLoadDuration = 5
const advanceMoveDur = 5

// emit forwards every event produced by a Move call to the sink.
func (e *Engine) emit(events []eventlog.Event) {
	for _, ev := range events {
		e.Sink.Event(ev)
	}
}

// applyOutcome folds a committed Move outcome back into the AGV's state.
func applyOutcome(agv *AGV, outcome mover.Outcome) {
	agv.Pos = outcome.Pos
	agv.Time = outcome.Time
	agv.Dir = outcome.Dir
}

// runTask executes the normal-task macro-script (spec.md §4.10 step 4).
func (e *Engine) runTask(agv *AGV, sid string, task *Task) {
	stop := task.Stops[0]

	if !task.SkipPickup {
		shelfPos, ok := e.Shelves.PosOf(task.ShelfID)
		if !ok {
			// Task references an unknown shelf; drop it (spec.md §7).
			return
		}
		outcome, err := e.Mover.Move(mover.Request{
			AgvID: agv.ID, Cur: agv.Pos, Time: agv.Time, Dir: agv.Dir,
			Target: shelfPos, IsLoaded: false, Locator: e.Pool,
		})
		if blocked, isBlocked := err.(*mover.Blocked); isBlocked {
			e.handlePickupBlocked(agv, sid, task, blocked)
			return
		}
		e.emit(outcome.Events)
		applyOutcome(agv, outcome)

		agv.Carrying = task.ShelfID
		e.Shelves.Remove(task.ShelfID)
		sx, sy := eventlog.CSVPos(agv.Pos)
		e.Sink.Event(eventlog.Event{
			StartTS: int64(agv.Time), EndTS: int64(agv.Time), Floor: e.Floor,
			ObjID: agv.ID, SX: sx, SY: sy, EX: sx, EY: sy,
			Type: eventlog.ShelfLoad, Text: task.ShelfID,
		})
		agv.Time += shelfLoadDuration
	}

	e.ZMs[sid].Enter()
	pqm := e.PQMs[sid]
	slotCell, availAt, idx, ok := pqm.AllocateSlot(agv.ID, agv.Time)
	if !ok {
		// No vacancy; park and retry the whole outer loop later. The shelf
		// stays on this AGV, so the retry skips pickup, and the Enter above
		// is rolled back to the pre-allocation en_route reservation.
		task.SkipPickup = true
		task.IsRetry = true
		task.AssignedAGV = agv.ID
		e.ZMs[sid].Exit()
		e.ZMs[sid].Reserve()
		e.requeueHead(sid, task)
		agv.Time += parkWait
		return
	}
	if availAt > agv.Time {
		agv.Time = availAt
	}

	outcome, err := e.Mover.Move(mover.Request{
		AgvID: agv.ID, Cur: agv.Pos, Time: agv.Time, Dir: agv.Dir,
		Target: slotCell, IsLoaded: true, Locator: e.Pool,
	})
	if blocked, isBlocked := err.(*mover.Blocked); isBlocked {
		e.handleLoadedBlocked(agv, sid, task, idx, blocked)
		return
	}
	e.emit(outcome.Events)
	applyOutcome(agv, outcome)

	for idx >= 0 {
		nextCell, startTime, newIdx, isProcessing := pqm.AdvanceSlot(agv.ID, idx, agv.Time, advanceMoveDur)
		if startTime > agv.Time {
			agv.Time = startTime
		}
		outcome, err = e.Mover.Move(mover.Request{
			AgvID: agv.ID, Cur: agv.Pos, Time: agv.Time, Dir: agv.Dir,
			Target: nextCell, IsLoaded: true, Locator: e.Pool,
		})
		if blocked, isBlocked := err.(*mover.Blocked); isBlocked {
			e.handleLoadedBlocked(agv, sid, task, newIdx, blocked)
			return
		}
		e.emit(outcome.Events)
		applyOutcome(agv, outcome)
		idx = newIdx
		if isProcessing {
			break
		}
	}

	waveType := eventlog.ClassifyWave(task.WaveID)
	statusColor := eventlog.ColorBlue
	if waveType == eventlog.Inbound {
		statusColor = eventlog.ColorGreen
	}

	procTime := stop.ProcessingTime
	finishTime := agv.Time + procTime
	psx, psy := eventlog.CSVPos(agv.Pos)
	e.Sink.Event(eventlog.Event{
		StartTS: int64(agv.Time), EndTS: int64(finishTime), Floor: e.Floor,
		ObjID: eventlog.StationObjID(sid), SX: psx, SY: psy, EX: psx, EY: psy,
		Type: eventlog.StationStatus,
		Text: eventlog.StationStatusText(statusColor, task.WaveID, false),
	})
	e.Sink.Event(eventlog.Event{
		StartTS: int64(agv.Time), EndTS: int64(finishTime), Floor: e.Floor,
		ObjID: agv.ID, SX: psx, SY: psy, EX: psx, EY: psy,
		Type: eventlog.Picking, Text: task.TaskID,
	})
	agv.Time = finishTime

	pqm.ProcessFinished(agv.ID, agv.Time)
	pqm.ReleaseStation(agv.ID)
	e.ZMs[sid].Exit()

	returnCell := e.smartStorageTarget(agv)
	outcome, err = e.Mover.Move(mover.Request{
		AgvID: agv.ID, Cur: agv.Pos, Time: agv.Time, Dir: agv.Dir,
		Target: returnCell, IsLoaded: true, Locator: e.Pool,
	})
	if blocked, isBlocked := err.(*mover.Blocked); isBlocked {
		// A blocked return leg still carries the shelf; retry the same
		// macro-script step with a fresh candidate rather than stalling.
		e.pushRescue(&RescueTask{ShelfID: e.sidAtBlocked(blocked)})
		e.RescueLocks[e.sidAtBlocked(blocked)] = true
		agv.Time += parkWait
		return
	}
	e.emit(outcome.Events)
	applyOutcome(agv, outcome)

	e.Shelves.Add(task.ShelfID, agv.Pos)
	rsx, rsy := eventlog.CSVPos(agv.Pos)
	e.Sink.Event(eventlog.Event{
		StartTS: int64(agv.Time), EndTS: int64(agv.Time), Floor: e.Floor,
		ObjID: agv.ID, SX: rsx, SY: rsy, EX: rsx, EY: rsy,
		Type: eventlog.ShelfUnload, Text: task.ShelfID,
	})
	agv.Carrying = ""

	finishAbs := e.BaseTime + int64(agv.Time)
	deadline := e.BaseTime + task.DateTime
	e.Sink.KPI(eventlog.KPI{
		FinishTime:  finishAbs,
		Type:        waveType,
		WaveID:      task.WaveID,
		IsDelayed:   finishAbs > deadline,
		Date:        time.Unix(finishAbs, 0).UTC().Format("2006-01-02"),
		Workstation: sid,
		TotalInWave: task.RawItems,
		DeadlineTS:  deadline,
	})

	e.parkAGV(agv)
}

// parkAGV implements the original's post-task "4. Park" step: send a
// freshly-unloaded AGV to an idle storage cell and emit PARKING, so it
// isn't left sitting wherever the last move happened to end. Silently
// skipped if no spot is free or the move force-teleports, matching the
// original's "NoSpot" / teleported cases, which never write a PARKING
// event either.
func (e *Engine) parkAGV(agv *AGV) {
	spot, ok := e.parkingSpot()
	if !ok {
		return
	}
	outcome, err := e.Mover.Move(mover.Request{
		AgvID: agv.ID, Cur: agv.Pos, Time: agv.Time, Dir: agv.Dir,
		Target: spot, IsLoaded: false, Locator: e.Pool,
	})
	if _, isBlocked := err.(*mover.Blocked); isBlocked {
		return
	}
	e.emit(outcome.Events)
	applyOutcome(agv, outcome)
	if teleported(outcome.Events) {
		return
	}
	psx, psy := eventlog.CSVPos(agv.Pos)
	e.Sink.Event(eventlog.Event{
		StartTS: int64(agv.Time), EndTS: int64(agv.Time + 1), Floor: e.Floor,
		ObjID: agv.ID, SX: psx, SY: psy, EX: psx, EY: psy,
		Type: eventlog.Parking, Text: "Hidden",
	})
}

// teleported reports whether a Move outcome's events include a FORCE_TELE.
func teleported(events []eventlog.Event) bool {
	for _, ev := range events {
		if ev.Type == eventlog.ForceTele {
			return true
		}
	}
	return false
}

// handlePickupBlocked implements spec.md §4.10.4.a.
func (e *Engine) handlePickupBlocked(agv *AGV, sid string, task *Task, blocked *mover.Blocked) {
	bsid := e.sidAtBlocked(blocked)
	e.pushRescue(&RescueTask{ShelfID: bsid})
	e.RescueLocks[bsid] = true
	e.RetryCounter[task.TaskID]++
	e.requeueHead(sid, task)
	e.ZMs[sid].Release()
	agv.Time += parkWait
}

// handleLoadedBlocked implements spec.md §4.10.4.d: never teleport a loaded
// AGV; roll the ZM/PQM bookkeeping back to the pre-allocation state and
// retry the whole task later, skipping pickup next time.
func (e *Engine) handleLoadedBlocked(agv *AGV, sid string, task *Task, slotIdx int, blocked *mover.Blocked) {
	bsid := e.sidAtBlocked(blocked)
	e.pushRescue(&RescueTask{ShelfID: bsid})
	e.RescueLocks[bsid] = true
	task.SkipPickup = true
	task.IsRetry = true
	task.AssignedAGV = agv.ID
	e.ZMs[sid].Exit()
	e.ZMs[sid].Reserve()
	if slotIdx >= 0 {
		e.PQMs[sid].ReleaseSlot(slotIdx)
	}
	e.requeueHead(sid, task)
	agv.Time += parkWait
}

// sidAtBlocked resolves the shelf id occupying a Blocked error's cell.
func (e *Engine) sidAtBlocked(b *mover.Blocked) string {
	sid, _ := e.Shelves.SidAt(b.Pos)
	return sid
}

// runRescue implements spec.md §4.10 step 5: clear the obstructing shelf to
// a safe spot, tolerating FORCE_TELE since a stalled rescue would stall the
// whole floor.
func (e *Engine) runRescue(agv *AGV, rt *RescueTask) {
	shelfPos, ok := e.Shelves.PosOf(rt.ShelfID)
	if !ok {
		delete(e.RescueLocks, rt.ShelfID)
		return
	}

	outcome, err := e.Mover.Move(mover.Request{
		AgvID: agv.ID, Cur: agv.Pos, Time: agv.Time, Dir: agv.Dir,
		Target: shelfPos, IsLoaded: false, Locator: e.Pool,
	})
	if _, isBlocked := err.(*mover.Blocked); isBlocked {
		// The rescue itself is obstructed; requeue and let another pass at
		// it once the floor state has moved on.
		e.pushRescue(rt)
		agv.Time += parkWait
		return
	}
	e.emit(outcome.Events)
	applyOutcome(agv, outcome)

	e.Shelves.Remove(rt.ShelfID)
	lsx, lsy := eventlog.CSVPos(agv.Pos)
	e.Sink.Event(eventlog.Event{
		StartTS: int64(agv.Time), EndTS: int64(agv.Time), Floor: e.Floor,
		ObjID: agv.ID, SX: lsx, SY: lsy, EX: lsx, EY: lsy,
		Type: eventlog.ShuffleLoad, Text: rt.ShelfID,
	})
	agv.Carrying = rt.ShelfID
	agv.Time += shelfLoadDuration

	buffer := e.smartStorageTarget(agv)
	outcome2, _ := e.Mover.Move(mover.Request{
		AgvID: agv.ID, Cur: agv.Pos, Time: agv.Time, Dir: agv.Dir,
		Target: buffer, IsLoaded: true, Locator: e.Pool,
	})
	e.emit(outcome2.Events)
	applyOutcome(agv, outcome2)

	e.Shelves.Add(rt.ShelfID, agv.Pos)
	usx, usy := eventlog.CSVPos(agv.Pos)
	e.Sink.Event(eventlog.Event{
		StartTS: int64(agv.Time), EndTS: int64(agv.Time), Floor: e.Floor,
		ObjID: agv.ID, SX: usx, SY: usy, EX: usx, EY: usy,
		Type: eventlog.ShuffleUnload, Text: rt.ShelfID,
	})
	agv.Carrying = ""
	delete(e.RescueLocks, rt.ShelfID)
}
