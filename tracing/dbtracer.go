package tracing

import (
	"fmt"
	"sync"

	"github.com/sarchlab/cosim/datarecording"
	"github.com/sarchlab/cosim/sim/timing"
)

type taskTableEntry struct {
	ID         string
	ParentID   string
	Kind       string
	What       string
	Location   string
	Detail     string
	StartCycle uint64
	EndCycle   uint64
}

// TaskTableName is the table that a DBTracer writes finished tasks to.
const TaskTableName = "trace"

// DBTracer is a tracer that stores finished tasks into a DataRecorder. Start
// and end cycles come from the cycle teller, normally the driver.
type DBTracer struct {
	mu         sync.Mutex
	cycles     timing.CycleTeller
	backend    datarecording.DataRecorder
	inFlight   map[string]Task
	numWritten int
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	cycles timing.CycleTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(TaskTableName, taskTableEntry{})

	return &DBTracer{
		cycles:   cycles,
		backend:  dataRecorder,
		inFlight: make(map[string]Task),
	}
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if task.Location == "" {
		panic("task location must be set")
	}

	task.StartCycle = t.cycles.Now()
	t.inFlight[task.ID] = task
}

// StepTask marks a step of a task.
func (t *DBTracer) StepTask(_ Task) {
	// Do nothing for now.
}

// EndTask marks the end of a task and writes it.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	original, ok := t.inFlight[task.ID]
	if !ok {
		return
	}

	delete(t.inFlight, task.ID)

	original.EndCycle = t.cycles.Now()
	if task.Detail != nil {
		original.Detail = task.Detail
	}

	entry := taskTableEntry{
		ID:         original.ID,
		ParentID:   original.ParentID,
		Kind:       original.Kind,
		What:       original.What,
		Location:   original.Location,
		StartCycle: uint64(original.StartCycle),
		EndCycle:   uint64(original.EndCycle),
	}

	if original.Detail != nil {
		entry.Detail = fmt.Sprintf("%+v", original.Detail)
	}

	t.backend.InsertData(TaskTableName, entry)
	t.numWritten++
}

// NumTasksWritten returns the number of tasks handed to the recorder.
func (t *DBTracer) NumTasksWritten() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.numWritten
}

// Terminate flushes the recorder. Tasks that never ended are dropped.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inFlight = make(map[string]Task)
	t.backend.Flush()
}
