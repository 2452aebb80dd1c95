package monitoring

import (
	"fmt"
	"sync"

	"github.com/sarchlab/cosim/tracing"
)

const defaultLogCapacity = 1024

// Transaction is a finished task as reported by the monitor.
type Transaction struct {
	ID         string `json:"id"`
	Location   string `json:"location"`
	Kind       string `json:"kind"`
	What       string `json:"what"`
	Result     string `json:"result,omitempty"`
	StartCycle uint64 `json:"start_cycle"`
	EndCycle   uint64 `json:"end_cycle"`
}

// transactionLog keeps the most recent finished transactions in a ring.
type transactionLog struct {
	sync.Mutex

	inFlight map[string]Transaction
	ring     []Transaction
	next     int
	full     bool
}

func newTransactionLog(capacity int) *transactionLog {
	if capacity <= 0 {
		panic("transaction log capacity must be positive")
	}

	return &transactionLog{
		inFlight: make(map[string]Transaction),
		ring:     make([]Transaction, capacity),
	}
}

func (l *transactionLog) start(t Transaction) {
	l.Lock()
	defer l.Unlock()

	l.inFlight[t.ID] = t
}

func (l *transactionLog) end(taskID string, cycle uint64, result string) {
	l.Lock()
	defer l.Unlock()

	t, ok := l.inFlight[taskID]
	if !ok {
		return
	}

	delete(l.inFlight, taskID)

	t.EndCycle = cycle
	t.Result = result

	l.ring[l.next] = t
	l.next = (l.next + 1) % len(l.ring)

	if l.next == 0 {
		l.full = true
	}
}

// recent returns up to limit transactions, newest first. A limit of 0
// returns all the transactions kept.
func (l *transactionLog) recent(limit int) []Transaction {
	l.Lock()
	defer l.Unlock()

	n := l.next
	if l.full {
		n = len(l.ring)
	}

	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Transaction, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.ring)) % len(l.ring)
		out = append(out, l.ring[idx])
	}

	return out
}

// monitorTracer feeds the tasks of the monitored domains into the log.
type monitorTracer struct {
	m *Monitor
}

func (t *monitorTracer) cycle() uint64 {
	if t.m.clock == nil {
		return 0
	}

	return uint64(t.m.clock.Now())
}

func (t *monitorTracer) StartTask(task tracing.Task) {
	t.m.log.start(Transaction{
		ID:         task.ID,
		Location:   task.Location,
		Kind:       task.Kind,
		What:       task.What,
		StartCycle: t.cycle(),
	})
}

func (t *monitorTracer) StepTask(_ tracing.Task) {}

func (t *monitorTracer) EndTask(task tracing.Task) {
	result := ""
	if task.Detail != nil {
		result = fmt.Sprint(task.Detail)
	}

	t.m.log.end(task.ID, t.cycle(), result)
}
