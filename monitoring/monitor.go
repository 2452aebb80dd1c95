// Package monitoring serves the state of a running cosimulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/cosim/cosim"
	"github.com/sarchlab/cosim/monitoring/web"
	"github.com/sarchlab/cosim/sim/hooking"
	"github.com/sarchlab/cosim/sim/id"
	"github.com/sarchlab/cosim/sim/timing"
	"github.com/sarchlab/cosim/tracing"
)

// Monitor turns a cosimulation into a web server that reports its progress.
type Monitor struct {
	clock       timing.CycleTeller
	domains     []tracing.NamedHookable
	portNumber  int
	openBrowser bool
	log         *transactionLog
	started     time.Time

	tickSynced  bool
	syncTimeout time.Duration
	pendingLock sync.Mutex
	pending     []*serialization

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		log:         newTransactionLog(defaultLogCapacity),
		started:     time.Now(),
		syncTimeout: 200 * time.Millisecond,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes the monitor open its page in a browser once the server
// is up.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// WithLogCapacity sets how many finished transactions are kept.
func (m *Monitor) WithLogCapacity(n int) *Monitor {
	m.log = newTransactionLog(n)
	return m
}

// RegisterClock registers the driver that moves simulated time. Its
// transactions are monitored too. If the clock can be hooked, domains are
// inspected between two of its ticks.
func (m *Monitor) RegisterClock(c timing.CycleTeller) {
	m.clock = c

	if h, ok := c.(hooking.Hookable); ok {
		h.AcceptHook(hooking.HookFunc(m.serveOnTick))
		m.tickSynced = true
	}

	if d, ok := c.(tracing.NamedHookable); ok {
		m.RegisterDomain(d)
	}
}

// RegisterDomain makes the monitor collect the transactions of a domain.
func (m *Monitor) RegisterDomain(d tracing.NamedHookable) {
	m.domains = append(m.domains, d)
	tracing.CollectTrace(d, &monitorTracer{m: m})
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the handler that serves the monitor API and pages.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_domains", m.listDomains)
	r.HandleFunc("/api/domain/{name}", m.domainDetails)
	r.HandleFunc("/api/field/{json}", m.fieldValue)
	r.HandleFunc("/api/transactions", m.listTransactions)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d", port)

	fmt.Fprintf(os.Stderr, "Monitoring cosimulation with %s\n", url)

	server := &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := server.Serve(listener)
		dieOnErr(err)
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	return port
}

type nowRsp struct {
	Now             uint64  `json:"now"`
	CyclesPerSecond float64 `json:"cycles_per_second"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	rsp := nowRsp{}

	if m.clock != nil {
		rsp.Now = uint64(m.clock.Now())

		elapsed := time.Since(m.started).Seconds()
		if elapsed > 0 {
			rsp.CyclesPerSecond = float64(rsp.Now) / elapsed
		}
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listDomains(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.domains))
	for _, d := range m.domains {
		names = append(names, d.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) domainDetails(w http.ResponseWriter, r *http.Request) {
	domain := m.findDomainOr404(w, mux.Vars(r)["name"])
	if domain == nil {
		return
	}

	s := m.serialize(domain, nil)
	dieOnErr(s.err)

	_, err := w.Write(s.out.Bytes())
	dieOnErr(err)
}

type fieldReq struct {
	DomainName string `json:"domain_name,omitempty"`
	FieldName  string `json:"field_name,omitempty"`
}

func (m *Monitor) fieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	domain := m.findDomainOr404(w, req.DomainName)
	if domain == nil {
		return
	}

	s := m.serialize(domain, strings.Split(req.FieldName, "."))
	if s.fieldErr != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", s.fieldErr)

		return
	}

	dieOnErr(s.err)

	_, err = w.Write(s.out.Bytes())
	dieOnErr(err)
}

// A serialization is a request to serialize a domain. It runs once, either on
// the simulation goroutine between two ticks or, if the clock stopped, on the
// goroutine that asked for it.
type serialization struct {
	root  tracing.NamedHookable
	field []string

	claimed  atomic.Bool
	done     chan struct{}
	out      bytes.Buffer
	fieldErr error
	err      error
}

func (s *serialization) run() {
	if !s.claimed.CompareAndSwap(false, true) {
		return
	}

	defer close(s.done)

	serializer := goseth.NewSerializer()
	serializer.SetRoot(s.root)
	serializer.SetMaxDepth(1)

	if s.field != nil {
		s.fieldErr = serializer.SetEntryPoint(s.field)
		if s.fieldErr != nil {
			return
		}
	}

	s.err = serializer.Serialize(&s.out)
}

// serialize reads a domain without racing with the simulation. The request
// waits for the next tick of the clock, and is served directly when the clock
// does not tick within the sync timeout.
func (m *Monitor) serialize(
	root tracing.NamedHookable,
	field []string,
) *serialization {
	s := &serialization{
		root:  root,
		field: field,
		done:  make(chan struct{}),
	}

	if !m.tickSynced {
		s.run()
		return s
	}

	m.pendingLock.Lock()
	m.pending = append(m.pending, s)
	m.pendingLock.Unlock()

	select {
	case <-s.done:
	case <-time.After(m.syncTimeout):
		s.run()
		<-s.done
	}

	return s
}

func (m *Monitor) serveOnTick(ctx hooking.HookCtx) {
	if ctx.Pos != cosim.HookPosTick {
		return
	}

	m.pendingLock.Lock()
	pending := m.pending
	m.pending = nil
	m.pendingLock.Unlock()

	for _, s := range pending {
		s.run()
	}
}

func (m *Monitor) listTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "Error: invalid limit %q", s)

			return
		}

		limit = n
	}

	writeJSON(w, m.log.recent(limit))
}

func (m *Monitor) findDomainOr404(
	w http.ResponseWriter,
	name string,
) tracing.NamedHookable {
	for _, d := range m.domains {
		if d.Name() == name {
			return d
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Domain not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
