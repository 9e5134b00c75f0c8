// Package monitoring turns a profiling run into a web server so that a
// running process can be inspected from the outside.
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
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/memtrace/alloc"
	"github.com/sarchlab/memtrace/monitoring/web"
	"github.com/sarchlab/memtrace/tracking"
)

// envOpenBrowser makes StartServer open the monitor page in the default
// browser when set to "1" or "true".
const envOpenBrowser = "MEMTRACE_OPEN_BROWSER"

// Monitor exposes the state of a profiling run over HTTP.
type Monitor struct {
	registry   *tracking.Registry
	dispatcher *alloc.Dispatcher
	portNumber int
	startTime  time.Time

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		startTime: time.Now(),
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

// RegisterSession registers the session to be monitored. The session must
// have begun, so that its dispatcher exists.
func (m *Monitor) RegisterSession(s *tracking.Session) {
	m.RegisterRegistry(s.Registry())
	m.RegisterDispatcher(s.Dispatcher())
}

// RegisterRegistry registers the task registry to be monitored. A progress
// bar tracking task registration is created on the side.
func (m *Monitor) RegisterRegistry(r *tracking.Registry) {
	m.registry = r

	bar := m.CreateProgressBar("Registered Tasks", 0)
	tracking.CollectUsage(r, &progressTracer{bar: bar})
}

// RegisterDispatcher registers the allocator dispatcher whose counters the
// monitor reports.
func (m *Monitor) RegisterDispatcher(d *alloc.Dispatcher) {
	m.dispatcher = d
}

// progressTracer advances a progress bar as tasks register.
type progressTracer struct {
	bar *ProgressBar
}

func (t *progressTracer) RegisterTask(_ tracking.Task) {
	t.bar.IncrementFinished(1)
}

func (t *progressTracer) RecordUsage(_ tracking.UsageEvent) {
	// Task registration is the tracked unit of progress.
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        tracking.GetRunIDGenerator().Generate(),
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

	newBars := make([]*ProgressBar, 0, len(m.progressBars)-1)
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// StartServer starts the monitor as a web server with a custom port if
// wanted.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/tasks", m.listTasks)
	r.HandleFunc("/api/task/{id}", m.listTaskDetails)
	r.HandleFunc("/api/stats", m.listAllocatorStats)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/memprofile", m.collectMemProfile)
	r.PathPrefix("/").Handler(fServer)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring profiling run with %s\n", url)

	if v := os.Getenv(envOpenBrowser); v == "1" || v == "true" {
		err = browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open browser: %s\n", err)
		}
	}

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	now := time.Since(m.startTime).Seconds()
	fmt.Fprintf(w, "{\"now\":%.10f}", now)
}

func (m *Monitor) listTasks(w http.ResponseWriter, _ *http.Request) {
	bytes, err := json.Marshal(m.registry.Tasks())
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listTaskDetails(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	task, found := m.findTaskOr404(w, tracking.TaskID(id))
	if !found {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(task)
	serializer.SetMaxDepth(1)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) findTaskOr404(
	w http.ResponseWriter,
	id tracking.TaskID,
) (tracking.Task, bool) {
	for _, task := range m.registry.Tasks() {
		if task.ID == id {
			return task, true
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Task not found"))
	dieOnErr(err)

	return tracking.Task{}, false
}

func (m *Monitor) listAllocatorStats(w http.ResponseWriter, _ *http.Request) {
	bytes, err := json.Marshal(m.dispatcher.Stats())
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectMemProfile(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		"attachment; filename=\"memtrace.pb.gz\"")

	err := tracking.WriteProfile(w, m.registry)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
