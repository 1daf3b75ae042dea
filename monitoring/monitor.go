// Package monitoring turns a run into a web server that reports its progress
// and lets the user pause it.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/sarchlab/vaiverif/monitoring/web"
	"github.com/sarchlab/vaiverif/sim/naming"
	"github.com/sarchlab/vaiverif/sim/timing"
)

// A Buffer is a queue whose level can be monitored.
type Buffer interface {
	Name() string
	Size() int
	Capacity() int
}

// A StatusFunc returns a JSON serializable view of some state of the run.
type StatusFunc func() any

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	engine      timing.Engine
	components  []naming.Named
	buffers     []Buffer
	status      map[string]StatusFunc
	portNumber  int
	openBrowser bool

	// holds counts the requests reading the run. ownsPause is set when the
	// engine was paused for them and must be continued by the last one.
	holdLock  sync.Mutex
	holds     int
	ownsPause bool

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{status: make(map[string]StatusFunc)}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor page in a browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e timing.Engine) {
	m.engine = e
}

// RegisterComponent registers a component whose fields can be inspected.
func (m *Monitor) RegisterComponent(c naming.Named) {
	m.components = append(m.components, c)
}

// RegisterBuffer registers a queue whose level is reported.
func (m *Monitor) RegisterBuffer(b Buffer) {
	m.buffers = append(m.buffers, b)
}

// RegisterStatus registers a view served at /api/status/{name}. The view is
// computed while the engine is paused.
func (m *Monitor) RegisterStatus(name string, f StatusFunc) {
	m.status[name] = f
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the web page.
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

// Router returns the handler that serves the API and the web page.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	fServer := http.FileServer(web.Assets())
	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/buffers", m.listBuffers)
	r.HandleFunc("/api/status", m.listStatus)
	r.HandleFunc("/api/status/{name}", m.reportStatus)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		dieOnErr(err)
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
		}
	}

	return url
}

// paused runs f while the engine is not handling events. Concurrent calls
// share one pause, so the engine runs again only after all of them return,
// and only if it was running before the first one started.
func (m *Monitor) paused(f func()) {
	if m.engine == nil {
		f()
		return
	}

	m.hold()
	defer m.release()

	f()
}

func (m *Monitor) hold() {
	m.holdLock.Lock()
	defer m.holdLock.Unlock()

	if m.holds == 0 && !m.engine.IsPaused() {
		m.engine.Pause()
		m.ownsPause = true
	}

	m.holds++
}

func (m *Monitor) release() {
	m.holdLock.Lock()
	defer m.holdLock.Unlock()

	m.holds--

	if m.holds == 0 && m.ownsPause {
		m.ownsPause = false
		m.engine.Continue()
	}
}

func (m *Monitor) engineOr503(w http.ResponseWriter) bool {
	if m.engine != nil {
		return true
	}

	w.WriteHeader(http.StatusServiceUnavailable)
	_, err := w.Write([]byte("No engine registered"))
	dieOnErr(err)

	return false
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr503(w) {
		return
	}

	m.holdLock.Lock()
	m.engine.Pause()
	m.ownsPause = false
	m.holdLock.Unlock()

	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr503(w) {
		return
	}

	// A continue during a read takes effect when the last reader returns.
	m.holdLock.Lock()
	if m.holds > 0 {
		m.ownsPause = true
	} else {
		m.engine.Continue()
	}
	m.holdLock.Unlock()

	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if !m.engineOr503(w) {
		return
	}

	fmt.Fprintf(w, "{\"now\":%.10f,\"paused\":%t}",
		m.engine.Now(), m.engine.IsPaused())
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	var buf bytes.Buffer

	m.paused(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(component)
		serializer.SetMaxDepth(1)
		dieOnErr(serializer.Serialize(&buf))
	})

	_, err := w.Write(buf.Bytes())
	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	var buf bytes.Buffer

	m.paused(func() {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(component)
		serializer.SetMaxDepth(1)

		err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
		if err == nil {
			err = serializer.Serialize(&buf)
		}
	})

	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	_, err = w.Write(buf.Bytes())
	dieOnErr(err)
}

type bufferRsp struct {
	Buffer string `json:"buffer"`
	Level  int    `json:"level"`
	Cap    int    `json:"cap"`
}

func (m *Monitor) listBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := m.buffersParseParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	var rsp []bufferRsp

	m.paused(func() {
		for _, b := range m.sortAndSelectBuffers(sortMethod, limit, offset) {
			rsp = append(rsp, bufferRsp{b.Name(), b.Size(), b.Capacity()})
		}
	})

	writeJSON(w, rsp)
}

func (*Monitor) buffersParseParams(
	r *http.Request,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
	}

	limit, err = queryInt(r, "limit")
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offset, err = queryInt(r, "offset")
	if err != nil {
		return sortMethod, limit, 0, err
	}

	if limit < 0 || offset < 0 {
		return sortMethod, limit, offset,
			errors.New("limit and offset cannot be negative")
	}

	return sortMethod, limit, offset, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}

	return strconv.Atoi(s)
}

// bufferPercent reports zero for unbounded buffers.
func bufferPercent(b Buffer) float64 {
	if b.Capacity() <= 0 {
		return 0
	}

	return float64(b.Size()) / float64(b.Capacity())
}

func (m *Monitor) sortAndSelectBuffers(
	sortMethod string,
	limit, offset int,
) []Buffer {
	sortedBuffers := make([]Buffer, len(m.buffers))
	copy(sortedBuffers, m.buffers)

	byLevel := func(i, j int) int {
		return sortedBuffers[i].Size() - sortedBuffers[j].Size()
	}

	byPercent := func(i, j int) int {
		pi, pj := bufferPercent(sortedBuffers[i]), bufferPercent(sortedBuffers[j])
		switch {
		case pi > pj:
			return 1
		case pi < pj:
			return -1
		default:
			return 0
		}
	}

	first, second := byPercent, byLevel
	if sortMethod == "level" {
		first, second = byLevel, byPercent
	}

	sort.SliceStable(sortedBuffers, func(i, j int) bool {
		if c := first(i, j); c != 0 {
			return c > 0
		}

		return second(i, j) > 0
	})

	if offset > len(sortedBuffers) {
		offset = len(sortedBuffers)
	}

	end := len(sortedBuffers)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sortedBuffers[offset:end]
}

func (m *Monitor) listStatus(w http.ResponseWriter, _ *http.Request) {
	names := maps.Keys(m.status)
	slices.Sort(names)

	writeJSON(w, names)
}

func (m *Monitor) reportStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	f, ok := m.status[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Status not found"))
		dieOnErr(err)

		return
	}

	var v any

	m.paused(func() { v = f() })

	writeJSON(w, v)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) naming.Named {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]Progress, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
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

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
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
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
