package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	signIns      map[string]int64
	guard        map[string]int64
	channel      map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		signIns:      make(map[string]int64),
		guard:        make(map[string]int64),
		channel:      make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.inc(m.requestCount, path+"|"+method+"|"+strconv.Itoa(status))
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.inc(m.errorCount, path+"|"+method+"|"+code)
}

// RecordSignIn counts sign-in outcomes ("success", or an error code).
func (m *Metrics) RecordSignIn(outcome string) {
	if m == nil {
		return
	}
	m.inc(m.signIns, outcome)
}

// RecordGuard counts route guard decisions per path.
func (m *Metrics) RecordGuard(path, outcome string) {
	if m == nil {
		return
	}
	m.inc(m.guard, path+"|"+outcome)
}

// RecordChannel counts realtime channel lifecycle events.
func (m *Metrics) RecordChannel(event string) {
	if m == nil {
		return
	}
	m.inc(m.channel, event)
}

// ChannelCount returns the current count for a channel event.
func (m *Metrics) ChannelCount(event string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channel[event]
}

// Snapshot copies every counter group.
func (m *Metrics) Snapshot() map[string]map[string]int64 {
	out := map[string]map[string]int64{}
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out["requests"] = copyCounts(m.requestCount)
	out["errors"] = copyCounts(m.errorCount)
	out["sign_ins"] = copyCounts(m.signIns)
	out["guard"] = copyCounts(m.guard)
	out["channel"] = copyCounts(m.channel)
	return out
}

// Keys lists the counter names of a group in sorted order.
func Keys(group map[string]int64) []string {
	keys := make([]string, 0, len(group))
	for k := range group {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Metrics) inc(counts map[string]int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts[key]++
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
