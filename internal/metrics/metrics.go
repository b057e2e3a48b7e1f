package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Counter and timer names recorded by the service layer.
const (
	MessagesSent          = "messages_sent"
	MessagesEdited        = "messages_edited"
	MessagesDeleted       = "messages_deleted"
	ReactionsToggled      = "reactions_toggled"
	SearchesRun           = "searches_run"
	NotificationsFanout   = "notifications_fanout"
	NotificationEmailSent = "notification_email_sent"
	SubscriptionsActive   = "subscriptions_active"
	WebsocketClients      = "websocket_clients"
	StoreOpDuration       = "store_op_duration"
)

// Counter is a monotonically increasing metric.
type Counter struct {
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Labels     map[string]string `json:"labels,omitempty"`
	LastUpdate time.Time         `json:"last_update"`
}

// Gauge is a point-in-time metric.
type Gauge struct {
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Labels     map[string]string `json:"labels,omitempty"`
	LastUpdate time.Time         `json:"last_update"`
}

// Timer aggregates duration samples in milliseconds.
type Timer struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Average float64 `json:"avg_ms"`
	P95     float64 `json:"p95_ms,omitempty"`

	samples []float64
}

const maxTimerSamples = 1000

// Registry holds all metrics in memory. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Counter
	gauges    map[string]*Gauge
	timers    map[string]*Timer
	startTime time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Counter),
		gauges:    make(map[string]*Gauge),
		timers:    make(map[string]*Timer),
		startTime: time.Now(),
	}
}

var globalRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return globalRegistry
}

func (r *Registry) Inc(name string, labels map[string]string) {
	r.Add(name, 1, labels)
}

func (r *Registry) Add(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	if c, ok := r.counters[key]; ok {
		c.Value += value
		c.LastUpdate = time.Now()
		return
	}
	r.counters[key] = &Counter{
		Name:       name,
		Value:      value,
		Labels:     copyLabels(labels),
		LastUpdate: time.Now(),
	}
}

func (r *Registry) SetGauge(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gauges[metricKey(name, labels)] = &Gauge{
		Name:       name,
		Value:      value,
		Labels:     copyLabels(labels),
		LastUpdate: time.Now(),
	}
}

func (r *Registry) Observe(name string, duration time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := metricKey(name, labels)
	ms := float64(duration.Nanoseconds()) / 1e6

	t, ok := r.timers[key]
	if !ok {
		r.timers[key] = &Timer{
			Count:   1,
			Sum:     ms,
			Min:     ms,
			Max:     ms,
			Average: ms,
			samples: []float64{ms},
		}
		return
	}

	t.Count++
	t.Sum += ms
	if ms < t.Min {
		t.Min = ms
	}
	if ms > t.Max {
		t.Max = ms
	}
	t.Average = t.Sum / float64(t.Count)

	t.samples = append(t.samples, ms)
	if len(t.samples) > maxTimerSamples {
		t.samples = t.samples[len(t.samples)-maxTimerSamples:]
	}
	if len(t.samples) >= 10 {
		t.P95 = percentile(t.samples, 0.95)
	}
}

// Snapshot returns a copy of every metric for the metrics endpoint.
func (r *Registry) Snapshot() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters := make(map[string]*Counter, len(r.counters))
	for k, v := range r.counters {
		cp := *v
		counters[k] = &cp
	}
	gauges := make(map[string]*Gauge, len(r.gauges))
	for k, v := range r.gauges {
		cp := *v
		gauges[k] = &cp
	}
	timers := make(map[string]*Timer, len(r.timers))
	for k, v := range r.timers {
		cp := *v
		cp.samples = nil
		timers[k] = &cp
	}

	return map[string]interface{}{
		"counters":  counters,
		"gauges":    gauges,
		"timers":    timers,
		"uptime_ms": time.Since(r.startTime).Milliseconds(),
		"timestamp": time.Now().Unix(),
	}
}

// Inc increments a counter in the process-wide registry.
func Inc(name string, labels map[string]string) {
	globalRegistry.Inc(name, labels)
}

// SetGauge sets a gauge in the process-wide registry.
func SetGauge(name string, value float64, labels map[string]string) {
	globalRegistry.SetGauge(name, value, labels)
}

// Observe records a duration sample in the process-wide registry.
func Observe(name string, duration time.Duration, labels map[string]string) {
	globalRegistry.Observe(name, duration, labels)
}

func metricKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('_')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(labels[k])
	}
	return b.String()
}

func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
