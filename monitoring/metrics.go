package monitoring

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType is the kind of an exported series.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// LatencyBuckets are histogram upper bounds in seconds for request handling.
var LatencyBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// Metric is one exported series.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Help      string            `json:"help,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
	Value     float64           `json:"value"`
	Count     uint64            `json:"count,omitempty"`
	Sum       float64           `json:"sum,omitempty"`
	Buckets   []float64         `json:"buckets,omitempty"`
	Counts    []uint64          `json:"bucket_counts,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type series struct {
	metric Metric
}

// MetricsCollector aggregates counters, gauges and histograms in memory.
// Gauges registered with GaugeFunc are sampled at export time.
type MetricsCollector struct {
	mu        sync.RWMutex
	series    map[string]*series
	help      map[string]string
	samplers  map[string]func() float64
	startTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		series:    make(map[string]*series),
		help:      make(map[string]string),
		samplers:  make(map[string]func() float64),
		startTime: time.Now(),
	}
}

// Describe sets the HELP text of a metric name.
func (mc *MetricsCollector) Describe(name, help string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.help[name] = help
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	return name + formatLabels(labels)
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (mc *MetricsCollector) lookup(name string, typ MetricType, labels map[string]string) *Metric {
	key := seriesKey(name, labels)
	s, ok := mc.series[key]
	if !ok {
		copied := make(map[string]string, len(labels))
		for k, v := range labels {
			copied[k] = v
		}
		s = &series{metric: Metric{Name: name, Type: typ, Labels: copied}}
		mc.series[key] = s
	}
	s.metric.Timestamp = time.Now()
	return &s.metric
}

// IncrCounter adds value to a counter.
func (mc *MetricsCollector) IncrCounter(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	m := mc.lookup(name, MetricTypeCounter, labels)
	m.Value += value
}

// SetGauge sets a gauge to value.
func (mc *MetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.lookup(name, MetricTypeGauge, labels).Value = value
}

// GaugeFunc registers a gauge whose value is read from sample on every export.
func (mc *MetricsCollector) GaugeFunc(name, help string, sample func() float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.samplers[name] = sample
	mc.help[name] = help
}

// RecordHistogram observes value in a histogram with the given upper bounds.
// The bounds of the first observation win.
func (mc *MetricsCollector) RecordHistogram(name string, value float64, labels map[string]string, buckets []float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	m := mc.lookup(name, MetricTypeHistogram, labels)
	if m.Buckets == nil {
		m.Buckets = append([]float64(nil), buckets...)
		sort.Float64s(m.Buckets)
		m.Counts = make([]uint64, len(m.Buckets))
	}
	for i, bound := range m.Buckets {
		if value <= bound {
			m.Counts[i]++
		}
	}
	m.Count++
	m.Sum += value
}

// ObserveSince records the seconds elapsed since start.
func (mc *MetricsCollector) ObserveSince(name string, start time.Time, labels map[string]string) {
	mc.RecordHistogram(name, time.Since(start).Seconds(), labels, LatencyBuckets)
}

// GetMetric returns a copy of the named series.
func (mc *MetricsCollector) GetMetric(name string, labels map[string]string) (Metric, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	s, ok := mc.series[seriesKey(name, labels)]
	if !ok {
		return Metric{}, fmt.Errorf("metric %s not found", name)
	}
	return copyMetric(s.metric), nil
}

func copyMetric(m Metric) Metric {
	if m.Labels != nil {
		labels := make(map[string]string, len(m.Labels))
		for k, v := range m.Labels {
			labels[k] = v
		}
		m.Labels = labels
	}
	m.Buckets = append([]float64(nil), m.Buckets...)
	m.Counts = append([]uint64(nil), m.Counts...)
	return m
}

// GetAllMetrics snapshots every series plus the sampled gauges, sorted by name
// then labels.
func (mc *MetricsCollector) GetAllMetrics() []Metric {
	mc.mu.RLock()
	out := make([]Metric, 0, len(mc.series)+len(mc.samplers))
	for _, s := range mc.series {
		m := copyMetric(s.metric)
		m.Help = mc.help[m.Name]
		out = append(out, m)
	}
	samplers := make(map[string]func() float64, len(mc.samplers))
	for name, fn := range mc.samplers {
		samplers[name] = fn
	}
	help := make(map[string]string, len(samplers))
	for name := range samplers {
		help[name] = mc.help[name]
	}
	mc.mu.RUnlock()

	now := time.Now()
	for name, fn := range samplers {
		out = append(out, Metric{Name: name, Type: MetricTypeGauge, Help: help[name], Value: fn(), Timestamp: now})
	}
	out = append(out, Metric{
		Name:      "process_uptime_seconds",
		Type:      MetricTypeGauge,
		Help:      "Seconds since the collector started",
		Value:     mc.GetUptime().Seconds(),
		Timestamp: now,
	}, Metric{
		Name:      "go_goroutines",
		Type:      MetricTypeGauge,
		Help:      "Number of goroutines",
		Value:     float64(runtime.NumGoroutine()),
		Timestamp: now,
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return formatLabels(out[i].Labels) < formatLabels(out[j].Labels)
	})
	return out
}

// ExportPrometheus renders the text exposition format.
func (mc *MetricsCollector) ExportPrometheus() string {
	var b strings.Builder
	seen := make(map[string]bool)
	for _, m := range mc.GetAllMetrics() {
		if !seen[m.Name] {
			seen[m.Name] = true
			help := m.Help
			if help == "" {
				help = "Metric " + m.Name
			}
			fmt.Fprintf(&b, "# HELP %s %s\n", m.Name, help)
			fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name, m.Type)
		}
		if m.Type != MetricTypeHistogram {
			fmt.Fprintf(&b, "%s%s %g\n", m.Name, formatLabels(m.Labels), m.Value)
			continue
		}
		for i, bound := range m.Buckets {
			fmt.Fprintf(&b, "%s_bucket%s %d\n", m.Name, formatLabels(withLabel(m.Labels, "le", fmt.Sprintf("%g", bound))), m.Counts[i])
		}
		fmt.Fprintf(&b, "%s_bucket%s %d\n", m.Name, formatLabels(withLabel(m.Labels, "le", "+Inf")), m.Count)
		fmt.Fprintf(&b, "%s_sum%s %g\n", m.Name, formatLabels(m.Labels), m.Sum)
		fmt.Fprintf(&b, "%s_count%s %d\n", m.Name, formatLabels(m.Labels), m.Count)
	}
	return b.String()
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}

// ExportJSON renders every metric as an indented JSON array.
func (mc *MetricsCollector) ExportJSON() (string, error) {
	data, err := json.MarshalIndent(mc.GetAllMetrics(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// GetSystemStats reports process-level runtime figures.
func (mc *MetricsCollector) GetSystemStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime":     mc.GetUptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"heap_alloc":   m.HeapAlloc,
			"heap_sys":     m.HeapSys,
			"heap_objects": m.HeapObjects,
			"gc_count":     m.NumGC,
		},
		"num_cpu": runtime.NumCPU(),
	}
}

// RegisterHub exposes the hub's delivery counters as sampled gauges.
func (mc *MetricsCollector) RegisterHub(h *Hub) {
	mc.GaugeFunc("hub_clients", "Connected dashboard clients", func() float64 {
		return float64(h.ClientCount())
	})
	mc.GaugeFunc("hub_messages_sent_total", "Messages delivered to dashboard clients", func() float64 {
		return float64(h.sent.Load())
	})
	mc.GaugeFunc("hub_messages_dropped_total", "Messages dropped for slow clients or a full queue", func() float64 {
		return float64(h.dropped.Load())
	})
}
