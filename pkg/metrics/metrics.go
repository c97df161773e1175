// Prometheus text-format metrics
//
// Counters, gauges and histograms keyed by label sets, written in the
// Prometheus exposition format with series sorted by labels so scrapes are
// stable.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MetricType represents the type of metric
type MetricType int

const (
	TypeCounter MetricType = iota
	TypeGauge
	TypeHistogram
)

func (t MetricType) String() string {
	switch t {
	case TypeCounter:
		return "counter"
	case TypeGauge:
		return "gauge"
	case TypeHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// Labels represents metric labels as key-value pairs
type Labels map[string]string

// Key generates a unique key for a label set
func (l Labels) Key() string {
	return labelKey(l)
}

// String returns labels in Prometheus format
func (l Labels) String() string {
	return formatLabels(l)
}

// With returns a copy of l with key set to value.
func (l Labels) With(key, value string) Labels {
	out := make(Labels, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	out[key] = value
	return out
}

func sortedKeys(labels Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelKey(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, k := range sortedKeys(labels) {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(labels[k])
	}
	return sb.String()
}

func formatLabels(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range sortedKeys(labels) {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteString("=\"")
		sb.WriteString(escapeLabel(labels[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Metric is the interface for all metric types
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Write(sb *strings.Builder)
}

// family holds the series of one metric, keyed by labelKey.
type family struct {
	name   string
	help   string
	series sync.Map
}

func (f *family) writeHeader(sb *strings.Builder, t MetricType) {
	fmt.Fprintf(sb, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, t)
}

// each visits series in label order.
func (f *family) each(fn func(v interface{})) {
	var keys []string
	vals := make(map[string]interface{})
	f.series.Range(func(k, v interface{}) bool {
		keys = append(keys, k.(string))
		vals[k.(string)] = v
		return true
	})
	sort.Strings(keys)
	for _, k := range keys {
		fn(vals[k])
	}
}

// Counter is a monotonically increasing metric
type Counter struct {
	family
}

type counterValue struct {
	labels Labels
	value  uint64
}

// NewCounter creates a new counter metric
func NewCounter(name, help string) *Counter {
	return &Counter{family{name: name, help: help}}
}

func (c *Counter) Name() string     { return c.name }
func (c *Counter) Help() string     { return c.help }
func (c *Counter) Type() MetricType { return TypeCounter }

// Inc increments the counter by 1
func (c *Counter) Inc(labels Labels) {
	c.Add(labels, 1)
}

// Add increments the counter by delta
func (c *Counter) Add(labels Labels, delta uint64) {
	val, _ := c.series.LoadOrStore(labelKey(labels), &counterValue{labels: labels})
	atomic.AddUint64(&val.(*counterValue).value, delta)
}

// Get returns the current counter value for labels
func (c *Counter) Get(labels Labels) uint64 {
	val, ok := c.series.Load(labelKey(labels))
	if !ok {
		return 0
	}
	return atomic.LoadUint64(&val.(*counterValue).value)
}

func (c *Counter) Write(sb *strings.Builder) {
	c.writeHeader(sb, TypeCounter)
	c.each(func(v interface{}) {
		cv := v.(*counterValue)
		fmt.Fprintf(sb, "%s%s %d\n", c.name, formatLabels(cv.labels), atomic.LoadUint64(&cv.value))
	})
}

// Gauge is a metric that can go up and down
type Gauge struct {
	family
}

type gaugeValue struct {
	mu     sync.Mutex
	labels Labels
	value  float64
}

// NewGauge creates a new gauge metric
func NewGauge(name, help string) *Gauge {
	return &Gauge{family{name: name, help: help}}
}

func (g *Gauge) Name() string     { return g.name }
func (g *Gauge) Help() string     { return g.help }
func (g *Gauge) Type() MetricType { return TypeGauge }

func (g *Gauge) value(labels Labels) *gaugeValue {
	val, _ := g.series.LoadOrStore(labelKey(labels), &gaugeValue{labels: labels})
	return val.(*gaugeValue)
}

// Set sets the gauge to value
func (g *Gauge) Set(labels Labels, value float64) {
	gv := g.value(labels)
	gv.mu.Lock()
	gv.value = value
	gv.mu.Unlock()
}

// Add adds delta to the gauge
func (g *Gauge) Add(labels Labels, delta float64) {
	gv := g.value(labels)
	gv.mu.Lock()
	gv.value += delta
	gv.mu.Unlock()
}

// Inc increments the gauge by 1
func (g *Gauge) Inc(labels Labels) { g.Add(labels, 1) }

// Dec decrements the gauge by 1
func (g *Gauge) Dec(labels Labels) { g.Add(labels, -1) }

// Delete drops the series for labels, e.g. when its object goes away.
func (g *Gauge) Delete(labels Labels) {
	g.series.Delete(labelKey(labels))
}

// Get returns the current gauge value for labels
func (g *Gauge) Get(labels Labels) float64 {
	val, ok := g.series.Load(labelKey(labels))
	if !ok {
		return 0
	}
	gv := val.(*gaugeValue)
	gv.mu.Lock()
	defer gv.mu.Unlock()
	return gv.value
}

func (g *Gauge) Write(sb *strings.Builder) {
	g.writeHeader(sb, TypeGauge)
	g.each(func(v interface{}) {
		gv := v.(*gaugeValue)
		gv.mu.Lock()
		val := gv.value
		gv.mu.Unlock()
		fmt.Fprintf(sb, "%s%s %s\n", g.name, formatLabels(gv.labels), formatFloat(val))
	})
}

// Histogram tracks the distribution of observations
type Histogram struct {
	family
	buckets []float64
}

type histogramValue struct {
	mu     sync.Mutex
	labels Labels
	count  uint64
	sum    float64
	// counts[i] holds observations in (buckets[i-1], buckets[i]].
	counts []uint64
}

// NewHistogram creates a histogram with the given upper bounds.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	sorted := append([]float64(nil), buckets...)
	sort.Float64s(sorted)
	return &Histogram{family: family{name: name, help: help}, buckets: sorted}
}

// DefaultBuckets returns default histogram buckets for latency metrics
func DefaultBuckets() []float64 {
	return []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
}

// ExponentialBuckets creates count buckets starting at start, each factor
// times the previous.
func ExponentialBuckets(start, factor float64, count int) []float64 {
	buckets := make([]float64, count)
	for i := 0; i < count; i++ {
		buckets[i] = start
		start *= factor
	}
	return buckets
}

func (h *Histogram) Name() string     { return h.name }
func (h *Histogram) Help() string     { return h.help }
func (h *Histogram) Type() MetricType { return TypeHistogram }

// Observe records a value in the histogram
func (h *Histogram) Observe(labels Labels, value float64) {
	val, _ := h.series.LoadOrStore(labelKey(labels), &histogramValue{
		labels: labels,
		counts: make([]uint64, len(h.buckets)),
	})
	hv := val.(*histogramValue)
	i := sort.SearchFloat64s(h.buckets, value)
	hv.mu.Lock()
	hv.count++
	hv.sum += value
	if i < len(hv.counts) {
		hv.counts[i]++
	}
	hv.mu.Unlock()
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(labels Labels, d time.Duration) {
	h.Observe(labels, d.Seconds())
}

// HistogramSnapshot contains cumulative bucket counts at one instant.
type HistogramSnapshot struct {
	Count   uint64
	Sum     float64
	Buckets map[float64]uint64
}

func (h *Histogram) snapshot(hv *histogramValue) HistogramSnapshot {
	hv.mu.Lock()
	defer hv.mu.Unlock()
	s := HistogramSnapshot{Count: hv.count, Sum: hv.sum, Buckets: make(map[float64]uint64, len(h.buckets))}
	var cum uint64
	for i, bound := range h.buckets {
		cum += hv.counts[i]
		s.Buckets[bound] = cum
	}
	return s
}

// GetSnapshot returns the snapshot for labels.
func (h *Histogram) GetSnapshot(labels Labels) HistogramSnapshot {
	val, ok := h.series.Load(labelKey(labels))
	if !ok {
		return HistogramSnapshot{Buckets: make(map[float64]uint64)}
	}
	return h.snapshot(val.(*histogramValue))
}

func (h *Histogram) Write(sb *strings.Builder) {
	h.writeHeader(sb, TypeHistogram)
	h.each(func(v interface{}) {
		hv := v.(*histogramValue)
		s := h.snapshot(hv)
		for _, bound := range h.buckets {
			fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, formatLabels(hv.labels.With("le", formatFloat(bound))), s.Buckets[bound])
		}
		fmt.Fprintf(sb, "%s_bucket%s %d\n", h.name, formatLabels(hv.labels.With("le", "+Inf")), s.Count)
		fmt.Fprintf(sb, "%s_sum%s %s\n", h.name, formatLabels(hv.labels), formatFloat(s.Sum))
		fmt.Fprintf(sb, "%s_count%s %d\n", h.name, formatLabels(hv.labels), s.Count)
	})
}

// Registry holds metrics in registration order.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Register adds a metric to the registry
func (r *Registry) Register(metric Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := metric.Name()
	if _, exists := r.metrics[name]; exists {
		return fmt.Errorf("metric %q already registered", name)
	}
	r.metrics[name] = metric
	r.order = append(r.order, name)
	return nil
}

// MustRegister adds a metric and panics on error
func (r *Registry) MustRegister(metric Metric) {
	if err := r.Register(metric); err != nil {
		panic(err)
	}
}

// Get returns a metric by name
func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Gather collects all metrics in Prometheus text format
func (r *Registry) Gather() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sb strings.Builder
	for _, name := range r.order {
		r.metrics[name].Write(&sb)
	}
	return sb.String()
}
