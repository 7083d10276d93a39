package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Metrics records counters, gauges and timings.
type Metrics interface {
	Counter(name string, value int64, tags ...Tag)
	Gauge(name string, value float64, tags ...Tag)
	Timing(name string, duration time.Duration, tags ...Tag)
}

// Tag labels a metric series.
type Tag struct {
	Key   string
	Value string
}

// T creates a new Tag.
func T(key, value string) Tag {
	return Tag{Key: key, Value: value}
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) Counter(string, int64, ...Tag)        {}
func (NoopMetrics) Gauge(string, float64, ...Tag)        {}
func (NoopMetrics) Timing(string, time.Duration, ...Tag) {}

// Sample is one series in a Snapshot.
type Sample struct {
	// Series is the name followed by its sorted tags, e.g.
	// "autoplan.events.published{routing_key=scheduling.run.completed}".
	Series  string
	Counter int64
	Gauge   float64
	Timings []time.Duration
}

type series struct {
	counter int64
	gauge   float64
	timings []time.Duration
}

// InMemoryMetrics keeps every series in memory for the life of the process.
// The CLI prints it with --stats; tests read it back directly.
type InMemoryMetrics struct {
	mu     sync.RWMutex
	series map[string]*series
}

// NewInMemoryMetrics creates an empty collector.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{series: make(map[string]*series)}
}

func (m *InMemoryMetrics) at(name string, tags []Tag) *series {
	key := seriesKey(name, tags)
	s, ok := m.series[key]
	if !ok {
		s = &series{}
		m.series[key] = s
	}
	return s
}

func (m *InMemoryMetrics) Counter(name string, value int64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.at(name, tags).counter += value
}

func (m *InMemoryMetrics) Gauge(name string, value float64, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.at(name, tags).gauge = value
}

func (m *InMemoryMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.at(name, tags)
	s.timings = append(s.timings, duration)
}

func (m *InMemoryMetrics) get(name string, tags []Tag) series {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.series[seriesKey(name, tags)]; ok {
		return *s
	}
	return series{}
}

// GetCounter returns a counter's total. Tag order does not matter.
func (m *InMemoryMetrics) GetCounter(name string, tags ...Tag) int64 {
	return m.get(name, tags).counter
}

// GetGauge returns a gauge's last value.
func (m *InMemoryMetrics) GetGauge(name string, tags ...Tag) float64 {
	return m.get(name, tags).gauge
}

// GetTimings returns a copy of the recorded durations.
func (m *InMemoryMetrics) GetTimings(name string, tags ...Tag) []time.Duration {
	t := m.get(name, tags).timings
	if t == nil {
		return nil
	}
	return append([]time.Duration(nil), t...)
}

// Snapshot returns every series sorted by Series.
func (m *InMemoryMetrics) Snapshot() []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Sample, 0, len(m.series))
	for key, s := range m.series {
		out = append(out, Sample{
			Series:  key,
			Counter: s.counter,
			Gauge:   s.gauge,
			Timings: append([]time.Duration(nil), s.timings...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Series < out[j].Series })
	return out
}

// WriteText prints one line per series: counters and gauges as numbers,
// timings as count and total.
func (m *InMemoryMetrics) WriteText(w io.Writer) error {
	for _, s := range m.Snapshot() {
		var err error
		switch {
		case len(s.Timings) > 0:
			var total time.Duration
			for _, d := range s.Timings {
				total += d
			}
			_, err = fmt.Fprintf(w, "%s count=%d total=%s\n", s.Series, len(s.Timings), total)
		case s.Counter != 0:
			_, err = fmt.Fprintf(w, "%s %d\n", s.Series, s.Counter)
		default:
			_, err = fmt.Fprintf(w, "%s %g\n", s.Series, s.Gauge)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset drops every series.
func (m *InMemoryMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series = make(map[string]*series)
}

func seriesKey(name string, tags []Tag) string {
	if len(tags) == 0 {
		return name
	}
	pairs := make([]string, len(tags))
	for i, t := range tags {
		pairs[i] = t.Key + "=" + t.Value
	}
	sort.Strings(pairs)
	return name + "{" + strings.Join(pairs, ",") + "}"
}

// Metric names recorded by scheduling runs.
const (
	MetricOperationTotal    = "autoplan.operation.total"
	MetricOperationDuration = "autoplan.operation.duration"
	MetricOperationErrors   = "autoplan.operation.errors"

	MetricRunPlaced      = "autoplan.run.placed"
	MetricRunUnscheduled = "autoplan.run.unscheduled"
	MetricRunIgnored     = "autoplan.run.ignored"
	MetricRunDeferred    = "autoplan.run.deferred"
	MetricRunPinnedDrops = "autoplan.run.pinned_dropped"

	MetricBusyIntervals     = "autoplan.busy.intervals"
	MetricBusySourceFailure = "autoplan.busy.source_failures"

	MetricEventsPublished = "autoplan.events.published"
)
