// Package stats provides a minimal StatsReceiver interface backed by
// go-metrics. We wrap go-metrics so instrument creation and naming stay in
// one place and so the dependency does not leak into the scheduling core.
//
// A StatsReceiver can be passed down a call tree and scoped at each level:
//
//	stat.Scope("controller").Counter("dispatchCounter").Inc(1)
package stats

import (
	"encoding/json"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rcrowley/go-metrics"
)

// StatsReceiver is the entry point components use to record instruments.
type StatsReceiver interface {
	// Scope returns a receiver that namespaces all instrument names with the
	// given path elements, joined by '/'.
	Scope(scope ...string) StatsReceiver

	// Counter provides a monotonically increasing event counter.
	Counter(name ...string) Counter

	// Gauge holds an int64 value that can be set arbitrarily.
	Gauge(name ...string) Gauge

	// GaugeFloat holds a float64 value that can be set arbitrarily.
	GaugeFloat(name ...string) GaugeFloat

	// Latency records durations, typically via defer:
	//
	//	defer stat.Latency(SchedDecisionLatency_ms).Time().Stop()
	Latency(name ...string) Latency

	// Render marshals the current registry contents to JSON.
	Render(pretty bool) []byte
}

type Counter interface {
	Inc(int64)
	Count() int64
	Clear()
}

type Gauge interface {
	Update(int64)
	Value() int64
}

type GaugeFloat interface {
	Update(float64)
	Value() float64
}

type Latency interface {
	Time() StopWatch
	RecordDuration(time.Duration)
}

// StopWatch records the elapsed time since the matching Time() call.
type StopWatch interface {
	Stop()
}

// DefaultStatsReceiver returns a receiver backed by a fresh registry.
func DefaultStatsReceiver() StatsReceiver {
	return &defaultStatsReceiver{registry: metrics.NewRegistry()}
}

// NilStatsReceiver returns a receiver that discards everything. Callers that
// are handed a nil StatsReceiver should substitute this.
func NilStatsReceiver(scope ...string) StatsReceiver {
	return nilStatsReceiver{}
}

type defaultStatsReceiver struct {
	registry metrics.Registry
	scope    []string
}

func (s *defaultStatsReceiver) Scope(scope ...string) StatsReceiver {
	return &defaultStatsReceiver{s.registry, s.scoped(scope...)}
}

func (s *defaultStatsReceiver) Counter(name ...string) Counter {
	return s.registry.GetOrRegister(s.scopedName(name...), metrics.NewCounter).(metrics.Counter)
}

func (s *defaultStatsReceiver) Gauge(name ...string) Gauge {
	return s.registry.GetOrRegister(s.scopedName(name...), metrics.NewGauge).(metrics.Gauge)
}

func (s *defaultStatsReceiver) GaugeFloat(name ...string) GaugeFloat {
	return s.registry.GetOrRegister(s.scopedName(name...), metrics.NewGaugeFloat64).(metrics.GaugeFloat64)
}

func (s *defaultStatsReceiver) Latency(name ...string) Latency {
	return &latency{s.registry.GetOrRegister(s.scopedName(name...), metrics.NewTimer).(metrics.Timer)}
}

func (s *defaultStatsReceiver) Render(pretty bool) []byte {
	snapshot := map[string]interface{}{}
	s.registry.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case metrics.Counter:
			snapshot[name] = m.Count()
		case metrics.Gauge:
			snapshot[name] = m.Value()
		case metrics.GaugeFloat64:
			snapshot[name] = m.Value()
		case metrics.Timer:
			t := m.Snapshot()
			snapshot[name] = map[string]interface{}{
				"count": t.Count(),
				"avg":   time.Duration(int64(t.Mean())).String(),
				"max":   time.Duration(t.Max()).String(),
			}
		default:
			log.Info("Unrecognized render instrument: ", name)
		}
	})
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(snapshot, "", "  ")
	} else {
		b, err = json.Marshal(snapshot)
	}
	if err != nil {
		log.WithFields(log.Fields{"err": err}).Error("Could not render stats registry")
		return nil
	}
	return b
}

func (s *defaultStatsReceiver) scoped(scope ...string) []string {
	base := make([]string, len(s.scope))
	copy(base, s.scope)
	return append(base, scope...)
}

// Hierarchical names use '/' as the separator, so any '/' characters within a
// single name element are replaced rather than allowed to fake a deeper path.
func (s *defaultStatsReceiver) scopedName(name ...string) string {
	elems := s.scoped(name...)
	for i, e := range elems {
		elems[i] = strings.Replace(e, "/", "_SLASH_", -1)
	}
	return strings.Join(elems, "/")
}

type latency struct {
	timer metrics.Timer
}

func (l *latency) Time() StopWatch {
	return &stopWatch{start: time.Now(), timer: l.timer}
}

func (l *latency) RecordDuration(d time.Duration) {
	l.timer.Update(d)
}

type stopWatch struct {
	start time.Time
	timer metrics.Timer
}

func (s *stopWatch) Stop() {
	s.timer.UpdateSince(s.start)
}

type nilStatsReceiver struct{}

func (s nilStatsReceiver) Scope(scope ...string) StatsReceiver { return s }
func (s nilStatsReceiver) Counter(name ...string) Counter      { return nilCounter{} }
func (s nilStatsReceiver) Gauge(name ...string) Gauge          { return nilGauge{} }
func (s nilStatsReceiver) GaugeFloat(name ...string) GaugeFloat {
	return nilGaugeFloat{}
}
func (s nilStatsReceiver) Latency(name ...string) Latency { return nilLatency{} }
func (s nilStatsReceiver) Render(pretty bool) []byte      { return []byte("{}") }

type nilCounter struct{}

func (nilCounter) Inc(int64)    {}
func (nilCounter) Count() int64 { return 0 }
func (nilCounter) Clear()       {}

type nilGauge struct{}

func (nilGauge) Update(int64) {}
func (nilGauge) Value() int64 { return 0 }

type nilGaugeFloat struct{}

func (nilGaugeFloat) Update(float64) {}
func (nilGaugeFloat) Value() float64 { return 0 }

type nilLatency struct{}

func (nilLatency) Time() StopWatch              { return nilStopWatch{} }
func (nilLatency) RecordDuration(time.Duration) {}

type nilStopWatch struct{}

func (nilStopWatch) Stop() {}
