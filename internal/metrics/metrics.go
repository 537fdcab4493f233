// Package metrics records batch outcomes in a private Prometheus registry and
// writes them as a node-exporter textfile when the run ends.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"yt-transcripts/internal/model"
)

type Recorder struct {
	registry *prometheus.Registry

	outcomes  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	remaining prometheus.Gauge
	resolved  *prometheus.GaugeVec
	aborts    prometheus.Counter
	lastRun   prometheus.Gauge
}

func NewRecorder(provider string) *Recorder {
	labels := prometheus.Labels{"provider": provider}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "ytt_fetch_outcomes_total",
			Help:        "Processed items by outcome status and kind.",
			ConstLabels: labels,
		}, []string{"status", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ytt_fetch_duration_seconds",
			Help:        "Duration of a single transcript fetch.",
			ConstLabels: labels,
			Buckets:     []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"status"}),
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ytt_items_remaining",
			Help:        "Declared items still pending after the run.",
			ConstLabels: labels,
		}),
		resolved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "ytt_items_resolved",
			Help:        "Declared items with a resolved checkpoint entry.",
			ConstLabels: labels,
		}, []string{"status"}),
		aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ytt_runs_aborted_total",
			Help:        "Runs stopped because the provider appeared to block requests.",
			ConstLabels: labels,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ytt_last_run_timestamp_seconds",
			Help:        "Unix time the last run finished.",
			ConstLabels: labels,
		}),
	}
	r.registry.MustRegister(r.outcomes, r.duration, r.remaining, r.resolved, r.aborts, r.lastRun)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveItem(ev model.ItemEvent) {
	if r == nil {
		return
	}
	kind := ev.Outcome.Kind
	if kind == "" {
		kind = "none"
	}
	r.outcomes.WithLabelValues(ev.Outcome.Status, kind).Inc()
	r.duration.WithLabelValues(ev.Outcome.Status).Observe(ev.Elapsed.Seconds())
}

func (r *Recorder) ObserveSummary(s model.Summary) {
	if r == nil {
		return
	}
	r.remaining.Set(float64(s.Remaining))
	r.resolved.WithLabelValues(model.StatusSuccess).Set(float64(s.Succeeded))
	r.resolved.WithLabelValues(model.StatusPermanent).Set(float64(s.PermanentlyFailed))
	if s.Aborted {
		r.aborts.Inc()
	}
	r.lastRun.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes the registry in Prometheus text format. The file is
// replaced atomically by the client library.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || strings.TrimSpace(path) == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
