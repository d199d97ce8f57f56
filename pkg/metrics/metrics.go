// Package metrics provides Prometheus counters for a preview generation run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vidsprite"

// Recorder holds the counters of one run in its own registry.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	packets      prometheus.Counter
	skipped      prometheus.Counter
	decoded      prometheus.Counter
	decodeErrors prometheus.Counter
	accepted     *prometheus.CounterVec
	artifacts    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	runSeconds   prometheus.Gauge
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		packets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_total",
			Help:      "Video packets read from the source",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_skipped_total",
			Help:      "Video packets skipped because no output was due",
		}),
		decoded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Frames produced by the decoder",
		}),
		decodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Packets that failed to decode",
		}),
		accepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_accepted_total",
			Help:      "Frames accepted by an output",
		}, []string{"output"}),
		artifacts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      "Files written by an output",
		}, []string{"output"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "output_failures_total",
			Help:      "Outputs that ended in error",
		}, []string{"output"}),
		runSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the run",
		}),
	}
}

// PacketRead counts a packet read from the source.
func (r *Recorder) PacketRead() {
	if r == nil {
		return
	}
	r.packets.Inc()
}

// PacketSkipped counts a packet that was not decoded.
func (r *Recorder) PacketSkipped() {
	if r == nil {
		return
	}
	r.skipped.Inc()
}

// FramesDecoded counts n decoded frames.
func (r *Recorder) FramesDecoded(n int) {
	if r == nil {
		return
	}
	r.decoded.Add(float64(n))
}

// DecodeError counts a packet that failed to decode.
func (r *Recorder) DecodeError() {
	if r == nil {
		return
	}
	r.decodeErrors.Inc()
}

// FrameAccepted counts a frame accepted by output.
func (r *Recorder) FrameAccepted(output string) {
	if r == nil {
		return
	}
	r.accepted.WithLabelValues(output).Inc()
}

// ArtifactsWritten counts n files written by output.
func (r *Recorder) ArtifactsWritten(output string, n int) {
	if r == nil {
		return
	}
	r.artifacts.WithLabelValues(output).Add(float64(n))
}

// OutputFailed counts a failed output.
func (r *Recorder) OutputFailed(output string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(output).Inc()
}

// RunFinished records the run duration.
func (r *Recorder) RunFinished(seconds float64) {
	if r == nil {
		return
	}
	r.runSeconds.Set(seconds)
}

// Registry returns the registry holding the run's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
