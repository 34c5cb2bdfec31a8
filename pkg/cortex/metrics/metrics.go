package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "redai"

// Recorder holds the agent loop counters on a private registry
type Recorder struct {
	registry   *prometheus.Registry
	steps      *prometheus.CounterVec
	commands   *prometheus.CounterVec
	llmCalls   *prometheus.CounterVec
	objectives *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewRecorder creates and registers the agent metrics
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_steps_total",
			Help:      "Agent loop steps by action kind.",
		}, []string{"project", "action"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Executed commands by outcome.",
		}, []string{"project", "outcome"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM completions by outcome.",
		}, []string{"model", "outcome"}),
		objectives: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objectives_total",
			Help:      "Objectives by final outcome.",
		}, []string{"project", "outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall time of executed commands.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 120, 300, 900},
		}),
	}
	r.registry.MustRegister(r.steps, r.commands, r.llmCalls, r.objectives, r.duration)
	return r
}

// Step counts one loop step
func (r *Recorder) Step(project, action string) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(project, action).Inc()
}

// Command counts one executed command and observes its duration
func (r *Recorder) Command(project, outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(project, outcome).Inc()
	r.duration.Observe(seconds)
}

// LLMCall counts one completion attempt
func (r *Recorder) LLMCall(model, outcome string) {
	if r == nil {
		return
	}
	r.llmCalls.WithLabelValues(model, outcome).Inc()
}

// Objective counts one finished objective
func (r *Recorder) Objective(project, outcome string) {
	if r == nil {
		return
	}
	r.objectives.WithLabelValues(project, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
