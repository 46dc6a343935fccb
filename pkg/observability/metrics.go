package observability

import (
	"context"

	"github.com/PixelPioneer1807/adventure/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the session counters.
type Metrics struct {
	Starts       prometheus.Counter
	Choices      *prometheus.CounterVec
	Endings      *prometheus.CounterVec
	Saves        *prometheus.CounterVec
	Loads        *prometheus.CounterVec
	Stale        *prometheus.CounterVec
	SkippedTicks prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Starts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adventure_session_starts_total",
			Help: "Total number of session starts and restarts",
		}),
		Choices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adventure_choices_total",
			Help: "Total number of applied choices",
		}, []string{"story_id"}),
		Endings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adventure_endings_total",
			Help: "Total number of endings reached",
		}, []string{"story_id", "outcome"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adventure_saves_total",
			Help: "Save round trips by kind and result",
		}, []string{"kind", "result"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adventure_loads_total",
			Help: "Load round trips by result",
		}, []string{"result"}),
		Stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adventure_stale_responses_total",
			Help: "Persistence responses discarded because the session moved on",
		}, []string{"op"}),
		SkippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adventure_autosave_skipped_total",
			Help: "Auto-save ticks skipped because a save was in flight",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Starts, m.Choices, m.Endings, m.Saves, m.Loads, m.Stale, m.SkippedTicks)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStart: func(_ context.Context, _ *domain.SessionEvent) {
			m.Starts.Inc()
		},
		OnChoice: func(_ context.Context, e *domain.ChoiceEvent) {
			m.Choices.WithLabelValues(e.StoryID).Inc()
		},
		OnEnding: func(_ context.Context, e *domain.SessionEvent) {
			outcome := "losing"
			if e.Winning {
				outcome = "winning"
			}
			m.Endings.WithLabelValues(e.StoryID, outcome).Inc()
		},
		OnSave: func(_ context.Context, e *domain.PersistenceEvent) {
			if e.Skipped {
				m.SkippedTicks.Inc()
				return
			}
			if e.Stale {
				m.Stale.WithLabelValues("save").Inc()
				return
			}
			kind := "manual"
			if e.AutoSave {
				kind = "auto"
			}
			m.Saves.WithLabelValues(kind, result(e.Err)).Inc()
		},
		OnLoad: func(_ context.Context, e *domain.PersistenceEvent) {
			if e.Stale {
				m.Stale.WithLabelValues("load").Inc()
				return
			}
			m.Loads.WithLabelValues(result(e.Err)).Inc()
		},
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
