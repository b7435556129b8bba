package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - бизнес-счетчики API.
type Metrics struct {
	UsersCreated  prometheus.Counter
	ProgressSaves prometheus.Counter
	SkillGrants   *prometheus.CounterVec
	EventsTracked *prometheus.CounterVec
}

// NewMetrics регистрирует счетчики в переданном реестре.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "sats_users_created_total",
			Help: "Users lazily created on first sync.",
		}),
		ProgressSaves: factory.NewCounter(prometheus.CounterOpts{
			Name: "sats_progress_saves_total",
			Help: "Progress mirrors written.",
		}),
		SkillGrants: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sats_skill_grants_total",
			Help: "Skill grant requests by result.",
		}, []string{"granted"}),
		EventsTracked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sats_events_tracked_total",
			Help: "Analytics events by outcome (queued, stored, duplicate).",
		}, []string{"outcome"}),
	}
}
