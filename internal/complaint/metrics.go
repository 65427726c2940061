package complaint

import "github.com/prometheus/client_golang/prometheus"

// Hooks are optional callbacks fired by the engine. Nil fields are skipped.
type Hooks struct {
	OnCreate               func(category Category, autoCategorized bool)
	OnTransition           func(from, to Status, outcome string)
	OnDuplicates           func(found int)
	OnDuplicateCheckFailed func()
	OnNotify               func(t NotificationType)
	OnPublish              func(outcome string)
	OnVote                 func()
}

func (h Hooks) created(c Category, auto bool) {
	if h.OnCreate != nil {
		h.OnCreate(c, auto)
	}
}

func (h Hooks) transitioned(from, to Status, outcome string) {
	if h.OnTransition != nil {
		h.OnTransition(from, to, outcome)
	}
}

func (h Hooks) duplicatesFound(n int) {
	if h.OnDuplicates != nil {
		h.OnDuplicates(n)
	}
}

func (h Hooks) duplicateCheckFailed() {
	if h.OnDuplicateCheckFailed != nil {
		h.OnDuplicateCheckFailed()
	}
}

func (h Hooks) notified(t NotificationType) {
	if h.OnNotify != nil {
		h.OnNotify(t)
	}
}

func (h Hooks) published(outcome string) {
	if h.OnPublish != nil {
		h.OnPublish(outcome)
	}
}

func (h Hooks) voted() {
	if h.OnVote != nil {
		h.OnVote()
	}
}

// Metrics holds Prometheus metrics for the complaint engine.
type Metrics struct {
	CreatedTotal           *prometheus.CounterVec
	TransitionsTotal       *prometheus.CounterVec
	DuplicateWarnings      prometheus.Histogram
	DuplicateCheckFailures prometheus.Counter
	NotificationsTotal     *prometheus.CounterVec
	PublishTotal           *prometheus.CounterVec
	VotesTotal             prometheus.Counter
}

// NewMetrics registers and returns complaint metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_complaints_created_total",
			Help: "Complaints created by category and how the category was chosen.",
		}, []string{"category", "source"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_status_transitions_total",
			Help: "Status transition attempts by edge and outcome.",
		}, []string{"from", "to", "outcome"}),
		DuplicateWarnings: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grievance_duplicate_warnings",
			Help:    "Duplicate candidates returned per submission.",
			Buckets: prometheus.LinearBuckets(0, 1, 4), // 0 .. 3
		}),
		DuplicateCheckFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grievance_duplicate_check_failures_total",
			Help: "Duplicate checks skipped because the store query failed.",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_notifications_total",
			Help: "Notifications persisted by type.",
		}, []string{"type"}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_realtime_publish_total",
			Help: "Best-effort realtime publishes by outcome.",
		}, []string{"outcome"}),
		VotesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grievance_votes_total",
			Help: "Votes recorded.",
		}),
	}

	reg.MustRegister(
		m.CreatedTotal,
		m.TransitionsTotal,
		m.DuplicateWarnings,
		m.DuplicateCheckFailures,
		m.NotificationsTotal,
		m.PublishTotal,
		m.VotesTotal,
	)

	return m
}

// Hooks returns Hooks that increment the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnCreate: func(c Category, auto bool) {
			source := "explicit"
			if auto {
				source = "categorizer"
			}
			m.CreatedTotal.WithLabelValues(string(c), source).Inc()
		},
		OnTransition: func(from, to Status, outcome string) {
			m.TransitionsTotal.WithLabelValues(string(from), string(to), outcome).Inc()
		},
		OnDuplicates: func(found int) {
			m.DuplicateWarnings.Observe(float64(found))
		},
		OnDuplicateCheckFailed: func() {
			m.DuplicateCheckFailures.Inc()
		},
		OnNotify: func(t NotificationType) {
			m.NotificationsTotal.WithLabelValues(string(t)).Inc()
		},
		OnPublish: func(outcome string) {
			m.PublishTotal.WithLabelValues(outcome).Inc()
		},
		OnVote: func() {
			m.VotesTotal.Inc()
		},
	}
}
