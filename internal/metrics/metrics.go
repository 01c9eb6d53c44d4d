package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helpme_bot",
			Name:      "reservation_total",
			Help:      "Count of reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	shiftCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "helpme_bot",
			Name:      "shift_created_total",
			Help:      "Count of shifts posted by managers.",
		},
	)

	managerDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helpme_bot",
			Name:      "manager_decision_total",
			Help:      "Count of manager confirmation decisions.",
		},
		[]string{"decision"},
	)

	eventsArmed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helpme_bot",
			Name:      "scheduled_event_armed_total",
			Help:      "Count of scheduled events armed, by kind.",
		},
		[]string{"kind"},
	)

	eventsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helpme_bot",
			Name:      "scheduled_event_fired_total",
			Help:      "Count of scheduled events fired, by kind.",
		},
		[]string{"kind"},
	)

	sendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "helpme_bot",
			Name:      "send_failures_total",
			Help:      "Count of notification deliveries that failed and were discarded.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationTotal,
			shiftCreated,
			managerDecision,
			eventsArmed,
			eventsFired,
			sendFailures,
		)
	})
}

func IncReservation(outcome string) {
	reservationTotal.WithLabelValues(outcome).Inc()
}

func IncShiftCreated() {
	shiftCreated.Inc()
}

func IncManagerDecision(decision string) {
	managerDecision.WithLabelValues(decision).Inc()
}

func IncEventArmed(kind string) {
	eventsArmed.WithLabelValues(kind).Inc()
}

func IncEventFired(kind string) {
	eventsFired.WithLabelValues(kind).Inc()
}

func IncSendFailure() {
	sendFailures.Inc()
}
