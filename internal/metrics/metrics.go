package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for the booking and email-queue flows.
// A nil receiver is a no-op so callers never need to guard.
type SchedulingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	emailsScheduled prometheus.Counter
	emailsDispatch  *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		emailsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "emails",
			Name:      "scheduled_total",
			Help:      "Email queue entries created",
		}),
		emailsDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "emails",
			Name:      "dispatched_total",
			Help:      "Dispatcher send attempts by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.emailsScheduled, m.emailsDispatch)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveEmailsScheduled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.emailsScheduled.Add(float64(n))
}

func (m *SchedulingMetrics) ObserveDispatch(result string) {
	if m == nil {
		return
	}
	m.emailsDispatch.WithLabelValues(result).Inc()
}
