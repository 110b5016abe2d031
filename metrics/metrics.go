package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	holdRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "hold_requests_total",
			Help:      "Count of hold acquisitions by result.",
		},
		[]string{"result"},
	)

	holdReleases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "hold_releases_total",
			Help:      "Count of hold releases by reason.",
		},
		[]string{"reason"},
	)

	bookingCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "booking_commits_total",
			Help:      "Count of booking commit attempts by result.",
		},
		[]string{"result"},
	)

	activeHolds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slotwise",
			Name:      "active_holds",
			Help:      "Number of currently active holds.",
		},
	)

	roomSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slotwise",
			Name:      "room_subscribers",
			Help:      "Number of live room subscriptions across all scopes.",
		},
	)

	connectedSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slotwise",
			Name:      "connected_sessions",
			Help:      "Number of live realtime sessions.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			holdRequests, holdReleases, bookingCommits,
			activeHolds, roomSubscribers, connectedSessions,
		)
	})
}

func IncHoldRequest(result string) {
	holdRequests.WithLabelValues(result).Inc()
}

func IncHoldRelease(reason string) {
	holdReleases.WithLabelValues(reason).Inc()
}

func IncBookingCommit(result string) {
	bookingCommits.WithLabelValues(result).Inc()
}

func SetActiveHolds(n int) {
	activeHolds.Set(float64(n))
}

func AddRoomSubscribers(delta int) {
	roomSubscribers.Add(float64(delta))
}

func AddConnectedSessions(delta int) {
	connectedSessions.Add(float64(delta))
}
