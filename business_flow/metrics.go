package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audience count requests partitioned by cache result
	audienceCountsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailpiece_audience_counts_total",
			Help: "Audience count requests by cache outcome",
		},
		[]string{"cache"},
	)

	// Purchases partitioned by outcome
	audiencePurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailpiece_audience_purchases_total",
			Help: "Audience purchases by outcome",
		},
		[]string{"outcome"},
	)

	contactsPurchasedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailpiece_contacts_purchased_total",
			Help: "Contacts imported into recipient lists",
		},
		[]string{"mock"},
	)

	trackingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailpiece_tracking_events_total",
			Help: "Attribution events recorded",
		},
		[]string{"type"},
	)

	campaignStatusChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailpiece_campaign_status_changes_total",
			Help: "Campaign status transitions",
		},
		[]string{"status"},
	)
)
