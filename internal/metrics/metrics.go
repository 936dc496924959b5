// Package metrics exposes Prometheus collectors for the interactions service.
package metrics

import (
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rvald/interactions/internal/interactions"
)

var (
	// RequestsTotal counts handled requests by interaction type and outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interactions_requests_total",
		Help: "The total number of interaction requests handled",
	}, []string{"type", "outcome"})

	// RequestDuration observes time spent in the dispatcher.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interactions_request_duration_seconds",
		Help:    "Time spent handling an interaction request",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
	}, []string{"type"})

	// SignatureTotal counts verification results.
	SignatureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interactions_signature_total",
		Help: "Signature verification results",
	}, []string{"result"}) // "ok", "canonicalized", "bypassed", "rejected"

	// TokenRefreshTotal counts OAuth2 token refreshes.
	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interactions_token_refresh_total",
		Help: "OAuth2 client credentials refreshes",
	}, []string{"result"}) // "ok", "error"

	// FeedSubscribers tracks connected event feed subscribers.
	FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interactions_feed_subscribers",
		Help: "The number of connected event feed subscribers",
	})
)

// Handler returns the HTTP handler for Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Observer records dispatcher outcomes.
type Observer struct{}

func (Observer) ObserveInteraction(o interactions.Outcome) {
	typ := TypeLabel(o.Type)
	RequestsTotal.WithLabelValues(typ, OutcomeLabel(o)).Inc()
	RequestDuration.WithLabelValues(typ).Observe(o.Duration.Seconds())
	SignatureTotal.WithLabelValues(signatureLabel(o)).Inc()
}

// ObserveTokenRefresh is suitable as a credentials.Cache OnRefresh hook.
func ObserveTokenRefresh(err error) {
	if err != nil {
		TokenRefreshTotal.WithLabelValues("error").Inc()
		return
	}
	TokenRefreshTotal.WithLabelValues("ok").Inc()
}

// TypeLabel names an interaction type; zero means the body never parsed.
func TypeLabel(t discordgo.InteractionType) string {
	switch t {
	case discordgo.InteractionPing:
		return "ping"
	case discordgo.InteractionApplicationCommand:
		return "command"
	case discordgo.InteractionMessageComponent:
		return "component"
	case discordgo.InteractionApplicationCommandAutocomplete:
		return "autocomplete"
	case discordgo.InteractionModalSubmit:
		return "modal_submit"
	case 0:
		return "unknown"
	default:
		return "other"
	}
}

// OutcomeLabel is "ok" for a 200 without error, otherwise the error kind.
func OutcomeLabel(o interactions.Outcome) string {
	if o.Err == nil {
		return "ok"
	}
	return interactions.KindOf(o.Err).String()
}

func signatureLabel(o interactions.Outcome) string {
	switch {
	case interactions.KindOf(o.Err) == interactions.KindAuth:
		return "rejected"
	case o.Bypassed:
		return "bypassed"
	case o.Canonicalized:
		return "canonicalized"
	default:
		return "ok"
	}
}
