package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// WebSocket specific metrics
	wsConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total number of WebSocket connections",
		},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	// Business metrics for the poll service

	votesCastTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poll_votes_cast_total",
			Help: "Total number of votes accepted",
		},
	)

	voteConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poll_vote_conflicts_total",
			Help: "Total number of votes rejected as duplicates",
		},
	)

	pollsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polls_created_total",
			Help: "Total number of polls created",
		},
	)

	feedReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "change_feed_reconnects_total",
			Help: "Total number of change feed reconnection attempts",
		},
	)

	presenceOnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_online_users",
			Help: "Number of users currently tracked as online",
		},
	)

	botVotesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_votes_cast_total",
			Help: "Total number of votes cast by simulated bots",
		},
	)
)

// MetricsMiddleware returns a Gin middleware that collects Prometheus metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpRequestsInFlight.Inc()

		c.Next()

		httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns the Prometheus metrics handler for Gin
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordWebSocketConnection increments WebSocket connection counters
func RecordWebSocketConnection() {
	wsConnectionsTotal.Inc()
	wsActiveConnections.Inc()
}

// RecordWebSocketDisconnection decrements active WebSocket connection gauge
func RecordWebSocketDisconnection() {
	wsActiveConnections.Dec()
}

// RecordVoteCast increments the accepted vote counter
func RecordVoteCast() {
	votesCastTotal.Inc()
}

// RecordVoteConflict increments the duplicate vote counter
func RecordVoteConflict() {
	voteConflictsTotal.Inc()
}

// RecordPollCreated increments the poll creation counter
func RecordPollCreated() {
	pollsCreatedTotal.Inc()
}

// RecordFeedReconnect increments the change feed reconnection counter
func RecordFeedReconnect() {
	feedReconnectsTotal.Inc()
}

// SetPresenceOnline sets the online user gauge
func SetPresenceOnline(count float64) {
	presenceOnlineUsers.Set(count)
}

// RecordBotVote increments the bot vote counter
func RecordBotVote() {
	botVotesTotal.Inc()
}
