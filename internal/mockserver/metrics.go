// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered per server so tests can run several at once.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	FramesSent      *prometheus.CounterVec
	Elicitations    *prometheus.CounterVec
	ChatsCreated    prometheus.Counter
}

// NewMetrics creates the server metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rigchat_mock_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rigchat_mock_http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"method", "route"},
		),
		FramesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rigchat_mock_frames_sent_total",
				Help: "Total stream frames sent",
			},
			[]string{"event"},
		),
		Elicitations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rigchat_mock_elicitations_total",
				Help: "Elicitations by outcome",
			},
			[]string{"outcome"}, // "requested", "accept", "decline", "cancel"
		),
		ChatsCreated: f.NewCounter(
			prometheus.CounterOpts{
				Name: "rigchat_mock_chats_created_total",
				Help: "Total chats created",
			},
		),
	}
}
