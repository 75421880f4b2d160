// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackDesk Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the auth core.
var (
	// loginsTotal counts login attempts by outcome
	// (ok, rejected, inactive, error).
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackdesk_logins_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"result"})

	// validationsTotal counts token validations by outcome
	// (ok, rejected, expired, error).
	validationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackdesk_session_validations_total",
		Help: "Total number of session token validations by outcome",
	}, []string{"result"})

	// resetRequestsTotal counts forgot-password requests by outcome.
	// Labels never distinguish existing from unknown emails in responses;
	// this is operator-only visibility.
	resetRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackdesk_reset_requests_total",
		Help: "Total number of password reset requests by outcome",
	}, []string{"result"})

	// sessionsSweptTotal counts sessions removed by the sweeper.
	sessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stackdesk_sessions_swept_total",
		Help: "Total number of expired sessions removed by the sweeper",
	})

	// resetTokensSweptTotal counts reset tokens removed by the sweeper.
	resetTokensSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stackdesk_reset_tokens_swept_total",
		Help: "Total number of stale reset tokens removed by the sweeper",
	})
)

func recordLogin(result string)        { loginsTotal.WithLabelValues(result).Inc() }
func recordValidation(result string)   { validationsTotal.WithLabelValues(result).Inc() }
func recordResetRequest(result string) { resetRequestsTotal.WithLabelValues(result).Inc() }
func recordSessionsSwept(n int64)      { sessionsSweptTotal.Add(float64(n)) }
func recordResetTokensSwept(n int64)   { resetTokensSweptTotal.Add(float64(n)) }
