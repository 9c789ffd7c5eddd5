// Package metrics exposes the Prometheus collectors the token engine
// observes. Everything is registered on the default registry and served by
// the router's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokensIssued counts token endpoint outcomes by grant type.
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signet",
		Name:      "tokens_issued_total",
		Help:      "Token endpoint requests by grant type and outcome.",
	}, []string{"grant_type", "outcome"})

	// RefreshReuseDetected counts refresh token reuse events. Each one also
	// revoked an authorization family.
	RefreshReuseDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "signet",
		Name:      "refresh_reuse_detected_total",
		Help:      "Consumed refresh tokens presented again outside the reuse leeway.",
	})

	// AccountsLocked counts lockout windows opened by repeated failures.
	AccountsLocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "signet",
		Name:      "accounts_locked_total",
		Help:      "Accounts locked after exceeding the failed sign-in threshold.",
	})

	// SessionsSignedOut counts logout operations that flipped a live session.
	SessionsSignedOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "signet",
		Name:      "sessions_signed_out_total",
		Help:      "Sessions transitioned from signed-in to signed-out.",
	})
)
