package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harborline/freight-notifier/pkg/observability"
)

// ErrExhausted reports that every configured transport was attempted and
// none succeeded.
var ErrExhausted = errors.New("all transports failed")

// ErrNotConfigured reports that no transport in the chain had credentials.
var ErrNotConfigured = errors.New("no transport is configured")

// Chain tries an ordered list of transports until one delivers. The order
// is fixed at startup; no attempt is retried within a single dispatch.
type Chain struct {
	candidates []Transport
	logger     *observability.Logger
}

func NewChain(logger *observability.Logger, candidates ...Transport) *Chain {
	return &Chain{candidates: candidates, logger: logger}
}

// OrderCandidates arranges transports by deployment preference: constrained
// network environments put HTTP providers ahead of SMTP, everywhere else
// SMTP goes first. The sort is stable, so equally-preferred transports keep
// their declaration order.
func OrderCandidates(constrainedNetwork bool, candidates ...Transport) []Transport {
	ordered := make([]Transport, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i], constrainedNetwork) < rank(ordered[j], constrainedNetwork)
	})
	return ordered
}

func rank(t Transport, constrainedNetwork bool) int {
	if (t.Kind() == "http") == constrainedNetwork {
		return 0
	}
	return 1
}

// Dispatch runs the failover loop. On success it returns the name of the
// transport that delivered and its detail. On total failure the error is
// ErrExhausted wrapping every attempted transport's detail in attempt
// order, or ErrNotConfigured when no candidate had credentials.
func (c *Chain) Dispatch(ctx context.Context, req Request) (usedTransport string, detail string, err error) {
	var failures []string

	for _, t := range c.candidates {
		if !t.Configured() {
			c.logger.Debug("skipping unconfigured transport", "transport", t.Name())
			continue
		}

		start := time.Now()
		res := t.Send(ctx, req)
		elapsed := time.Since(start)

		if res.Succeeded {
			c.logger.Info("message delivered",
				"transport", t.Name(), "detail", res.Detail,
				"to", len(req.To), "cc", len(req.Cc), "took", elapsed)
			dispatchAttempts.WithLabelValues(t.Name(), "success").Inc()
			dispatchLatency.WithLabelValues(t.Name()).Observe(elapsed.Seconds())
			return t.Name(), res.Detail, nil
		}

		c.logger.Warn("transport attempt failed",
			"transport", t.Name(), "detail", res.Detail, "took", elapsed)
		dispatchAttempts.WithLabelValues(t.Name(), "failure").Inc()
		dispatchLatency.WithLabelValues(t.Name()).Observe(elapsed.Seconds())
		failures = append(failures, fmt.Sprintf("%s: %s", t.Name(), res.Detail))
	}

	if len(failures) == 0 {
		c.logger.Error("dispatch impossible: no transport configured")
		return "", "", ErrNotConfigured
	}

	joined := strings.Join(failures, "; ")
	c.logger.Error("dispatch exhausted", "attempts", len(failures), "detail", joined)
	return "", joined, fmt.Errorf("%w: %s", ErrExhausted, joined)
}

// Candidates reports the chain's transport names in attempt order, with
// their configuration state. Used by the delivery-status endpoint.
func (c *Chain) Candidates() []CandidateStatus {
	out := make([]CandidateStatus, 0, len(c.candidates))
	for _, t := range c.candidates {
		out = append(out, CandidateStatus{Name: t.Name(), Kind: t.Kind(), Configured: t.Configured()})
	}
	return out
}

// CandidateStatus describes one chain entry for operators.
type CandidateStatus struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Configured bool   `json:"configured"`
}
