// Package flow contains the per-modality payment state machines. Each
// flow is an explicit sequence of awaited steps: server round-trip
// first, then any processor confirmation that depends on it, with an
// early return per state.
package flow

import (
	"context"
	"errors"
	"sync/atomic"
)

// Flow name labels used for metrics and logs.
const (
	FlowCard    = "card"
	FlowMandate = "mandate"
	FlowWallet  = "wallet"
	FlowExpress = "express"
)

// ErrSubmissionInFlight is returned when a submit arrives while the
// same form is still processing a previous one.
var ErrSubmissionInFlight = errors.New("flow: submission already in flight")

// Handler is the shared capability set of the four payment modalities.
// Setup binds the flow to its page surface; the submit/confirm entry
// points are modality-specific.
type Handler interface {
	Setup(ctx context.Context) error
}

// submitGuard enforces one in-flight submission per form.
type submitGuard struct {
	busy atomic.Bool
}

func (g *submitGuard) begin() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *submitGuard) end() {
	g.busy.Store(false)
}
