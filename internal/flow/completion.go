// Package flow implements the shipping assistant's dialogue engine.
//
// This file holds the shared completion routines. Both the deterministic
// router and the LLM fallback go through these, so validation and side
// effects are identical regardless of which path gathered the fields.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avocadolabs/photon/internal/models"
)

// retryMessage is shown whenever a collaborator call fails. Raw upstream
// errors are never rendered to the user.
const retryMessage = "Unable to retrieve data at the moment. Please try again."

// completeQuote fetches and renders a quote between the given pincodes using
// the weight and dimensions held in state. When terminal is true, the state
// resets after rendering; the mid-shipment quote keeps state alive so the
// user can pick a service next. The bool reports whether the quote succeeded,
// so a non-terminal caller can rewind its step on failure.
//
// A non-nil error means the collaborator itself failed; the caller renders a
// retry prompt and leaves state unchanged.
func (e *Engine) completeQuote(ctx context.Context, s *ConversationState, fromPincode, toPincode string, terminal bool) (*models.ChatResponse, bool, error) {
	if s.WeightKg == nil || s.LengthCm == nil || s.WidthCm == nil || s.HeightCm == nil {
		return nil, false, fmt.Errorf("completeQuote called with incomplete fields")
	}

	result, err := e.shipping.GetQuote(ctx, fromPincode, toPincode, *s.WeightKg, *s.LengthCm, *s.WidthCm, *s.HeightCm)
	if err != nil {
		slog.Error("Engine.completeQuote: quote request failed", "error", err, "from", fromPincode, "to", toPincode)
		return nil, false, &UpstreamError{Op: "get quote", Err: err}
	}

	resp, ok := FormatQuote(s, result)
	slog.Debug("Engine.completeQuote: quote rendered", "ok", ok, "terminal", terminal, "services", len(s.AvailableServices))
	if terminal {
		s.Reset()
	}
	return resp, ok, nil
}

// completeTracking fetches and renders a tracking result, then resets state.
func (e *Engine) completeTracking(ctx context.Context, s *ConversationState, trackingNumber string) (*models.ChatResponse, error) {
	result, err := e.shipping.GetTracking(ctx, trackingNumber)
	if err != nil {
		slog.Error("Engine.completeTracking: tracking request failed", "error", err, "trackingNumber", trackingNumber)
		return nil, &UpstreamError{Op: "get tracking", Err: err}
	}

	resp := FormatTracking(result)
	s.Reset()
	return resp, nil
}
