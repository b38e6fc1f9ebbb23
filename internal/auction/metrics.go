package auction

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Rejection reasons recorded on the bids.rejected counter.
const (
	reasonNotFound            = "not_found"
	reasonInsufficientCredits = "insufficient_credits"
	reasonRosterFull          = "roster_full"
	reasonBidTooLow           = "bid_too_low"
	reasonConflict            = "conflict"
	reasonInternal            = "internal"
)

type metrics struct {
	bidsAccepted metric.Int64Counter
	bidsRejected metric.Int64Counter
	finalized    metric.Int64Counter
	creditsSpent metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter("github.com/jensholdgaard/cricket-auction/internal/auction")

	var (
		m   metrics
		err error
	)
	if m.bidsAccepted, err = meter.Int64Counter("auction.bids.accepted",
		metric.WithDescription("Bids that became the highest bid")); err != nil {
		return nil, fmt.Errorf("creating bids.accepted counter: %w", err)
	}
	if m.bidsRejected, err = meter.Int64Counter("auction.bids.rejected",
		metric.WithDescription("Bids rejected by validation")); err != nil {
		return nil, fmt.Errorf("creating bids.rejected counter: %w", err)
	}
	if m.finalized, err = meter.Int64Counter("auction.finalized",
		metric.WithDescription("Auctions settled with a winner")); err != nil {
		return nil, fmt.Errorf("creating finalized counter: %w", err)
	}
	if m.creditsSpent, err = meter.Int64Counter("auction.credits.spent",
		metric.WithDescription("Credits moved from team budgets to used credits"),
		metric.WithUnit("{credit}")); err != nil {
		return nil, fmt.Errorf("creating credits.spent counter: %w", err)
	}
	return &m, nil
}

func (m *metrics) rejected(ctx context.Context, err error) {
	m.bidsRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		return reasonInsufficientCredits
	case errors.Is(err, ErrRosterFull):
		return reasonRosterFull
	case errors.Is(err, ErrBidTooLow):
		return reasonBidTooLow
	case errors.Is(err, ErrNotFound):
		return reasonNotFound
	case errors.Is(err, ErrConflict):
		return reasonConflict
	default:
		return reasonInternal
	}
}
