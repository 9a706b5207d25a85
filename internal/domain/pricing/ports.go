package pricing

import "context"

// Predictor is the external price-prediction service.
type Predictor interface {
	// Predict returns a price suggestion for the given segment.
	Predict(ctx context.Context, query SuggestQuery) (*Suggestion, error)

	// MarketPrices returns the current reference price table.
	MarketPrices(ctx context.Context) ([]*MarketPrice, error)
}

// Cache stores suggestions keyed by market segment so repeated lookups skip
// the predictor. A miss is reported as (nil, nil).
type Cache interface {
	Get(ctx context.Context, key string) (*Suggestion, error)
	Set(ctx context.Context, key string, s *Suggestion) error
}
