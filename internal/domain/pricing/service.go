package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Service errors
var (
	ErrInvalidCropType      = fmt.Errorf("crop type is required")
	ErrInvalidMonth         = fmt.Errorf("month must be between 1 and 12")
	ErrPredictorUnavailable = fmt.Errorf("price prediction service is unavailable")
)

// Service produces advisory price suggestions. Results are cached per market
// segment; the cache is best-effort and a cache failure never fails a lookup.
type Service struct {
	predictor Predictor
	cache     Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new pricing service.
func NewService(predictor Predictor, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		predictor: predictor,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
	}
}

// Suggest returns an advisory price for a crop. Missing variety, region and
// quantity fall back to defaults, a zero month and year to the current date,
// and a missing season is derived from the month. The suggestion is
// informational only.
func (s *Service) Suggest(ctx context.Context, query SuggestQuery) (*Suggestion, error) {
	query.CropType = strings.ToLower(strings.TrimSpace(query.CropType))
	if query.CropType == "" {
		return nil, ErrInvalidCropType
	}
	if query.Month < 0 || query.Month > time.December {
		return nil, ErrInvalidMonth
	}

	query.Variety = strings.ToLower(strings.TrimSpace(query.Variety))
	if query.Variety == "" {
		query.Variety = DefaultVariety
	}
	query.Region = strings.ToLower(strings.TrimSpace(query.Region))
	if query.Region == "" {
		query.Region = DefaultRegion
	}
	if query.Quantity <= 0 {
		query.Quantity = DefaultQuantityKg
	}
	if query.Month == 0 {
		query.Month = s.now().Month()
	}
	if query.Year == 0 {
		query.Year = s.now().Year()
	}
	if query.Season == "" {
		query.Season = SeasonFor(query.Month)
	}

	key := cacheKey(query)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("price cache read failed", "key", key, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	suggestion, err := s.predictor.Predict(ctx, query)
	if err != nil {
		s.logger.Error("price prediction failed",
			"crop_type", query.CropType,
			"variety", query.Variety,
			"region", query.Region,
			"error", err)
		return nil, fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, suggestion); err != nil {
			s.logger.Warn("price cache write failed", "key", key, "error", err)
		}
	}

	return suggestion, nil
}

// MarketPrices returns the current reference price table.
func (s *Service) MarketPrices(ctx context.Context) ([]*MarketPrice, error) {
	prices, err := s.predictor.MarketPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPredictorUnavailable, err)
	}
	return prices, nil
}

func cacheKey(q SuggestQuery) string {
	return fmt.Sprintf("price:%s:%s:%s:%s:%g:%d:%d",
		q.CropType, q.Variety, q.Region, q.Season, q.Quantity, int(q.Month), q.Year)
}
