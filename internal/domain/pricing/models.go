package pricing

import "time"

// Default values applied when a query leaves a dimension blank. The quantity
// default matches the prediction model's own fallback lot size.
const (
	DefaultVariety    = "standard"
	DefaultRegion     = "national_average"
	DefaultQuantityKg = 100
)

// Season is the Philippine cropping season a price suggestion is computed for.
type Season string

const (
	SeasonSummer Season = "summer"
	SeasonWet    Season = "wet"
	SeasonDry    Season = "dry"
)

// SeasonFor derives the season from a calendar month: March-May is summer,
// June-October is wet, the rest is dry.
func SeasonFor(month time.Month) Season {
	switch {
	case month >= time.March && month <= time.May:
		return SeasonSummer
	case month >= time.June && month <= time.October:
		return SeasonWet
	default:
		return SeasonDry
	}
}

// SuggestQuery identifies the market segment to price. Quantity is the lot
// size in kilograms and feeds the prediction model. Empty Variety and Region
// fall back to the defaults, a zero Month and Year to the current date, and
// an empty Season is derived from the month.
type SuggestQuery struct {
	CropType string
	Variety  string
	Region   string
	Quantity float64
	Month    time.Month
	Year     int
	Season   Season
}

// Suggestion is an advisory price for a crop. Prices are centavos per
// kilogram. Suggestions never gate what a farmer may ask or a buyer may bid.
type Suggestion struct {
	CropType       string  `json:"crop_type"`
	Variety        string  `json:"variety"`
	Region         string  `json:"region"`
	Season         Season  `json:"season"`
	SuggestedPrice int64   `json:"suggested_price"`
	MarketPrice    int64   `json:"market_price"`
	Confidence     float64 `json:"confidence"`
}

// MarketPrice is one row of the reference price table exposed for browsing.
type MarketPrice struct {
	CropType string `json:"crop_type"`
	Variety  string `json:"variety"`
	Region   string `json:"region"`
	Price    int64  `json:"price"`
}
