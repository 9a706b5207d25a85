package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/agribid/agribid/internal/domain/pricing"
)

// HTTPPredictor calls the external price-prediction service over HTTP.
// The service quotes prices in pesos per kilogram; this client converts to
// centavos at the boundary so the rest of the system only sees integers.
type HTTPPredictor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPPredictor creates a predictor client for the given base URL.
func NewHTTPPredictor(baseURL string, timeout time.Duration) *HTTPPredictor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPredictor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	CropType string  `json:"crop_type"`
	Variety  string  `json:"variety"`
	Quantity float64 `json:"quantity"`
	Region   string  `json:"region"`
	Season   string  `json:"season"`
	Month    int     `json:"month"`
	Year     int     `json:"year"`
}

type predictResponse struct {
	SuggestedPrice float64 `json:"suggested_price"`
	MarketPrice    float64 `json:"market_price"`
	Confidence     float64 `json:"confidence"`
}

type marketPricesResponse struct {
	Prices []struct {
		CropType string  `json:"crop_type"`
		Variety  string  `json:"variety"`
		Region   string  `json:"region"`
		Price    float64 `json:"price"`
	} `json:"prices"`
}

// Predict requests a price suggestion for the given market segment.
func (p *HTTPPredictor) Predict(ctx context.Context, query pricing.SuggestQuery) (*pricing.Suggestion, error) {
	body, err := json.Marshal(predictRequest{
		CropType: query.CropType,
		Variety:  query.Variety,
		Quantity: query.Quantity,
		Region:   query.Region,
		Season:   string(query.Season),
		Month:    int(query.Month),
		Year:     query.Year,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict-price", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predict request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predict request returned status %d", resp.StatusCode)
	}

	var decoded predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode predict response: %w", err)
	}

	return &pricing.Suggestion{
		CropType:       query.CropType,
		Variety:        query.Variety,
		Region:         query.Region,
		Season:         query.Season,
		SuggestedPrice: pesosToCentavos(decoded.SuggestedPrice),
		MarketPrice:    pesosToCentavos(decoded.MarketPrice),
		Confidence:     decoded.Confidence,
	}, nil
}

// MarketPrices retrieves the current reference price table.
func (p *HTTPPredictor) MarketPrices(ctx context.Context) ([]*pricing.MarketPrice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/market-prices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build market prices request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market prices request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market prices request returned status %d", resp.StatusCode)
	}

	var decoded marketPricesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode market prices response: %w", err)
	}

	prices := make([]*pricing.MarketPrice, 0, len(decoded.Prices))
	for _, row := range decoded.Prices {
		prices = append(prices, &pricing.MarketPrice{
			CropType: row.CropType,
			Variety:  row.Variety,
			Region:   row.Region,
			Price:    pesosToCentavos(row.Price),
		})
	}
	return prices, nil
}

func pesosToCentavos(pesos float64) int64 {
	return int64(math.Round(pesos * 100))
}
