package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/agribid/agribid/internal/domain/bids"
	"github.com/agribid/agribid/internal/domain/listings"
	"github.com/agribid/agribid/internal/domain/notifications"
	"github.com/agribid/agribid/internal/domain/pricing"
	"github.com/agribid/agribid/internal/domain/transactions"
	"github.com/agribid/agribid/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockListingService struct {
	mock.Mock
}

func (m *mockListingService) Create(ctx context.Context, cmd listings.CreateListingCommand) (*listings.Listing, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

func (m *mockListingService) Get(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*listings.Listing), args.Error(1)
}

func (m *mockListingService) ListOpen(ctx context.Context, query listings.ListQuery) ([]*listings.Listing, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*listings.Listing), args.Error(1)
}

func (m *mockListingService) ListByOwner(ctx context.Context, ownerID uuid.UUID, query listings.ListQuery) ([]*listings.Listing, error) {
	args := m.Called(ctx, ownerID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*listings.Listing), args.Error(1)
}

type mockAuctionService struct {
	mock.Mock
}

func (m *mockAuctionService) PlaceBid(ctx context.Context, cmd bids.PlaceBidCommand) (*bids.Bid, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.Bid), args.Error(1)
}

func (m *mockAuctionService) AcceptBid(ctx context.Context, cmd bids.AcceptBidCommand) (*bids.AcceptBidResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.AcceptBidResult), args.Error(1)
}

func (m *mockAuctionService) Highest(ctx context.Context, listingID uuid.UUID) (*bids.Bid, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.Bid), args.Error(1)
}

func (m *mockAuctionService) BestFor(ctx context.Context, listingID, bidderID uuid.UUID) (*bids.Bid, error) {
	args := m.Called(ctx, listingID, bidderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.Bid), args.Error(1)
}

func (m *mockAuctionService) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*bids.Bid, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bids.Bid), args.Error(1)
}

func (m *mockAuctionService) ListBidderBids(ctx context.Context, bidderID uuid.UUID) ([]*bids.BidderBid, error) {
	args := m.Called(ctx, bidderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bids.BidderBid), args.Error(1)
}

type mockTransactionService struct {
	mock.Mock
}

func (m *mockTransactionService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*transactions.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transactions.Transaction), args.Error(1)
}

type mockNotificationService struct {
	mock.Mock
}

func (m *mockNotificationService) List(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*notifications.Notification, error) {
	args := m.Called(ctx, recipientID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notifications.Notification), args.Error(1)
}

func (m *mockNotificationService) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	return m.Called(ctx, id, recipientID).Error(0)
}

func (m *mockNotificationService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) error {
	return m.Called(ctx, recipientID).Error(0)
}

type mockPricingService struct {
	mock.Mock
}

func (m *mockPricingService) Suggest(ctx context.Context, query pricing.SuggestQuery) (*pricing.Suggestion, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Suggestion), args.Error(1)
}

func (m *mockPricingService) MarketPrices(ctx context.Context) ([]*pricing.MarketPrice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pricing.MarketPrice), args.Error(1)
}

type testAPI struct {
	router   *gin.Engine
	handler  *Handler
	signer   *auth.Signer
	listings *mockListingService
	auction  *mockAuctionService
	txs      *mockTransactionService
	notifs   *mockNotificationService
	pricing  *mockPricingService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	signer, err := auth.NewSigner(privPEM, pubPEM, "agribid-test")
	require.NoError(t, err)

	api := &testAPI{
		signer:   signer,
		listings: &mockListingService{},
		auction:  &mockAuctionService{},
		txs:      &mockTransactionService{},
		notifs:   &mockNotificationService{},
		pricing:  &mockPricingService{},
	}

	logger := slog.New(slog.DiscardHandler)
	api.handler = NewHandler(api.listings, api.auction, api.txs, api.notifs, api.pricing, logger)
	api.router = NewRouter(api.handler, signer, logger)
	return api
}

func (a *testAPI) request(t *testing.T, method, path string, body any, userID *uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != nil {
		token, err := a.signer.GenerateToken(*userID, "user@example.com", "Test User", "farmer", time.Minute)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateListing(t *testing.T) {
	ownerID := uuid.New()

	t.Run("creates a listing", func(t *testing.T) {
		api := newTestAPI(t)
		listing := &listings.Listing{
			ID:           uuid.New(),
			OwnerID:      ownerID,
			CropType:     "rice",
			Variety:      "dinorado",
			Quantity:     150,
			MinimumPrice: 4500,
			Status:       listings.StatusOpen,
			CreatedAt:    time.Now(),
		}
		api.listings.On("Create", mock.Anything, mock.MatchedBy(func(cmd listings.CreateListingCommand) bool {
			return cmd.OwnerID == ownerID && cmd.CropType == "Rice" && cmd.MinimumPrice == 4500
		})).Return(listing, nil)

		rec := api.request(t, http.MethodPost, "/v1/listings", gin.H{
			"crop_type":     "Rice",
			"variety":       "dinorado",
			"quantity_kg":   150,
			"minimum_price": 4500,
		}, &ownerID)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp listingResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, listing.ID, resp.ID)
		assert.Equal(t, "open", resp.Status)
	})

	t.Run("requires authentication", func(t *testing.T) {
		api := newTestAPI(t)

		rec := api.request(t, http.MethodPost, "/v1/listings", gin.H{
			"crop_type":     "rice",
			"quantity_kg":   150,
			"minimum_price": 4500,
		}, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "authorization", decodeError(t, rec).Error.Kind)
	})

	t.Run("rejects invalid body", func(t *testing.T) {
		api := newTestAPI(t)

		rec := api.request(t, http.MethodPost, "/v1/listings", gin.H{"crop_type": "rice"}, &ownerID)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", decodeError(t, rec).Error.Kind)
	})

	t.Run("maps validation errors", func(t *testing.T) {
		api := newTestAPI(t)
		api.listings.On("Create", mock.Anything, mock.Anything).Return(nil, listings.ErrInvalidMinimumPrice)

		rec := api.request(t, http.MethodPost, "/v1/listings", gin.H{
			"crop_type":     "rice",
			"quantity_kg":   150,
			"minimum_price": 1,
		}, &ownerID)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "validation", decodeError(t, rec).Error.Kind)
	})
}

func TestCreateListing_MissingIdentity(t *testing.T) {
	// The route is mounted behind RequireAuth; this exercises the handler's
	// own guard for a context that never went through the middleware.
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/listings", bytes.NewReader(nil))

	api.handler.CreateListing(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authorization", decodeError(t, rec).Error.Kind)
}

func TestGetListing(t *testing.T) {
	t.Run("unknown listing is 404", func(t *testing.T) {
		api := newTestAPI(t)
		api.listings.On("Get", mock.Anything, mock.Anything).Return(nil, listings.ErrListingNotFound)

		rec := api.request(t, http.MethodGet, "/v1/listings/"+uuid.NewString(), nil, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Error.Kind)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		api := newTestAPI(t)

		rec := api.request(t, http.MethodGet, "/v1/listings/not-a-uuid", nil, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPlaceBid(t *testing.T) {
	bidderID := uuid.New()
	listingID := uuid.New()

	t.Run("places a bid", func(t *testing.T) {
		api := newTestAPI(t)
		bid := &bids.Bid{
			ID:        uuid.New(),
			ListingID: listingID,
			BidderID:  bidderID,
			Amount:    5000,
			CreatedAt: time.Now(),
		}
		api.auction.On("PlaceBid", mock.Anything, bids.PlaceBidCommand{
			ListingID: listingID,
			BidderID:  bidderID,
			Amount:    5000,
		}).Return(bid, nil)

		rec := api.request(t, http.MethodPost, "/v1/listings/"+listingID.String()+"/bids",
			gin.H{"amount": 5000}, &bidderID)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp bidResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, bid.ID, resp.ID)
	})

	t.Run("closed listing maps to conflict", func(t *testing.T) {
		api := newTestAPI(t)
		api.auction.On("PlaceBid", mock.Anything, mock.Anything).Return(nil, listings.ErrListingClosed)

		rec := api.request(t, http.MethodPost, "/v1/listings/"+listingID.String()+"/bids",
			gin.H{"amount": 5000}, &bidderID)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", decodeError(t, rec).Error.Kind)
	})

	t.Run("self bid maps to validation", func(t *testing.T) {
		api := newTestAPI(t)
		api.auction.On("PlaceBid", mock.Anything, mock.Anything).Return(nil, bids.ErrSelfBid)

		rec := api.request(t, http.MethodPost, "/v1/listings/"+listingID.String()+"/bids",
			gin.H{"amount": 5000}, &bidderID)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "validation", decodeError(t, rec).Error.Kind)
	})

	t.Run("amount at minimum maps to validation", func(t *testing.T) {
		api := newTestAPI(t)
		api.auction.On("PlaceBid", mock.Anything, mock.Anything).Return(nil, bids.ErrInvalidAmount)

		rec := api.request(t, http.MethodPost, "/v1/listings/"+listingID.String()+"/bids",
			gin.H{"amount": 4500}, &bidderID)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestAcceptBid(t *testing.T) {
	ownerID := uuid.New()
	listingID := uuid.New()
	bidID := uuid.New()

	t.Run("accepts a bid", func(t *testing.T) {
		api := newTestAPI(t)
		closedAt := time.Now()
		amount := int64(5200)
		bidderID := uuid.New()
		result := &bids.AcceptBidResult{
			Listing: &listings.Listing{
				ID:               listingID,
				OwnerID:          ownerID,
				Status:           listings.StatusClosed,
				WinningBidID:     &bidID,
				WinningBidderID:  &bidderID,
				WinningBidAmount: &amount,
				ClosedAt:         &closedAt,
			},
			Transaction: &transactions.Transaction{
				ID:        uuid.New(),
				ListingID: listingID,
				SellerID:  ownerID,
				BuyerID:   bidderID,
				Amount:    amount,
			},
		}
		api.auction.On("AcceptBid", mock.Anything, bids.AcceptBidCommand{
			ListingID: listingID,
			BidID:     bidID,
			ActorID:   ownerID,
		}).Return(result, nil)

		rec := api.request(t, http.MethodPost, "/v1/listings/"+listingID.String()+"/accept",
			gin.H{"bid_id": bidID}, &ownerID)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp acceptBidResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "closed", resp.Listing.Status)
		require.NotNil(t, resp.Transaction)
		assert.Equal(t, amount, resp.Transaction.Amount)
	})

	t.Run("concurrent accept loser gets conflict", func(t *testing.T) {
		api := newTestAPI(t)
		api.auction.On("AcceptBid", mock.Anything, mock.Anything).Return(nil, listings.ErrListingClosed)

		rec := api.request(t, http.MethodPost, "/v1/listings/"+listingID.String()+"/accept",
			gin.H{"bid_id": bidID}, &ownerID)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("non-owner gets forbidden", func(t *testing.T) {
		api := newTestAPI(t)
		api.auction.On("AcceptBid", mock.Anything, mock.Anything).Return(nil, bids.ErrNotListingOwner)

		intruder := uuid.New()
		rec := api.request(t, http.MethodPost, "/v1/listings/"+listingID.String()+"/accept",
			gin.H{"bid_id": bidID}, &intruder)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("close without settlement still reports the closed listing", func(t *testing.T) {
		api := newTestAPI(t)
		closedAt := time.Now()
		amount := int64(5200)
		bidderID := uuid.New()
		result := &bids.AcceptBidResult{
			Listing: &listings.Listing{
				ID:               listingID,
				OwnerID:          ownerID,
				Status:           listings.StatusClosed,
				WinningBidID:     &bidID,
				WinningBidderID:  &bidderID,
				WinningBidAmount: &amount,
				ClosedAt:         &closedAt,
			},
		}
		api.auction.On("AcceptBid", mock.Anything, mock.Anything).
			Return(result, assert.AnError)

		rec := api.request(t, http.MethodPost, "/v1/listings/"+listingID.String()+"/accept",
			gin.H{"bid_id": bidID}, &ownerID)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp acceptBidResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "closed", resp.Listing.Status)
		assert.Nil(t, resp.Transaction)
	})
}

func TestSuggestPrice(t *testing.T) {
	t.Run("returns a suggestion", func(t *testing.T) {
		api := newTestAPI(t)
		suggestion := &pricing.Suggestion{
			CropType:       "rice",
			Variety:        "standard",
			Region:         "national_average",
			Season:         pricing.SeasonWet,
			SuggestedPrice: 4870,
			MarketPrice:    4500,
			Confidence:     0.82,
		}
		api.pricing.On("Suggest", mock.Anything, mock.Anything).Return(suggestion, nil)

		rec := api.request(t, http.MethodPost, "/v1/prices/suggest", gin.H{"crop_type": "rice"}, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp suggestionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(4870), resp.SuggestedPrice)
	})

	t.Run("carries quantity, month and year to the service", func(t *testing.T) {
		api := newTestAPI(t)
		suggestion := &pricing.Suggestion{CropType: "rice", SuggestedPrice: 4870}
		api.pricing.On("Suggest", mock.Anything, pricing.SuggestQuery{
			CropType: "rice",
			Quantity: 500,
			Month:    time.April,
			Year:     2026,
		}).Return(suggestion, nil)

		rec := api.request(t, http.MethodPost, "/v1/prices/suggest",
			gin.H{"crop_type": "rice", "quantity": 500, "month": 4, "year": 2026}, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		api.pricing.AssertExpectations(t)
	})

	t.Run("predictor outage maps to bad gateway", func(t *testing.T) {
		api := newTestAPI(t)
		api.pricing.On("Suggest", mock.Anything, mock.Anything).Return(nil, pricing.ErrPredictorUnavailable)

		rec := api.request(t, http.MethodPost, "/v1/prices/suggest", gin.H{"crop_type": "rice"}, nil)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "dependency", decodeError(t, rec).Error.Kind)
	})
}

func TestNotifications(t *testing.T) {
	userID := uuid.New()

	t.Run("counts unread", func(t *testing.T) {
		api := newTestAPI(t)
		api.notifs.On("CountUnread", mock.Anything, userID).Return(int64(3), nil)

		rec := api.request(t, http.MethodGet, "/v1/me/notifications/unread", nil, &userID)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"unread":3}`, rec.Body.String())
	})

	t.Run("marks one read", func(t *testing.T) {
		api := newTestAPI(t)
		id := uuid.New()
		api.notifs.On("MarkRead", mock.Anything, id, userID).Return(nil)

		rec := api.request(t, http.MethodPost, "/v1/me/notifications/"+id.String()+"/read", nil, &userID)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("foreign notification is 404", func(t *testing.T) {
		api := newTestAPI(t)
		id := uuid.New()
		api.notifs.On("MarkRead", mock.Anything, id, userID).Return(notifications.ErrNotificationNotFound)

		rec := api.request(t, http.MethodPost, "/v1/me/notifications/"+id.String()+"/read", nil, &userID)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListMyBids(t *testing.T) {
	userID := uuid.New()

	t.Run("returns derived outcomes", func(t *testing.T) {
		api := newTestAPI(t)
		bid := &bids.Bid{ID: uuid.New(), ListingID: uuid.New(), BidderID: userID, Amount: 5000, CreatedAt: time.Now()}
		api.auction.On("ListBidderBids", mock.Anything, userID).Return([]*bids.BidderBid{
			{Bid: bid, ListingStatus: listings.StatusOpen, Outcome: bids.OutcomeLeading},
		}, nil)

		rec := api.request(t, http.MethodGet, "/v1/me/bids", nil, &userID)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp []bidderBidResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "leading", resp[0].Outcome)
	})
}

func TestGetMyBid(t *testing.T) {
	userID := uuid.New()
	listingID := uuid.New()

	t.Run("returns the caller's best bid", func(t *testing.T) {
		api := newTestAPI(t)
		bid := &bids.Bid{ID: uuid.New(), ListingID: listingID, BidderID: userID, Amount: 5200, CreatedAt: time.Now()}
		api.auction.On("BestFor", mock.Anything, listingID, userID).Return(bid, nil)

		rec := api.request(t, http.MethodGet, "/v1/listings/"+listingID.String()+"/bids/mine", nil, &userID)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp bidResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, bid.ID, resp.ID)
		assert.Equal(t, int64(5200), resp.Amount)
	})

	t.Run("no bid on the listing is not found", func(t *testing.T) {
		api := newTestAPI(t)
		api.auction.On("BestFor", mock.Anything, listingID, userID).Return(nil, nil)

		rec := api.request(t, http.MethodGet, "/v1/listings/"+listingID.String()+"/bids/mine", nil, &userID)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Error.Kind)
	})
}
