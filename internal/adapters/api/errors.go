package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agribid/agribid/internal/domain/bids"
	"github.com/agribid/agribid/internal/domain/listings"
	"github.com/agribid/agribid/internal/domain/notifications"
	"github.com/agribid/agribid/internal/domain/pricing"
	"github.com/agribid/agribid/internal/domain/transactions"
)

// Error kinds exposed on the wire. Clients branch on the kind, not the
// message.
const (
	kindValidation    = "validation"
	kindNotFound      = "not_found"
	kindAuthorization = "authorization"
	kindConflict      = "conflict"
	kindDependency    = "dependency"
	kindInternal      = "internal"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeError maps a domain error to its HTTP status and error kind. Unknown
// errors become an opaque 500; the underlying cause goes to the log, never to
// the client.
func writeError(c *gin.Context, err error) {
	status, kind, message := classify(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, listings.ErrListingNotFound),
		errors.Is(err, bids.ErrBidNotFound),
		errors.Is(err, transactions.ErrTransactionNotFound),
		errors.Is(err, notifications.ErrNotificationNotFound):
		return http.StatusNotFound, kindNotFound, err.Error()

	case errors.Is(err, listings.ErrListingClosed):
		return http.StatusConflict, kindConflict, err.Error()

	case errors.Is(err, bids.ErrNotListingOwner):
		return http.StatusForbidden, kindAuthorization, err.Error()

	// A self-bid is a malformed command, not a permissions failure: the
	// caller is allowed to bid, just not on their own listing.
	case errors.Is(err, listings.ErrInvalidQuantity),
		errors.Is(err, listings.ErrInvalidMinimumPrice),
		errors.Is(err, bids.ErrInvalidAmount),
		errors.Is(err, bids.ErrSelfBid),
		errors.Is(err, pricing.ErrInvalidCropType),
		errors.Is(err, pricing.ErrInvalidMonth),
		errors.Is(err, notifications.ErrInvalidKind):
		return http.StatusUnprocessableEntity, kindValidation, err.Error()

	case errors.Is(err, pricing.ErrPredictorUnavailable):
		return http.StatusBadGateway, kindDependency, pricing.ErrPredictorUnavailable.Error()

	default:
		return http.StatusInternalServerError, kindInternal, "internal server error"
	}
}

// writeUnauthenticated mirrors the middleware's 401 for handlers mounted
// without RequireAuth in front of them.
func writeUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
		Error: errorBody{Kind: kindAuthorization, Message: "authentication required"},
	})
}

func writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error: errorBody{Kind: kindValidation, Message: "invalid request body: " + err.Error()},
	})
}

func writeInvalidParam(c *gin.Context, name string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		Error: errorBody{Kind: kindValidation, Message: "invalid " + name},
	})
}
