package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agribid/agribid/pkg/auth"
)

// NewRouter configures the gin engine: recovery, request logging, the public
// browse endpoints and the authenticated marketplace routes.
func NewRouter(handler *Handler, signer *auth.Signer, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")

	// Browsing is public; anything that writes or is user-scoped requires a
	// verified identity.
	v1.GET("/listings", handler.ListOpenListings)
	v1.GET("/listings/:id", handler.GetListing)
	v1.GET("/listings/:id/bids", handler.ListBids)
	v1.GET("/listings/:id/bids/highest", handler.GetHighestBid)
	v1.POST("/prices/suggest", handler.SuggestPrice)
	v1.GET("/prices/market", handler.GetMarketPrices)

	authed := v1.Group("")
	authed.Use(auth.RequireAuth(signer))
	{
		authed.POST("/listings", handler.CreateListing)
		authed.POST("/listings/:id/bids", handler.PlaceBid)
		authed.GET("/listings/:id/bids/mine", handler.GetMyBid)
		authed.POST("/listings/:id/accept", handler.AcceptBid)

		me := authed.Group("/me")
		{
			me.GET("/listings", handler.ListMyListings)
			me.GET("/bids", handler.ListMyBids)
			me.GET("/transactions", handler.ListMyTransactions)
			me.GET("/notifications", handler.ListMyNotifications)
			me.GET("/notifications/unread", handler.CountUnreadNotifications)
			me.POST("/notifications/:id/read", handler.MarkNotificationRead)
			me.POST("/notifications/read-all", handler.MarkAllNotificationsRead)
		}
	}

	return router
}

// requestLogger logs every request with method, path, status and latency.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String())
	}
}
