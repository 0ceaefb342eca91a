package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estore/internal/notify"
	"estore/internal/ws"
)

// NotifyProduct receives per-image status pushes from the image worker and
// fans them out to websocket subscribers of that product. The route is
// guarded by the worker-secret middleware.
func NotifyProduct(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /internal/notify-product"
		defer handlePanic(c, route)

		var payload notify.ProductStatus
		if err := c.ShouldBindJSON(&payload); err != nil || payload.ProductID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		hub.NotifyProduct(payload.ProductID, payload)

		c.JSON(http.StatusOK, gin.H{"success": true, "delivered": true})
	}
}

// SubscribeProduct upgrades the request to a websocket subscribed to one
// product's image-processing updates.
func SubscribeProduct(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("id")
		if productID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid product id"})
			return
		}
		if err := hub.Subscribe(c.Writer, c.Request, productID); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "websocket upgrade failed"})
		}
	}
}
