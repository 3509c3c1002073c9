package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) getWishlist(c *gin.Context) {
	w := h.deps.WishlistSvc.Open(c.Request.Context(), identityFrom(c), sinkFrom(c))
	respond(c, http.StatusOK, gin.H{"productIds": w.IDs()})
}

func (h *handlers) addWishlist(c *gin.Context) {
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w := h.deps.WishlistSvc.Open(c.Request.Context(), identityFrom(c), sinkFrom(c))
	if err := w.Add(c.Request.Context(), req.ProductID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"productIds": w.IDs()})
}

func (h *handlers) removeWishlist(c *gin.Context) {
	w := h.deps.WishlistSvc.Open(c.Request.Context(), identityFrom(c), sinkFrom(c))
	if err := w.Remove(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"productIds": w.IDs()})
}
