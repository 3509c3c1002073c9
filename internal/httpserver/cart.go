package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/service/cart"

	"github.com/gin-gonic/gin"
)

type addLineRequest struct {
	ProductID string  `json:"productId"`
	Quantity  *int    `json:"quantity"`
	Color     *string `json:"color"`
	Size      *string `json:"size"`
}

func cartView(e *cart.Engine) gin.H {
	lines := e.Lines()
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return gin.H{
		"lines":      lines,
		"totalCents": e.Total(),
		"count":      e.Count(),
	}
}

func (h *handlers) openCart(c *gin.Context) *cart.Engine {
	return h.deps.CartSvc.Open(c.Request.Context(), identityFrom(c), sinkFrom(c))
}

func (h *handlers) getCart(c *gin.Context) {
	respond(c, http.StatusOK, cartView(h.openCart(c)))
}

func (h *handlers) clearCart(c *gin.Context) {
	e := h.openCart(c)
	if err := e.Clear(c.Request.Context()); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cartView(e))
}

func (h *handlers) addCartLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	e := h.openCart(c)
	line, err := e.Add(c.Request.Context(), req.ProductID, qty, req.Color, req.Size)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	view := cartView(e)
	view["line"] = line
	respond(c, http.StatusOK, view)
}

func (h *handlers) updateCartLine(c *gin.Context) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	e := h.openCart(c)
	if err := e.UpdateQuantity(c.Request.Context(), c.Param("id"), req.Quantity); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cartView(e))
}

func (h *handlers) removeCartLine(c *gin.Context) {
	e := h.openCart(c)
	if err := e.Remove(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cartView(e))
}
