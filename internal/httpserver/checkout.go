package httpserver

import (
	"net/http"

	"storefront/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

func (h *handlers) getCheckout(c *gin.Context) {
	snap, err := h.deps.CheckoutSvc.Current(c.Request.Context(), identityFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, snap)
}

func (h *handlers) submitBilling(c *gin.Context) {
	var req checkout.Billing
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	snap, payment, err := h.deps.CheckoutSvc.SubmitBilling(c.Request.Context(), identityFrom(c), req, sinkFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"checkout": snap, "payment": payment})
}

func (h *handlers) paymentSucceeded(c *gin.Context) {
	var req struct {
		Reference string `json:"reference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	snap, err := h.deps.CheckoutSvc.PaymentSucceeded(c.Request.Context(), identityFrom(c), req.Reference, sinkFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, snap)
}

func (h *handlers) paymentDismissed(c *gin.Context) {
	snap, err := h.deps.CheckoutSvc.Dismiss(c.Request.Context(), identityFrom(c), sinkFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, snap)
}

func (h *handlers) resetCheckout(c *gin.Context) {
	snap, err := h.deps.CheckoutSvc.Reset(c.Request.Context(), identityFrom(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, snap)
}
