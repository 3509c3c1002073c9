package httpserver

import (
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/service/session"

	"github.com/gin-gonic/gin"
)

func (h *handlers) getProfile(c *gin.Context) {
	respond(c, http.StatusOK, customerFrom(c))
}

func (h *handlers) updateProfile(c *gin.Context) {
	var req session.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cust, err := h.deps.SessionSvc.UpdateProfile(c.Request.Context(), identityFrom(c).CustomerID, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, cust)
}

func (h *handlers) listAddresses(c *gin.Context) {
	addrs, err := h.deps.SessionSvc.Addresses(c.Request.Context(), identityFrom(c).CustomerID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	respond(c, http.StatusOK, addrs)
}

func (h *handlers) createAddress(c *gin.Context) {
	var req domain.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	addr, err := h.deps.SessionSvc.SaveAddress(c.Request.Context(), identityFrom(c).CustomerID, req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, addr)
}
