package httpserver

import (
	"errors"
	"log"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/localstore"
	"storefront/internal/notice"
	"storefront/internal/service/checkout"
	"storefront/internal/service/session"
	"storefront/internal/service/wishlist"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Data    interface{}     `json:"data,omitempty"`
	Notices []notice.Notice `json:"notices"`
}

type errorResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Notices []notice.Notice `json:"notices"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Data: data, Notices: noticesFrom(c)})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Message: message, Notices: noticesFrom(c)})
}

// writeError maps service errors onto HTTP statuses and stable error codes.
func writeError(c *gin.Context, logger *log.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		respondError(c, http.StatusUnauthorized, "SIGN_IN_REQUIRED", "sign in required")
	case errors.Is(err, session.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
	case errors.Is(err, session.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, "INVALID_TOKEN", err.Error())
	case errors.Is(err, domain.ErrValidation):
		respondError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, session.ErrUnknownProvider):
		respondError(c, http.StatusNotFound, "UNKNOWN_PROVIDER", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(c, http.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, wishlist.ErrAlreadyInWishlist):
		respondError(c, http.StatusConflict, "ALREADY_IN_WISHLIST", err.Error())
	case errors.Is(err, checkout.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, localstore.ErrUnavailable):
		respondError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "local state is unavailable")
	default:
		logger.Printf("http: %s %s error=%v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func badRequest(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, "INVALID_JSON", err.Error())
}
