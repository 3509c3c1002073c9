package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/notice"
	"storefront/internal/service/session"

	"github.com/gin-gonic/gin"
)

const (
	guestTokenHeader = "X-Guest-Token"

	identityKey = "storefront.identity"
	customerKey = "storefront.customer"
	noticesKey  = "storefront.notices"
)

// noticeMiddleware gives every request its own notice collector.
func noticeMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		collector := notice.NewCollector()
		c.Set(noticesKey, collector)
		c.Set(noticesKey+".sink", notice.Logged(collector, logger))
		c.Next()
	}
}

// identityMiddleware resolves the bearer token and the guest token. A bad
// bearer token is rejected unless lenient is set, in which case the request
// continues without a customer; a bad guest token is always ignored. When both
// resolve, the guest's cart and wishlist are moved over to the customer.
func identityMiddleware(logger *log.Logger, deps Deps, lenient bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var id domain.Identity

		if token := bearerToken(c); token != "" {
			cust, err := deps.SessionSvc.Lookup(ctx, token)
			switch {
			case err == nil:
				id.CustomerID = cust.ID
				c.Set(customerKey, cust)
			case lenient && errors.Is(err, session.ErrInvalidToken):
			default:
				writeError(c, logger, err)
				return
			}
		}
		if token := strings.TrimSpace(c.GetHeader(guestTokenHeader)); token != "" {
			guestID, err := deps.SessionSvc.LookupGuest(ctx, token)
			if err == nil {
				id.GuestID = guestID
			}
		}

		if id.Authenticated() && id.GuestID != "" {
			runTransition(c, logger, deps, id)
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// runTransition merges guest state into the customer's records. Failures are
// reported as notices and never fail the request.
func runTransition(c *gin.Context, logger *log.Logger, deps Deps, id domain.Identity) {
	ctx := c.Request.Context()
	sink := sinkFrom(c)
	if deps.CartSvc != nil {
		if _, err := deps.CartSvc.Migrate(ctx, id, sink); err != nil {
			logger.Printf("http: cart migration customer=%s guest=%s error=%v", id.CustomerID, id.GuestID, err)
		}
	}
	if deps.WishlistSvc != nil {
		if _, err := deps.WishlistSvc.Reconcile(ctx, id, sink); err != nil {
			logger.Printf("http: wishlist reconcile customer=%s guest=%s error=%v", id.CustomerID, id.GuestID, err)
		}
	}
}

// requireCustomer aborts with SIGN_IN_REQUIRED unless a customer is signed in.
func requireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identityFrom(c).Authenticated() {
			respondError(c, http.StatusUnauthorized, "SIGN_IN_REQUIRED", "sign in required")
			return
		}
		c.Next()
	}
}

// requireIdentity aborts with SIGN_IN_REQUIRED when neither a customer nor a
// guest identity is present.
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identityFrom(c).Anonymous() {
			respondError(c, http.StatusUnauthorized, "SIGN_IN_REQUIRED", "sign in required")
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(domain.Identity); ok {
			return id
		}
	}
	return domain.Identity{}
}

func customerFrom(c *gin.Context) *domain.Customer {
	if v, ok := c.Get(customerKey); ok {
		if cust, ok := v.(*domain.Customer); ok {
			return cust
		}
	}
	return nil
}

func sinkFrom(c *gin.Context) notice.Sink {
	if v, ok := c.Get(noticesKey + ".sink"); ok {
		if s, ok := v.(notice.Sink); ok {
			return s
		}
	}
	return nil
}

func noticesFrom(c *gin.Context) []notice.Notice {
	if v, ok := c.Get(noticesKey); ok {
		if col, ok := v.(*notice.Collector); ok {
			return col.Notices()
		}
	}
	return []notice.Notice{}
}

func bearerToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}
