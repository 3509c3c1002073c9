package httpserver

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.SessionSvc == nil {
		return nil, errors.New("httpserver: session service is required")
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", guestTokenHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db, deps.Readiness))

	h := &handlers{logger: logger, deps: deps}

	// Auth routes must stay reachable with a stale access token attached.
	auth := router.Group("/auth")
	auth.Use(newIPRateLimiter(deps.AuthRatePerMinute).middleware(), noticeMiddleware(logger), identityMiddleware(logger, deps, true))
	auth.POST("/guest", h.issueGuest)
	auth.POST("/signup", h.signup)
	auth.POST("/login", h.login)
	auth.POST("/refresh", h.refresh)
	auth.POST("/logout", h.logout)
	auth.POST("/password-reset", h.requestPasswordReset)
	auth.POST("/password-reset/confirm", h.confirmPasswordReset)
	auth.GET("/oauth/:provider", h.oauthStart)
	auth.GET("/oauth/:provider/callback", h.oauthCallback)

	api := router.Group("/")
	api.Use(noticeMiddleware(logger), identityMiddleware(logger, deps, false))

	me := api.Group("/me", requireCustomer())
	me.GET("", h.getProfile)
	me.PATCH("", h.updateProfile)
	me.GET("/addresses", h.listAddresses)
	me.POST("/addresses", h.createAddress)

	if deps.ProductSvc != nil {
		api.GET("/products", h.listProducts)
		api.GET("/products/:id", h.getProduct)
	}
	if deps.CategorySvc != nil {
		api.GET("/categories", h.listCategories)
	}
	if deps.ShopSvc != nil {
		api.GET("/shops", h.listShops)
	}

	if deps.SearchSvc != nil {
		api.GET("/search", h.search)
		api.GET("/search/trending", h.trending)
		api.GET("/search/recent", h.recentSearches)
		api.GET("/search/history", requireCustomer(), h.searchHistory)
		api.DELETE("/search/history", requireIdentity(), h.clearSearchHistory)
	}

	if deps.CartSvc != nil {
		api.GET("/cart", h.getCart)
		api.DELETE("/cart", requireIdentity(), h.clearCart)
		api.POST("/cart/lines", requireIdentity(), h.addCartLine)
		api.PATCH("/cart/lines/:id", requireIdentity(), h.updateCartLine)
		api.DELETE("/cart/lines/:id", requireIdentity(), h.removeCartLine)
	}

	if deps.WishlistSvc != nil {
		api.GET("/wishlist", h.getWishlist)
		api.POST("/wishlist", requireIdentity(), h.addWishlist)
		api.DELETE("/wishlist/:id", requireIdentity(), h.removeWishlist)
	}

	if deps.CheckoutSvc != nil {
		co := api.Group("/checkout", requireIdentity())
		co.GET("", h.getCheckout)
		co.POST("/billing", h.submitBilling)
		co.POST("/payment/success", h.paymentSucceeded)
		co.POST("/payment/dismiss", h.paymentDismissed)
		co.POST("/reset", h.resetCheckout)
	}

	if deps.OrderSvc != nil {
		orders := api.Group("/orders", requireCustomer())
		orders.GET("", h.listOrders)
		orders.GET("/:id", h.getOrder)
	}

	if deps.Store != nil {
		api.GET("/preferences/theme", h.getTheme)
		api.PUT("/preferences/theme", requireIdentity(), h.putTheme)
	}

	return router, nil
}

type handlers struct {
	logger *log.Logger
	deps   Deps
}
