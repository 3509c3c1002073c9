package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/httpserver"
	"storefront/internal/localstore"
	"storefront/internal/notice"
	addressrepo "storefront/internal/repository/address"
	cartrepo "storefront/internal/repository/cart"
	categoryrepo "storefront/internal/repository/category"
	customerrepo "storefront/internal/repository/customer"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	searchrepo "storefront/internal/repository/search"
	shoprepo "storefront/internal/repository/shop"
	tokenrepo "storefront/internal/repository/token"
	wishlistrepo "storefront/internal/repository/wishlist"
	cartsvc "storefront/internal/service/cart"
	categorysvc "storefront/internal/service/category"
	checkoutsvc "storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	searchsvc "storefront/internal/service/search"
	"storefront/internal/service/session"
	shopsvc "storefront/internal/service/shop"
	wishlistsvc "storefront/internal/service/wishlist"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	readiness := map[string]httpserver.ReadinessCheck{}
	var store localstore.Store
	if cfg.RedisAddr != "" {
		client, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("connect to redis: %v", err)
		}
		defer client.Close()
		store = localstore.NewRedis(client)
		readiness["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		logger.Printf("REDIS_ADDR not set, keeping local state in memory")
		store = localstore.NewMemory()
	}

	productRepo := productrepo.NewPostgres(dbpool, logger)
	categoryRepo := categoryrepo.NewPostgres(dbpool)
	shopRepo := shoprepo.NewPostgres(dbpool)
	addressRepo := addressrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	sessionService := session.New(customerrepo.NewPostgres(dbpool, logger), tokenrepo.NewPostgres(dbpool), session.Options{
		Store:     store,
		Addresses: addressRepo,
		Mailer:    session.NewLogMailer(logger),
		Providers: oauthProviders(cfg),
		Logger:    logger,
		GuestTTL:  cfg.GuestTTL,
	})
	cartService := cartsvc.New(cartrepo.NewPostgres(dbpool), productRepo, store, logger).WithGuestTTL(cfg.GuestTTL)
	wishlistService := wishlistsvc.New(wishlistrepo.NewPostgres(dbpool), store, logger).WithGuestTTL(cfg.GuestTTL)
	searchService := searchsvc.New(searchsvc.Deps{
		Products:   productRepo,
		Categories: categoryRepo,
		Shops:      shopRepo,
		History:    searchrepo.NewPostgres(dbpool),
		Store:      store,
		Fallback:   catalog.Sample(),
		Logger:     logger,
	})
	openCart := func(ctx context.Context, id domain.Identity, sink notice.Sink) checkoutsvc.Cart {
		return cartService.Open(ctx, id, sink)
	}
	checkoutService := checkoutsvc.New(store, openCart, orderRepo, addressRepo, checkoutsvc.Options{
		Currency: cfg.Currency,
		KeyID:    cfg.PaymentKeyID,
		Logger:   logger,
	})

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		SessionSvc:        sessionService,
		CartSvc:           cartService,
		WishlistSvc:       wishlistService,
		SearchSvc:         searchService,
		CheckoutSvc:       checkoutService,
		OrderSvc:          ordersvc.New(orderRepo),
		ProductSvc:        productsvc.New(productRepo),
		CategorySvc:       categorysvc.New(categoryRepo),
		ShopSvc:           shopsvc.New(shopRepo),
		Store:             store,
		CORSOrigins:       cfg.CORSOrigins,
		AuthRatePerMinute: cfg.AuthRatePerMinute,
		Readiness:         readiness,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

// oauthProviders enables each provider whose client id is configured.
func oauthProviders(cfg config.Config) map[string]*session.OAuthProvider {
	base := strings.TrimRight(cfg.OAuthRedirectBase, "/")
	providers := make(map[string]*session.OAuthProvider)
	if cfg.GoogleClientID != "" {
		providers[session.ProviderGoogle] = session.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret,
			base+"/auth/oauth/"+session.ProviderGoogle+"/callback")
	}
	if cfg.GitHubClientID != "" {
		providers[session.ProviderGitHub] = session.GitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret,
			base+"/auth/oauth/"+session.ProviderGitHub+"/callback")
	}
	return providers
}
