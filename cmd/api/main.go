package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/category"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/notification"
	"github.com/example/storefront/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] %v", err)
	}

	log.Println("[API] ========================================")
	log.Println("[API] Storefront Cart Service")
	log.Println("[API] ========================================")

	// Cart storage: Redis when configured, in-memory otherwise.
	var storage server.CartStorage
	if cfg.RedisAddr != "" {
		rdb := server.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		storage = server.NewRedisStorage(rdb)
		log.Printf("[API] Cart storage: Redis (%s)", cfg.RedisAddr)
	} else {
		storage = server.NewMemoryStorage()
		log.Println("[API] Cart storage: in-memory")
	}

	// Catalog: PostgreSQL when configured, seeded in-memory otherwise.
	var cat catalog.Provider
	if cfg.DatabaseURL != "" {
		db, err := catalog.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()
		cat = catalog.NewPostgres(db)
		log.Println("[API] Catalog: PostgreSQL")
	} else {
		cat = seedCatalog()
		log.Println("[API] Catalog: in-memory (seeded)")
	}

	// Notifications: Kafka when configured.
	var events notification.Publisher = notification.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		events = notification.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Printf("[API] Notifications: Kafka %v topic %s", cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		log.Println("[API] Notifications: disabled")
	}
	defer events.Close()

	tokens := auth.NewGuestTokenService(cfg.JWTSecret, cfg.GuestTokenExpiry)
	pricing := server.PricingConfig{
		TaxRate:          cfg.TaxRate,
		ShippingFlatRate: cfg.ShippingFlatRate,
		FreeShippingOver: cfg.FreeShippingOver,
	}
	handlers := server.NewHandlers(storage, cat, pricing, tokens, events)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.NewRouter(handlers),
	}

	go func() {
		log.Printf("[API] Server started on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}

// seedCatalog provides a small development catalog so the service runs
// without a database.
func seedCatalog() *catalog.Memory {
	cat := catalog.NewMemory()
	cat.AddCategory(category.Category{ID: "electronics", Name: "Electronics", Slug: "electronics", IsActive: true})
	cat.AddCategory(category.Category{ID: "phones", Name: "Phones", Slug: "phones", IsActive: true,
		Parent: &category.ParentRef{ID: "electronics"}})
	cat.AddProduct(cart.Product{
		ID: "p-widget", Name: "Widget", Price: decimal.NewFromInt(25), Stock: 100,
		CategoryIDs: []string{"electronics"},
	})
	cat.AddProduct(cart.Product{
		ID: "p-phone", Name: "Phone", Price: decimal.NewFromInt(599), Stock: 20,
		CategoryIDs: []string{"electronics", "phones"},
	})
	cat.AddCoupon(cart.Coupon{
		Code:          "WELCOME10",
		DiscountType:  cart.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		ExpiresAt:     time.Now().Add(365 * 24 * time.Hour),
	})
	return cat
}
