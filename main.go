package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"pricewatch/config"
	"pricewatch/database"
	"pricewatch/handlers"
	"pricewatch/middleware"
	"pricewatch/repository"
	"pricewatch/scheduler"
	"pricewatch/scraper"
	"pricewatch/services"
	"pricewatch/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	if err := database.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	kv := openKVStore(cfg)

	// fetch/extract pipeline
	cache := scraper.NewResponseCache(kv, cfg.Fetch.CacheTTL)
	fetcher := scraper.NewFetcher(cache, cfg.Fetch)
	extractor := scraper.NewExtractor()

	var stealthFetcher scraper.StealthFetcher
	if cfg.Stealth.Enabled {
		identities := scraper.NewIdentityManager(kv, cfg.Stealth)
		stealthFetcher = scraper.NewStealthExtractor(identities, extractor, cfg.Stealth)
		log.Println("🎭 Stealth extraction enabled")
	} else {
		log.Println("⚠️  Stealth extraction disabled, hostile domains use the plain fetcher")
	}

	itemRepo := repository.NewItemRepository()
	historyRepo := repository.NewHistoryRepository()
	logRepo := repository.NewExtractionLogRepository()
	notifRepo := repository.NewNotificationRepository()

	batchFetcher := scraper.NewBatchFetcher(fetcher, extractor, stealthFetcher, logRepo, cfg.Batch)
	recorder := services.NewHistoryRecorder(historyRepo)
	priceService := services.NewPriceService(itemRepo, notifRepo, batchFetcher, recorder, cfg.Batch)

	h := handlers.NewHandlers(priceService, historyRepo, logRepo)

	priceChecker := scheduler.NewPriceChecker(priceService)
	priceChecker.Start()
	defer priceChecker.Stop()

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.RateLimitRPS))

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.APIKeyMiddleware(cfg.APIKey))
	api.HandleFunc("/prices/update-stale", h.UpdateStalePrices).Methods("POST")
	api.HandleFunc("/items/{id}/refresh-price", h.RefreshItemPrice).Methods("POST")
	api.HandleFunc("/items/{id}/history", h.GetPriceHistory).Methods("GET")
	api.HandleFunc("/items/{id}/history/stats", h.GetPriceHistoryStats).Methods("GET")
	api.HandleFunc("/metadata/fetch", h.FetchMetadata).Methods("POST")
	api.HandleFunc("/metrics/extraction", h.GetExtractionMetrics).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	log.Printf("🌐 Server starting on %s:%s", cfg.Host, cfg.Port)
	log.Fatal(http.ListenAndServe(cfg.Host+":"+cfg.Port, c.Handler(r)))
}

// openKVStore prefers Redis so concurrent instances share identity state;
// an in-process store keeps single-instance deployments dependency-free
func openKVStore(cfg *config.Config) store.KVStore {
	if cfg.RedisURL != "" {
		kv, err := store.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Connected to Redis")
		return kv
	}

	kv, err := store.NewLocalStore(time.Hour)
	if err != nil {
		log.Fatalf("Failed to initialize local store: %v", err)
	}
	log.Println("📦 Using in-process key-value store")
	return kv
}
