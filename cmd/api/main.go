package main

import (
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/retailops/pos-backend/internal/authn"
	"github.com/retailops/pos-backend/internal/metrics"
	"github.com/retailops/pos-backend/internal/modules/audit"
	"github.com/retailops/pos-backend/internal/modules/catalog"
	"github.com/retailops/pos-backend/internal/modules/discount"
	"github.com/retailops/pos-backend/internal/modules/ledger"
	"github.com/retailops/pos-backend/internal/modules/order"
	"github.com/retailops/pos-backend/internal/modules/returns"
	"github.com/retailops/pos-backend/pkg/logger"
)

func main() {
	log := logger.Get()
	defer log.Sync()

	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file loaded", zap.Error(err))
	}

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("ping database", zap.Error(err))
	}
	log.Info("connected to database")

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		log.Fatal("JWT_SECRET is required")
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(metrics.Middleware)

	router.Handle("/metrics", promhttp.Handler())

	auditor := audit.NewSink(db, log)

	// ── Catalog store ───────────────────────────────────────
	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo)

	// ── Discount evaluator ──────────────────────────────────
	discountRepo := discount.NewPostgresRepository(db)
	discountService := discount.NewService(discountRepo)

	// ── Stock ledger ────────────────────────────────────────
	ledgerRepo := ledger.NewPostgresRepository(db)

	// ── Order transaction engine ────────────────────────────
	orderRepo := order.NewPostgresRepository(db)
	orderService := order.NewService(orderRepo, discountRepo, auditor)

	// ── Return transaction engine ───────────────────────────
	returnsRepo := returns.NewPostgresRepository(db)
	returnsService := returns.NewService(returnsRepo, auditor)

	// All business routes sit behind the identity middleware.
	router.Group(func(r chi.Router) {
		r.Use(authn.Middleware(jwtSecret))

		catalog.NewHandler(catalogService).RegisterRoutes(r)
		discount.NewHandler(discountService).RegisterRoutes(r)
		ledger.NewHandler(ledgerRepo).RegisterRoutes(r)
		order.NewHandler(orderService).RegisterRoutes(r)
		returns.NewHandler(returnsService).RegisterRoutes(r)
	})

	// ── Start server ────────────────────────────────────────
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("POS API server starting", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
