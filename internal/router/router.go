package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/scoopstand/api/internal/config"
	"github.com/scoopstand/api/internal/dataset"
	"github.com/scoopstand/api/internal/handler"
	"github.com/scoopstand/api/internal/service"
	"github.com/scoopstand/api/internal/session"
	"github.com/scoopstand/api/internal/ws"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Configurator *service.OrderConfigurator
	Ranker       *service.DistributionRanker
	Dataset      dataset.Source
	Sessions     session.Store
	// Receipts is optional. When set, submitted receipts are pushed to
	// displays connected on /ws/receipts.
	Receipts *ws.Hub
}

// New creates a Chi router with the kiosk and dashboard routes wired up.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Receipt displays
	var feed handler.ReceiptFeed
	if deps.Receipts != nil {
		feed = deps.Receipts
		r.Get("/ws/receipts", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(deps.Receipts, w, r)
		})
	}

	// Ice-cream kiosk
	kioskHandler := handler.NewKioskHandler(deps.Configurator, deps.Sessions, feed)
	r.Route("/kiosk", kioskHandler.RegisterRoutes)

	// MBTI dashboard
	distributionHandler := handler.NewDistributionHandler(deps.Dataset, deps.Ranker)
	r.Route("/mbti", distributionHandler.RegisterRoutes)

	log.Println("Router initialized with all handlers")
	return r
}
