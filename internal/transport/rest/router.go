package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyclue/internal/service"
	"keyclue/internal/transport/rest/handler"
	"keyclue/internal/transport/rest/middleware"
	"keyclue/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService   *service.AuthService
	GameService   *service.GameService
	PlayerService *service.PlayerService
	PickService   *service.PickService
	WSHub         *ws.Hub
	HostWatcher   ws.HostWatcher
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	gameHandler := handler.NewGameHandler(c.GameService, c.PlayerService)
	playerHandler := handler.NewPlayerHandler(c.PlayerService, c.PickService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.HostWatcher)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/games/{code}/join", playerHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/games/{code}", gameHandler.Get).Methods("GET", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/games/{code}/host", wsHandler.HostWS).Methods("GET")
	v1.HandleFunc("/ws/games/{code}/player", wsHandler.PlayerWS).Methods("GET")

	// Health check and metrics
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Host routes (require host auth)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/games", gameHandler.Create).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/start", gameHandler.Start).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/end", gameHandler.End).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/session", gameHandler.SessionState).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/players", gameHandler.Players).Methods("GET", "OPTIONS")
	hostRoutes.HandleFunc("/games/{code}/leaderboard", gameHandler.Leaderboard).Methods("GET", "OPTIONS")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/games/{code}/picks", playerHandler.SubmitPick).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
