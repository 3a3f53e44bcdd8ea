package httpserver

import (
	"log"
	"net/http"

	"github.com/cinemacal/cinemacal-back/internal/http/handlers"
	"github.com/cinemacal/cinemacal-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", deps.API.Health)
	mux.HandleFunc("/api/scrape", deps.API.Scrape)
	mux.HandleFunc("/api/scrape/", deps.API.ScrapeStatus)
	mux.HandleFunc("/api/screenings", deps.API.Screenings)
	mux.HandleFunc("/api/venues", deps.API.Venues)
	mux.HandleFunc("/api/export/ics", deps.API.ExportICS)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
