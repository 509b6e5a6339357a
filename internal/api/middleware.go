package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// WrapHandler puts CORS and per-IP rate limiting in front of the router.
// CORS runs first so preflights are answered without reaching Gin or
// counting against the limit. A rateLimitPerMinute of 0 disables limiting.
func WrapHandler(router http.Handler, rateLimitPerMinute int) http.Handler {
	var h http.Handler = router
	if rateLimitPerMinute > 0 {
		h = httprate.LimitByIP(rateLimitPerMinute, time.Minute)(h)
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})(h)
}
