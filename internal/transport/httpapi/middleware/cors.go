package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

// preflightCache is how long a browser may reuse a preflight answer
const preflightCache = 5 * time.Minute

// CORS lets the Teams tab read the feed and post zaps from its own origin.
// The tab sends its supersession key in ClientKeyHeader and reads the
// request id back for support reports.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ClientKeyHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           int(preflightCache.Seconds()),
	})
}
