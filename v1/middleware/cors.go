package middleware

import (
	"net/http"
	"os"
	"strconv"
)

// CORSMiddleware creates a CORS middleware
func CORSMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", corsAllowedOrigins())
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", corsMaxAge())

			// Handle preflight (OPTIONS) requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func corsAllowedOrigins() string {
	if value := os.Getenv("CORS_ALLOWED_ORIGINS"); value != "" {
		return value
	}
	return "*"
}

// corsMaxAge gets the CORS max age from environment variable or returns default
func corsMaxAge() string {
	if value := os.Getenv("CORS_MAX_AGE"); value != "" {
		if _, err := strconv.Atoi(value); err == nil {
			return value
		}
	}
	return "86400" // Default: 24 hours
}
