package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/mljjcooking/storefront-backend/pkg/config"
)

// CORS returns middleware that applies the storefront's allowed origin policy.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
