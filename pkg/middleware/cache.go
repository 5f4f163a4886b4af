package middleware

import "net/http"

// NoStore marks responses as uncacheable. Orders and invoices carry
// customer contact details.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
