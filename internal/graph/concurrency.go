package graph

import "net/http"

// ConcurrencyLimit restricts the number of concurrent GraphQL requests so request
// fan-out cannot exhaust the data-access connection pool. onReject, when set, is
// called for every request turned away.
func ConcurrencyLimit(limit int, onReject func()) func(http.Handler) http.Handler {
	sem := make(chan struct{}, limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				next.ServeHTTP(w, r)
			default:
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"errors":[{"message":"server busy, try again"}]}`))
			}
		})
	}
}
