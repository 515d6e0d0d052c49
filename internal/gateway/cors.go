package gateway

import "net/http"

// corsMiddleware applies the configured allowed origin to every
// response and short-circuits preflight requests. With origin "*" (or
// empty) the request's own Origin header is echoed back.
func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			h.Set("Access-Control-Allow-Headers", "content-type")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")

			switch {
			case allowedOrigin == "" || allowedOrigin == "*":
				origin := r.Header.Get("Origin")
				if origin == "" {
					origin = "*"
				}
				h.Set("Access-Control-Allow-Origin", origin)
			default:
				h.Set("Access-Control-Allow-Origin", allowedOrigin)
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
