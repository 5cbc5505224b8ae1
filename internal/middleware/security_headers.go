package middleware

import "net/http"

// SecurityHeadersConfig holds security headers configuration
type SecurityHeadersConfig struct {
	Env string
}

// SecurityHeaders adds the standard browser hardening headers to every
// response. The CSP is strict in production and relaxed in development so
// hot reloading keeps working.
func SecurityHeaders(config SecurityHeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
			w.Header().Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=()")

			if config.Env == "production" {
				w.Header().Set("Content-Security-Policy",
					"default-src 'self'; "+
						"script-src 'self'; "+
						"style-src 'self' 'unsafe-inline'; "+
						"img-src 'self' data: https:; "+
						"connect-src 'self'; "+
						"frame-ancestors 'none'; "+
						"base-uri 'self'; "+
						"form-action 'self'")
				if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
					w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
				}
			} else {
				w.Header().Set("Content-Security-Policy",
					"default-src 'self' http: https: ws:; "+
						"script-src 'self' 'unsafe-inline' 'unsafe-eval' http: https:; "+
						"style-src 'self' 'unsafe-inline' http: https:; "+
						"img-src 'self' data: http: https:; "+
						"connect-src 'self' http: https: ws: wss:; "+
						"base-uri 'self'; "+
						"form-action 'self'")
			}

			next.ServeHTTP(w, r)
		})
	}
}
