package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"genstudio/internal/infra/geoip"
)

// Country resolves the requester's ISO country code. An edge-provided
// CF-IPCountry header wins over the local database.
func Country(resolver geoip.CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := strings.ToUpper(strings.TrimSpace(r.Header.Get("CF-IPCountry")))
			if code == "XX" || code == "T1" {
				code = ""
			}
			if code == "" && resolver != nil {
				resolved, err := resolver.CountryCode(clientIPForRateLimit(r))
				if err != nil {
					zerolog.Ctx(r.Context()).Debug().Err(err).Msg("http: country lookup failed")
				}
				code = resolved
			}
			if code != "" {
				r = r.WithContext(context.WithValue(r.Context(), countryKey, code))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CountryFromContext returns the code stored by Country, or "".
func CountryFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(countryKey).(string); ok {
		return v
	}
	return ""
}
