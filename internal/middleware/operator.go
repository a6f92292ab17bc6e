// AngelaMos | 2026
// operator.go

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/carterperez-dev/templates/pos-backend/internal/core"
)

const OperatorKeyHeader = "X-Operator-Key"

// RequireOperatorKey guards operational endpoints with a shared key. An
// empty key disables the endpoints entirely.
func RequireOperatorKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				core.NotFound(w, "endpoint")
				return
			}

			got := r.Header.Get(OperatorKeyHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				core.JSONError(w, core.UnauthorizedError("invalid operator key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
