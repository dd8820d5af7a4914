package middleware

import (
	"io"
	"net/http"
)

// form posts are tiny, anything past this is not worth reading just to reuse
// the connection
const maxDrainBytes = 64 << 10

// DrainAndCloseRequest reads off what the handler left of the body, up to
// maxDrainBytes, and closes it.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			if r.Body == nil || r.Body == http.NoBody {
				return
			}
			_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
			_ = r.Body.Close()
		})
	}
}
