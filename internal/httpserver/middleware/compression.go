package middleware

import (
	"net/http"
	"strings"
)

// SkipCompressionForStreaming wraps a compression middleware handler to skip
// compression for the media proxy routes. Re-compressing an already-compressed
// video segment wastes CPU, and gzip's buffering defeats Range/chunked
// streaming back to the receiver.
func SkipCompressionForStreaming(compressionHandler func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		compressedHandler := compressionHandler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/proxy") {
				next.ServeHTTP(w, r)
				return
			}

			compressedHandler.ServeHTTP(w, r)
		})
	}
}
