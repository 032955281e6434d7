package api

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const maxLoggedBody = 10000

// LoggingMiddleware logs all HTTP requests with small request/response
// bodies. Bodies under /auth/ carry credentials and tokens and are never
// logged; neither are multipart uploads.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		redact := strings.HasPrefix(r.URL.Path, "/auth/")
		multipart := strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")

		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		if !redact && !multipart && r.Body != nil && r.ContentLength > 0 && r.ContentLength < maxLoggedBody {
			requestBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody)) // Restore body for handler
			log.Printf("  Request Body: %s", string(requestBody))
		}

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("[%s] %s - %d (%v)", r.Method, r.URL.Path, wrapped.statusCode, duration)
		if !redact && wrapped.body.Len() > 0 && !wrapped.truncated {
			log.Printf("  Response Body: %s", wrapped.body.String())
		}
	})
}

// responseWriter wraps http.ResponseWriter to capture status code and body
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	truncated  bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.body.Len()+len(b) < maxLoggedBody {
		rw.body.Write(b)
	} else {
		rw.truncated = true
	}
	return rw.ResponseWriter.Write(b)
}
