package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/helixir/systematic-review-service/internal/observability"
)

// correlationIDMiddleware ensures every request carries a correlation ID,
// preferring one supplied by the caller over the chi request ID.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = middleware.GetReqID(r.Context())
		}

		w.Header().Set("X-Correlation-ID", correlationID)
		ctx := observability.ContextWithRequestID(r.Context(), correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// jsonContentTypeMiddleware sets Content-Type: application/json for all responses.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per completed request with its status and
// duration, and stores a request-scoped logger in the context.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", observability.RequestIDFromContext(r.Context())).
			Logger()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(observability.ContextWithLogger(r.Context(), logger)))

		logger.Info().
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}
