package httpclient

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Handler executes an HTTP request.
type Handler func(ctx context.Context, req *http.Request) (*http.Response, error)

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// LoggingMiddleware logs each request with its status and duration.
func LoggingMiddleware(logger *zap.SugaredLogger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				logger.Warnw("http request failed",
					"method", req.Method, "url", req.URL.String(),
					"duration", time.Since(start), "error", err)
				return resp, err
			}
			logger.Debugw("http request",
				"method", req.Method, "url", req.URL.String(),
				"status", resp.StatusCode, "duration", time.Since(start))
			return resp, err
		}
	}
}

// HeaderMiddleware sets extra headers on every request.
func HeaderMiddleware(headers map[string]string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req *http.Request) (*http.Response, error) {
			for key, value := range headers {
				req.Header.Set(key, value)
			}
			return next(ctx, req)
		}
	}
}
