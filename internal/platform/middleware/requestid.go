package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// ContextWithRequestID attaches a request id to the context.
func ContextWithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestIDFromContext returns the request id attached by the RequestID
// middleware, or "" when none is set.
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}

// RequestID assigns every request an id, preserving one supplied by the
// caller. The id is stored on the echo context and the request context so
// downstream layers can stamp it onto audit entries, and echoed back in the
// response header.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.SetRequest(c.Request().WithContext(
				ContextWithRequestID(c.Request().Context(), rid)))
			c.Response().Header().Set(RequestIDHeader, rid)
			return next(c)
		}
	}
}
