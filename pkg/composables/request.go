package composables

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/supplyline/datagate/pkg/configuration"
	"github.com/supplyline/datagate/pkg/constants"
)

// Params carries the request-scoped attributes used to enrich access attempts
// and audit events. Callers outside an HTTP handler may populate it directly.
type Params struct {
	IP        string
	UserAgent string
	Endpoint  string
	Method    string
	RequestID string
	SessionID string
}

// ParamsFromRequest builds Params from an incoming HTTP request. The request
// id is read from X-Request-Id when present.
func ParamsFromRequest(r *http.Request) *Params {
	return &Params{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
		RequestID: r.Header.Get("X-Request-Id"),
	}
}

// WithParams returns a new context with the request parameters.
func WithParams(ctx context.Context, params *Params) context.Context {
	return context.WithValue(ctx, constants.ParamsKey, params)
}

// UseParams returns the request parameters from the context.
// If the parameters are not found, the second return value will be false.
func UseParams(ctx context.Context) (*Params, bool) {
	params, ok := ctx.Value(constants.ParamsKey).(*Params)
	return params, ok
}

// WithLogger returns a new context carrying the given logger entry.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context, falling back to the
// env-configured root logger so telemetry paths never panic.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok {
		return logrus.NewEntry(configuration.Use().Logger())
	}
	return logger
}
