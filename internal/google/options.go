package google

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/example/room-booker/internal/application"
	"github.com/example/room-booker/internal/instrumentation"
)

// Options configures the transport and observability shared by the clients.
type Options struct {
	Metrics *instrumentation.Metrics
	Tracer  trace.Tracer

	// HTTPClient is the base client the OAuth transport wraps.
	HTTPClient *http.Client
	// Endpoint overrides the API base URL.
	Endpoint string
}

func (o Options) tracer() trace.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}
	return noop.NewTracerProvider().Tracer(instrumentation.TracerName)
}

func toOAuthToken(tokens application.TokenBundle) *oauth2.Token {
	tokenType := tokens.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokenType,
		Expiry:       tokens.Expiry,
	}
}

// clientOptions authorises requests with the stored access token only.
func (o Options) clientOptions(ctx context.Context, tokens application.TokenBundle) []option.ClientOption {
	if o.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.HTTPClient)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(toOAuthToken(tokens)))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if o.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.Endpoint))
	}
	return opts
}

// observe runs fn inside a client span, records the call metric and wraps a
// failure into an UpstreamError.
func (o Options) observe(ctx context.Context, service, operation string, fn func(context.Context) error) error {
	ctx, span := o.tracer().Start(ctx, service+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("google.service", service),
			attribute.String("google.operation", operation),
		),
	)

	started := time.Now()
	err := fn(ctx)
	status := HTTPStatus(err)

	o.Metrics.RecordGoogleCall(service, operation, status, time.Since(started))
	instrumentation.EndSpan(span, status, err)

	return wrap(service+"."+operation, err)
}
