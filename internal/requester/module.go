package requester

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the requester module dependencies
var Module = fx.Options(
	fx.Provide(
		NewHTTPRequester,
		func(r *HTTPRequester) Requester { return r },
		fx.Annotate(
			NewHTTPAuthManager,
			fx.As(new(AuthManager)),
		),
		NewHTTPRequestBuilder,
	),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle releases pooled connections when the app stops.
func registerLifecycle(lc fx.Lifecycle, r Requester) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			r.Destroy()
			return nil
		},
	})
}
