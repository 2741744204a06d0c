package httpapi

import (
	"context"
	"net/http"
)

// serverBaseCtx is canceled when the process begins shutdown. Handlers
// derive their work context from it so in-flight routing and unload
// calls stop with the server.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process shutdown context. Nil resets to
// Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// handlerContext derives a per-request context that ends when the client
// disconnects or the server shuts down, whichever comes first. The
// returned cancel must be called when the handler finishes.
func handlerContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(serverBaseCtx)
	stop := context.AfterFunc(r.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
