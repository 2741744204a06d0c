package main

import (
	"context"

	"modelgate/internal/lifecycle"
	"modelgate/internal/router"
	"modelgate/internal/runtime"
	"modelgate/pkg/types"
)

// gateway glues the manager, router and runtime client into the single
// service surface the HTTP layer consumes.
type gateway struct {
	mgr *lifecycle.Manager
	rtr *router.Router
	rt  *runtime.Client
}

func (g *gateway) Route(ctx context.Context, req types.ChatRequest) types.RoutingDecision {
	return g.rtr.Route(ctx, req)
}

func (g *gateway) Status() types.StatusResponse {
	s := g.mgr.Status()
	s.Breaker = g.rt.BreakerSnapshot()
	return s
}

func (g *gateway) Stats() types.RoutingStats { return g.rtr.Stats() }

func (g *gateway) Models() types.ModelsResponse {
	return types.ModelsResponse{Models: g.mgr.Catalog()}
}

func (g *gateway) Unload(ctx context.Context, name string) error {
	return g.mgr.Unload(ctx, name)
}

func (g *gateway) Health(ctx context.Context) types.HealthResponse {
	return g.rtr.Health(ctx)
}

func (g *gateway) Ready() bool { return g.mgr.Ready() }
