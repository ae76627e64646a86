package authz

import "context"

// TenantChannelHeader is the out-of-band tenant header compared against
// the identity claim during the gateway's tenant check.
const TenantChannelHeader = "X-Tenant-ID"

type actorContextKey struct{}

// ContextWithActor stores the actor in context. The identity layer
// calls this after validating the claim shape.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
