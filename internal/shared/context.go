package shared

import "context"

type actorContextKey struct{}

// ContextWithActor stores the acting user id attached by the upstream auth layer.
func ContextWithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, userID)
}

// ActorFromContext extracts the acting user id, empty when unauthenticated.
func ActorFromContext(ctx context.Context) string {
	id, _ := ctx.Value(actorContextKey{}).(string)
	return id
}
