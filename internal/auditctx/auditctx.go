package auditctx

import "context"

// Origin captures where a request came from and, once authenticated, which account made it.
type Origin struct {
	AccountID string
	IPAddress string
	UserAgent string
}

type originContextKey struct{}

// WithOrigin injects request origin metadata into the supplied context so service layers can
// attribute audit entries without depending on the transport.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	if ctx == nil {
		return context.WithValue(context.Background(), originContextKey{}, origin)
	}
	return context.WithValue(ctx, originContextKey{}, origin)
}

// FromContext extracts previously stored origin metadata from the context.
func FromContext(ctx context.Context) (Origin, bool) {
	if ctx == nil {
		return Origin{}, false
	}
	origin, ok := ctx.Value(originContextKey{}).(Origin)
	return origin, ok
}
