package identity

import (
	"context"

	"github.com/LPredmore/lh-ehr/internal/policy"
)

type contextKey string

const (
	principalKey   contextKey = "principal"
	requestMetaKey contextKey = "request_meta"
)

// RequestMeta carries per-request attribution captured at the edge, recorded
// alongside every audit entry the request produces.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// WithPrincipal stores the resolved principal on the context.
func WithPrincipal(ctx context.Context, p policy.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal stored on the context. The zero
// principal (unauthenticated) is returned when none was resolved.
func PrincipalFrom(ctx context.Context) policy.Principal {
	if p, ok := ctx.Value(principalKey).(policy.Principal); ok {
		return p
	}
	return policy.Principal{}
}

// WithRequestMeta stores request attribution on the context.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey, meta)
}

// RequestMetaFrom returns the request attribution stored on the context.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	if m, ok := ctx.Value(requestMetaKey).(RequestMeta); ok {
		return m
	}
	return RequestMeta{}
}
