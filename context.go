package goVault

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type loginEmailContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine records it on
// audit events and on the refresh records it issues.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. It is stored on refresh
// records issued by Login.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithLoginEmail attaches the address the caller typed at login. Failed logins log
// this value, not the principal's stored address.
func WithLoginEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, loginEmailContextKey{}, email)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func loginEmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	email, _ := ctx.Value(loginEmailContextKey{}).(string)
	return email
}
