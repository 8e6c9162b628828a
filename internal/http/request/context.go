package request // import "github.com/Xunop/bookshelf/internal/http/request"

import (
	"context"
	"net/http"

	"github.com/Xunop/bookshelf/internal/model"
)

type ContextKey int

const (
	ClientIPContextKey ContextKey = iota
	IdentityContextKey
	RouteContextKey
)

func getContextStringValue(r *http.Request, key ContextKey) string {
	if v := r.Context().Value(key); v != nil {
		if value, valid := v.(string); valid {
			return value
		}
	}
	return ""
}

// WithIdentity returns a copy of r carrying the verified caller.
func WithIdentity(r *http.Request, identity *model.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), IdentityContextKey, identity))
}

// GetIdentity returns the caller set by the auth interceptor, or nil.
func GetIdentity(r *http.Request) *model.Identity {
	if v, ok := r.Context().Value(IdentityContextKey).(*model.Identity); ok {
		return v
	}
	return nil
}

// WithClientIP stores the resolved client address so later handlers do not
// parse the proxy headers again.
func WithClientIP(r *http.Request, ip string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ClientIPContextKey, ip))
}

// ClientIP returns the client IP address stored in the context.
func ClientIP(r *http.Request) string {
	if ip := getContextStringValue(r, ClientIPContextKey); ip != "" {
		return ip
	}
	return FindClientIP(r)
}
