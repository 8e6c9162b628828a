package v1

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/api/auth"
	"github.com/Xunop/bookshelf/internal/http/request"
	"github.com/Xunop/bookshelf/internal/http/response"
	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/store"
)

var authenticationAllowlist = map[string]bool{
	"/api/login":      true,
	"/api/register":   true,
	"/api/register/*": true,
}

// isUnauthorizeAllowed returns whether the path is exempted from authentication.
// Support the wildcard character *.
func isUnauthorizeAllowed(path string) bool {
	for k := range authenticationAllowlist {
		if strings.HasSuffix(k, "*") {
			if strings.HasPrefix(path, strings.TrimSuffix(k, "*")) {
				return true
			}
		}
	}

	return authenticationAllowlist[path]
}

type AuthInterceptor struct {
	store  *store.Store
	secret string
}

func NewAuthInterceptor(store *store.Store, secret string) *AuthInterceptor {
	return &AuthInterceptor{store: store, secret: secret}
}

// AuthenticationInterceptor puts the verified caller into the request
// context. Requests without a valid token for an existing user get a 401.
func (m *AuthInterceptor) AuthenticationInterceptor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isUnauthorizeAllowed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		clientIP := request.ClientIP(r)

		identity, err := auth.ParseAccessToken(getAccessToken(r), []byte(m.secret))
		if err != nil {
			log.Debug("Failed to authenticate user",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", r.UserAgent()),
				zap.Error(err),
			)
			response.Unauthorized(w, r)
			return
		}

		user, err := m.store.GetUser(r.Context(), &model.FindUser{ID: &identity.UserID})
		if err != nil {
			log.Error("Failed to get user",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", r.UserAgent()),
				zap.Error(err),
			)
			response.ServerError(w, r, err)
			return
		}
		if user == nil {
			log.Debug("User not found",
				zap.String("client_ip", clientIP),
				zap.String("user_agent", r.UserAgent()),
				zap.Int32("user_id", identity.UserID),
			)
			response.Unauthorized(w, r)
			return
		}
		identity.Admin = user.Admin

		next.ServeHTTP(w, request.WithIdentity(r, identity))
	})
}

func getAccessToken(r *http.Request) string {
	authorizationHeader := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authorizationHeader, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
