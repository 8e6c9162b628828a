package catalog

import (
	"context"
	"net/http"
	"net/http/httputil"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Xunop/bookshelf/internal/log"
)

// SearchProxy forwards GET ?q=... to the catalog search.json unchanged and
// streams the answer back. Credentials of the caller are not forwarded. The
// whole exchange is bounded by the client timeout.
func (c *Client) SearchProxy() http.Handler {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			target := *c.baseURL
			out := r.Out
			path := SearchPath(r.In.URL.Query().Get("q"))
			target.Path = c.baseURL.Path + "/search.json"
			target.RawQuery = strings.SplitN(path, "?", 2)[1]
			out.URL = &target
			out.Host = target.Host
			out.Header.Del("Authorization")
			out.Header.Del("Cookie")
			out.Header.Del("Origin")
		},
		Transport: c.http.Transport,
		ModifyResponse: func(resp *http.Response) error {
			// CORS is answered by our own middleware.
			for name := range resp.Header {
				if strings.HasPrefix(strings.ToLower(name), "access-control-") {
					resp.Header.Del(name)
				}
			}
			resp.Header.Del("Set-Cookie")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn("Catalog search proxy failed", zap.Error(err), zap.String("query", r.URL.RawQuery))
			w.Header().Set("Content-Type", "application/json")
			if errors.Is(err, context.DeadlineExceeded) {
				w.WriteHeader(http.StatusGatewayTimeout)
				_, _ = w.Write([]byte(`{"status":504,"message":"Gateway Timeout","error":{}}`))
				return
			}
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"status":502,"message":"Bad Gateway","error":{}}`))
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), c.http.Timeout)
		defer cancel()
		proxy.ServeHTTP(w, r.WithContext(ctx))
	})
}
