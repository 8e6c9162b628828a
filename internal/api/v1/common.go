package v1

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/Xunop/bookshelf/internal/bookshelf"
	"github.com/Xunop/bookshelf/internal/catalog"
	"github.com/Xunop/bookshelf/internal/http/response"
	"github.com/Xunop/bookshelf/internal/validator"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// decodeJSON reads the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v); err != nil {
		return &bookshelf.Error{Status: http.StatusBadRequest, Message: "Invalid request body", Detail: err.Error()}
	}
	return nil
}

// handleError maps err to the JSON error envelope.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		domainErr  *bookshelf.Error
		fieldErrs  validator.Errors
		notFound   *catalog.NotFoundError
		upstream   *catalog.UpstreamError
		parseError *catalog.ParseError
	)
	switch {
	case errors.As(err, &domainErr):
		response.Error(w, r, domainErr.Status, domainErr.Message, domainErr.Detail)
	case errors.As(err, &fieldErrs):
		response.BadRequest(w, r, "Invalid field value", fieldErrs)
	case errors.As(err, &notFound):
		response.BadRequest(w, r, bookshelf.ErrInvalidBook.Message, notFound.Error())
	case errors.As(err, &upstream):
		response.Error(w, r, upstreamStatus(upstream), "Catalog request failed", upstream.Error())
	case errors.As(err, &parseError):
		response.Error(w, r, http.StatusBadGateway, "Catalog request failed", parseError.Error())
	default:
		response.ServerError(w, r, err)
	}
}

// upstreamStatus passes catalog client errors through and reports the rest
// as a bad gateway, keeping the breaker's 503 and timeouts' 504.
func upstreamStatus(err *catalog.UpstreamError) int {
	switch {
	case err.ClientError():
		return err.StatusCode
	case err.StatusCode == http.StatusServiceUnavailable, err.StatusCode == http.StatusGatewayTimeout:
		return err.StatusCode
	default:
		return http.StatusBadGateway
	}
}

// routeMethods are the methods served below /api.
var routeMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}

// notFound answers 405 when another method serves the path. A subrouter loses
// the method mismatch as soon as a later route shares its path prefix, so the
// router's own MethodNotAllowedHandler is not reliable here.
func (h *Handler) notFound(router *mux.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions && servesPath(router, r) {
			response.MethodNotAllowed(w, r)
			return
		}
		response.NotFound(w, r)
	}
}

// servesPath reports whether router has a route for the path of r under any
// API method.
func servesPath(router *mux.Router, r *http.Request) bool {
	for _, method := range routeMethods {
		if method == r.Method {
			continue
		}
		alt := r.Clone(r.Context())
		alt.Method = method
		var match mux.RouteMatch
		if router.Match(alt, &match) && match.MatchErr == nil {
			return true
		}
	}
	return false
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.MethodNotAllowed(w, r)
}
