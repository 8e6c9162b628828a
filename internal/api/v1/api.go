package v1

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Xunop/bookshelf/internal/bookshelf"
	"github.com/Xunop/bookshelf/internal/catalog"
	"github.com/Xunop/bookshelf/internal/middleware"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/store"
)

type Handler struct {
	store   *store.Store
	service *bookshelf.Service
	catalog *catalog.Client
	// For JWT
	secret     string
	expiration time.Duration
}

// NewHandler is a constructor for the v1.Handler
func NewHandler(store *store.Store, service *bookshelf.Service, catalog *catalog.Client, secret string, expiration time.Duration) *Handler {
	return &Handler{
		store:      store,
		service:    service,
		catalog:    catalog,
		secret:     secret,
		expiration: expiration,
	}
}

// Server mounts the API under /api on router.
func Server(router *mux.Router, handler *Handler, m *middleware.Middleware) {
	sr := router.PathPrefix("/api").Subrouter()
	sr.Use(m.HandleCORS)
	sr.Use(NewAuthInterceptor(handler.store, handler.secret).AuthenticationInterceptor)
	sr.NotFoundHandler = m.LoggingRequest(m.HandleCORS(handler.notFound(sr)))
	sr.MethodNotAllowedHandler = m.LoggingRequest(m.HandleCORS(http.HandlerFunc(handler.methodNotAllowed)))
	// HandleCORS answers preflight requests before this handler runs. A
	// method matcher would turn every unknown path into a 405.
	sr.MatcherFunc(func(r *http.Request, _ *mux.RouteMatch) bool {
		return r.Method == http.MethodOptions
	}).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	sr.HandleFunc("/login", handler.login).Methods(http.MethodPost)
	sr.HandleFunc("/register", handler.register).Methods(http.MethodPost)
	sr.HandleFunc("/register/username", handler.validateUsername).Methods(http.MethodPost)
	sr.HandleFunc("/register/email", handler.validateEmail).Methods(http.MethodPost)
	sr.HandleFunc("/register/password", handler.validatePassword).Methods(http.MethodPost)

	sr.HandleFunc("/profile", handler.getProfile).Methods(http.MethodGet)
	sr.HandleFunc("/profile", handler.updateProfile).Methods(http.MethodPatch)
	sr.HandleFunc("/profile", handler.deleteProfile).Methods(http.MethodDelete)

	sr.Handle("/search", handler.catalog.SearchProxy()).Methods(http.MethodGet)

	shelf := &partitionRoutes{handler: handler, partition: model.ShelfPartition}
	sr.HandleFunc("/", shelf.list).Methods(http.MethodGet)
	sr.HandleFunc("/", shelf.add).Methods(http.MethodPost)
	sr.HandleFunc("/book/{id}", shelf.get).Methods(http.MethodGet)
	sr.HandleFunc("/book/{id}", shelf.update).Methods(http.MethodPatch)
	sr.HandleFunc("/book/{id}", shelf.delete).Methods(http.MethodDelete)

	wishlist := &partitionRoutes{handler: handler, partition: model.WishlistPartition}
	sr.HandleFunc("/wishlist", wishlist.list).Methods(http.MethodGet)
	sr.HandleFunc("/wishlist", wishlist.add).Methods(http.MethodPost)
	sr.HandleFunc("/wishlist/book/{id}", wishlist.get).Methods(http.MethodGet)
	sr.HandleFunc("/wishlist/book/{id}", wishlist.update).Methods(http.MethodPatch)
	sr.HandleFunc("/wishlist/book/{id}", wishlist.delete).Methods(http.MethodDelete)
}
