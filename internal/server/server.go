package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	v1 "github.com/Xunop/bookshelf/internal/api/v1"
	"github.com/Xunop/bookshelf/internal/bookshelf"
	"github.com/Xunop/bookshelf/internal/catalog"
	"github.com/Xunop/bookshelf/internal/config"
	"github.com/Xunop/bookshelf/internal/http/response"
	"github.com/Xunop/bookshelf/internal/log"
	"github.com/Xunop/bookshelf/internal/middleware"
	"github.com/Xunop/bookshelf/internal/store"
	"github.com/Xunop/bookshelf/internal/version"
)

// StartServer starts the HTTP server
func StartServer(ctx context.Context, store *store.Store) (*http.Server, error) {
	handler, err := NewHandler(ctx, store)
	if err != nil {
		return nil, err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Opts.Host, config.Opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	startHTTPServer(server)

	return server, nil
}

func startHTTPServer(server *http.Server) {
	go func() {
		log.Info("Starting HTTP server", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()
}

// NewHandler wires the catalog client, the bookshelf service and the API
// routes from config.Opts.
func NewHandler(ctx context.Context, store *store.Store) (http.Handler, error) {
	secret := config.Opts.JWTSecret
	if secret == "" {
		security, err := store.GetOrCreateSecuritySetting(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load security setting")
		}
		secret = security.JWTSecret
	}

	catalogClient, err := catalog.NewClient(catalog.Options{
		BaseURL: config.Opts.CatalogURL,
		Timeout: time.Duration(config.Opts.CatalogTimeout) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	service := bookshelf.NewService(store, bookshelf.NewRegistry(store, catalogClient), config.Opts.SortLocale)
	apiHandler := v1.NewHandler(store, service, catalogClient, secret, time.Duration(config.Opts.JWTExpiration)*time.Second)

	return setupHandler(store, apiHandler), nil
}

func setupHandler(store *store.Store, apiHandler *v1.Handler) http.Handler {
	router := mux.NewRouter()
	m := middleware.NewMiddleware(config.Opts.FrontendURL)
	router.Use(m.LoggingRequest)
	router.NotFoundHandler = m.LoggingRequest(http.HandlerFunc(response.NotFound))

	// Setup the API routes
	v1.Server(router, apiHandler, m)

	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(); err != nil {
			log.Error("Database ping failed", zap.Error(err))
			http.Error(w, "Database Connection Error", http.StatusInternalServerError)
			return
		}

		w.Write([]byte("OK"))
	}).Name("healthcheck")

	router.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(version.GetCurrentVersion()))
	}).Name("version")

	if config.Opts.MetricsCollector {
		router.Handle("/metrics", promhttp.Handler()).Name("metrics")
	}

	return router
}
