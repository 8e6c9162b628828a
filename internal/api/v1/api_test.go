package v1

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/Xunop/bookshelf/internal/bookshelf"
	"github.com/Xunop/bookshelf/internal/catalog"
	"github.com/Xunop/bookshelf/internal/middleware"
	"github.com/Xunop/bookshelf/internal/model"
	"github.com/Xunop/bookshelf/internal/store"
	"github.com/Xunop/bookshelf/internal/store/db"
)

const catalogBody = `{"docs": [
	{"key": "/works/OL1W", "title": "Dune", "author_name": ["Frank Herbert"]},
	{"key": "/works/OL2W", "title": "Emma", "author_name": ["Jane Austen"]},
	{"key": "/works/OL3W", "title": "Anna Karenina", "author_name": ["Leo Tolstoy"]}
]}`

type testAPI struct {
	t      *testing.T
	server *httptest.Server
	store  *store.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	d, err := db.NewDB(filepath.Join(t.TempDir(), "bookshelf.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	s := store.NewStore(d.DB)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if q := r.URL.Query().Get("q"); q == "OL500W" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, catalogBody)
	}))
	t.Cleanup(upstream.Close)

	c, err := catalog.NewClient(catalog.Options{BaseURL: upstream.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Failed to create catalog client: %v", err)
	}
	service := bookshelf.NewService(s, bookshelf.NewRegistry(s, c), "en")
	handler := NewHandler(s, service, c, "test-secret", time.Hour)

	m := middleware.NewMiddleware("http://localhost:5173")
	router := mux.NewRouter()
	router.Use(m.LoggingRequest)
	Server(router, handler, m)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testAPI{t: t, server: srv, store: s}
}

func (a *testAPI) do(method, path, token string, body any) (*http.Response, []byte) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		a.t.Fatal(err)
	}
	return resp, b
}

func (a *testAPI) expect(method, path, token string, body any, status int) []byte {
	a.t.Helper()
	resp, b := a.do(method, path, token, body)
	if resp.StatusCode != status {
		a.t.Fatalf("%s %s: got status %d, want %d: %s", method, path, resp.StatusCode, status, b)
	}
	return b
}

func (a *testAPI) signup(username string) string {
	a.t.Helper()
	a.expect(http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}, http.StatusCreated)

	b := a.expect(http.MethodPost, "/api/login", "", map[string]string{
		"username": username,
		"password": "password123",
	}, http.StatusOK)
	var token struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
	}
	if err := json.Unmarshal(b, &token); err != nil {
		a.t.Fatal(err)
	}
	if token.Token == "" || token.ExpiresIn != 3600 {
		a.t.Fatalf("unexpected login response %s", b)
	}
	return token.Token
}

type errorEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   any    `json:"error"`
}

func decodeEnvelope(t *testing.T, b []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("invalid error envelope %s: %v", b, err)
	}
	return env
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t)

	b := api.expect(http.MethodGet, "/api/", "", nil, http.StatusUnauthorized)
	if env := decodeEnvelope(t, b); env.Status != 401 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	api.expect(http.MethodGet, "/api/", "not-a-token", nil, http.StatusUnauthorized)

	api.signup("reader")
	b = api.expect(http.MethodPost, "/api/login", "", map[string]string{"username": "reader", "password": "wrongpassword"}, http.StatusBadRequest)
	if env := decodeEnvelope(t, b); env.Message != "Username or password is incorrect." {
		t.Fatalf("unexpected message %q", env.Message)
	}
	api.expect(http.MethodPost, "/api/login", "", map[string]string{"username": "nobody", "password": "password123"}, http.StatusBadRequest)
}

func TestRegisterValidation(t *testing.T) {
	api := newTestAPI(t)
	api.signup("reader")

	b := api.expect(http.MethodPost, "/api/register", "", map[string]string{
		"username": "reader",
		"email":    "bad",
		"password": "short",
	}, http.StatusBadRequest)
	if env := decodeEnvelope(t, b); env.Message != "Invalid field value" {
		t.Fatalf("unexpected envelope %+v", env)
	}

	api.expect(http.MethodPost, "/api/register/username", "", map[string]string{"username": "reader"}, http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/register/username", "", map[string]string{"username": "newcomer"}, http.StatusNoContent)
	api.expect(http.MethodPost, "/api/register/email", "", map[string]string{"email": "reader@example.com"}, http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/register/password", "", map[string]string{"password": "longenough"}, http.StatusNoContent)
	api.expect(http.MethodPost, "/api/register", "", nil, http.StatusBadRequest)
}

func TestProfile(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("reader")

	b := api.expect(http.MethodGet, "/api/profile", token, nil, http.StatusOK)
	if string(b) != `{"username":"reader","email":"reader@example.com"}` {
		t.Fatalf("unexpected profile %s", b)
	}

	api.expect(http.MethodPatch, "/api/profile", token, map[string]string{
		"username":    "reader2",
		"email":       "reader2@example.com",
		"oldPassword": "wrongpassword",
	}, http.StatusBadRequest)

	b = api.expect(http.MethodPatch, "/api/profile", token, map[string]string{
		"username":    "reader2",
		"email":       "reader2@example.com",
		"oldPassword": "password123",
		"newPassword": "password456",
	}, http.StatusOK)
	if string(b) != `{"username":"reader2","email":"reader2@example.com"}` {
		t.Fatalf("unexpected profile %s", b)
	}
	api.expect(http.MethodPost, "/api/login", "", map[string]string{"username": "reader2", "password": "password456"}, http.StatusOK)

	entry := api.expect(http.MethodPost, "/api/", token, map[string]string{"book_key": "OL1W", "status": "Default"}, http.StatusCreated)
	if len(entry) == 0 {
		t.Fatal("expected the created entry")
	}

	api.expect(http.MethodDelete, "/api/profile", token, nil, http.StatusNoContent)
	api.expect(http.MethodGet, "/api/profile", token, nil, http.StatusUnauthorized)
}

type listResponse struct {
	Books []struct {
		ID         string   `json:"id"`
		Title      string   `json:"title"`
		Author     []string `json:"author"`
		Status     string   `json:"status"`
		FullStatus string   `json:"full_status"`
		OwnerName  string   `json:"owner_name"`
	} `json:"books"`
	Page     int `json:"page"`
	LastPage int `json:"last_page"`
}

type entryResponse struct {
	ID        string `json:"id"`
	Owner     int32  `json:"owner"`
	Status    string `json:"status"`
	OtherName string `json:"other_name"`
	Date      string `json:"date"`
	Book      struct {
		Key    string   `json:"key"`
		Title  string   `json:"title"`
		Author []string `json:"author"`
	} `json:"book"`
}

func TestShelfLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("reader")

	b := api.expect(http.MethodPost, "/api/", token, map[string]string{
		"book_key":   "/works/OL1W",
		"status":     "Lent",
		"other_name": "Alice",
		"date":       "2024-01-05",
	}, http.StatusCreated)
	var created entryResponse
	if err := json.Unmarshal(b, &created); err != nil {
		t.Fatal(err)
	}
	if created.Book.Key != "OL1W" || created.Book.Title != "Dune" || created.Status != "Lent" || created.Date != "2024-01-05" {
		t.Fatalf("unexpected entry %s", b)
	}

	b = api.expect(http.MethodGet, "/api/", token, nil, http.StatusOK)
	var list listResponse
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Books) != 1 || list.Books[0].FullStatus != "Lent to Alice on 2024. 01. 05." || list.Books[0].OwnerName != "Me" {
		t.Fatalf("unexpected list %s", b)
	}

	b = api.expect(http.MethodGet, "/api/book/"+created.ID, token, nil, http.StatusOK)
	if !strings.Contains(string(b), `"book_key":"OL1W"`) {
		t.Fatalf("unexpected detail %s", b)
	}
	api.expect(http.MethodGet, "/api/wishlist/book/"+created.ID, token, nil, http.StatusNotFound)
	api.expect(http.MethodGet, "/api/book/not-a-uuid", token, nil, http.StatusNotFound)

	b = api.expect(http.MethodPatch, "/api/book/"+created.ID, token, map[string]string{
		"book_key": "OL2W",
		"status":   "Default",
	}, http.StatusOK)
	var updated entryResponse
	if err := json.Unmarshal(b, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Book.Title != "Emma" || updated.OtherName != "" || updated.Date != "" {
		t.Fatalf("unexpected update %s", b)
	}

	other := api.signup("stranger")
	api.expect(http.MethodDelete, "/api/book/"+created.ID, other, nil, http.StatusUnauthorized)

	api.expect(http.MethodDelete, "/api/book/"+created.ID, token, nil, http.StatusNoContent)
	api.expect(http.MethodDelete, "/api/book/"+created.ID, token, nil, http.StatusNotFound)
}

func TestShelfValidationAndCatalogErrors(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("reader")

	api.expect(http.MethodPost, "/api/", token, map[string]string{"book_key": "OL1W"}, http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/", token, map[string]string{"book_key": "OL1W", "status": "Wishlist"}, http.StatusBadRequest)
	api.expect(http.MethodPost, "/api/", token, map[string]string{"book_key": "OL1W", "status": "Lent", "other_name": "Al"}, http.StatusBadRequest)

	b := api.expect(http.MethodPost, "/api/", token, map[string]string{"book_key": "OL404W", "status": "Default"}, http.StatusBadRequest)
	if env := decodeEnvelope(t, b); env.Message != "Invalid book key" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	api.expect(http.MethodPost, "/api/", token, map[string]string{"book_key": "OL500W", "status": "Default"}, http.StatusBadGateway)

	api.expect(http.MethodGet, "/api/?status=stolen", token, nil, http.StatusBadRequest)
	api.expect(http.MethodGet, "/api/?title_sort=up", token, nil, http.StatusBadRequest)
	api.expect(http.MethodGet, "/api/?page=abc&limit=-1", token, nil, http.StatusOK)
}

func TestListingPagination(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("reader")
	for _, key := range []string{"OL1W", "OL2W", "OL3W", "OL1W", "OL2W"} {
		api.expect(http.MethodPost, "/api/", token, map[string]string{"book_key": key, "status": "Default"}, http.StatusCreated)
	}

	b := api.expect(http.MethodGet, "/api/?limit=2&page=3", token, nil, http.StatusOK)
	var list listResponse
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Books) != 1 || list.Page != 3 || list.LastPage != 3 || list.Books[0].Title != "Emma" {
		t.Fatalf("unexpected page %s", b)
	}

	b = api.expect(http.MethodGet, "/api/?limit=2&page=9&title_sort=asc", token, nil, http.StatusOK)
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatal(err)
	}
	if list.Page != 3 || list.Books[0].Title != "Emma" {
		t.Fatalf("page past the end must be clamped, got %s", b)
	}

	b = api.expect(http.MethodGet, "/api/?title=DUNE&author=herbert", token, nil, http.StatusOK)
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Books) != 2 {
		t.Fatalf("expected both copies of Dune, got %s", b)
	}

	books, err := api.store.ListBooks(context.Background(), &model.FindBook{})
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 3 {
		t.Fatalf("registry must hold one book per key, got %d", len(books))
	}
}

func TestWishlist(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("reader")

	b := api.expect(http.MethodPost, "/api/wishlist", token, map[string]string{"book_key": "OL3W", "status": "Borrowed"}, http.StatusCreated)
	var created entryResponse
	if err := json.Unmarshal(b, &created); err != nil {
		t.Fatal(err)
	}
	if created.Status != "Wishlist" {
		t.Fatalf("wishlist add must force the Wishlist status, got %s", b)
	}

	b = api.expect(http.MethodGet, "/api/wishlist?owner=nobody", token, nil, http.StatusOK)
	var list listResponse
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Books) != 1 || list.Books[0].FullStatus != "Wishlist" {
		t.Fatalf("unexpected wishlist %s", b)
	}

	b = api.expect(http.MethodGet, "/api/", token, nil, http.StatusOK)
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Books) != 0 || list.Page != 1 || list.LastPage != 1 {
		t.Fatalf("shelf must not list wishlist entries, got %s", b)
	}

	api.expect(http.MethodGet, "/api/book/"+created.ID, token, nil, http.StatusNotFound)
	api.expect(http.MethodGet, "/api/wishlist/book/"+created.ID, token, nil, http.StatusOK)
	api.expect(http.MethodDelete, "/api/wishlist/book/"+created.ID, token, nil, http.StatusNoContent)
}

func TestSearchProxyAndRouting(t *testing.T) {
	api := newTestAPI(t)
	token := api.signup("reader")

	api.expect(http.MethodGet, "/api/search?q=dune", "", nil, http.StatusUnauthorized)
	resp, b := api.do(http.MethodGet, "/api/search?q=dune", token, nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), "Dune") {
		t.Fatalf("unexpected search answer %d %s", resp.StatusCode, b)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "http://localhost:5173" {
		t.Fatalf("upstream CORS header leaked: %q", origin)
	}

	b = api.expect(http.MethodGet, "/api/nothing/here", token, nil, http.StatusNotFound)
	if env := decodeEnvelope(t, b); env.Status != 404 {
		t.Fatalf("unexpected envelope %+v", env)
	}
	for _, tt := range []struct{ method, path string }{
		{http.MethodPut, "/api/profile"},
		{http.MethodPost, "/api/profile"},
		{http.MethodDelete, "/api/"},
		{http.MethodPost, "/api/book/1"},
		{http.MethodGet, "/api/login"},
		{http.MethodPut, "/api/wishlist/book/1"},
	} {
		b = api.expect(tt.method, tt.path, token, nil, http.StatusMethodNotAllowed)
		if env := decodeEnvelope(t, b); env.Status != 405 {
			t.Fatalf("%s %s: unexpected envelope %+v", tt.method, tt.path, env)
		}
	}
	api.expect(http.MethodDelete, "/api/nothing/here", token, nil, http.StatusNotFound)

	resp, _ = api.do(http.MethodOptions, "/api/book/"+fmt.Sprint(1), "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("preflight not answered: %d", resp.StatusCode)
	}
}
