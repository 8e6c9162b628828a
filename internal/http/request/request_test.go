package request

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/Xunop/bookshelf/internal/model"
)

func TestFindClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:4321"
	if ip := FindClientIP(r); ip != "10.0.0.9" {
		t.Fatalf("expected remote address, got %q", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	if ip := FindClientIP(r); ip != "203.0.113.5" {
		t.Fatalf("expected first forwarded address, got %q", ip)
	}

	r.Header.Set("X-Forwarded-For", "garbage")
	r.Header.Set("X-Real-Ip", "fe80::1%eth0")
	if ip := FindClientIP(r); ip != "fe80::1" {
		t.Fatalf("expected real ip without zone, got %q", ip)
	}
}

func TestIdentity(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetIdentity(r) != nil {
		t.Fatal("expected no identity")
	}
	r = WithIdentity(r, &model.Identity{UserID: 3, Admin: true})
	if id := GetIdentity(r); id == nil || id.UserID != 3 || !id.Admin {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestRouteParams(t *testing.T) {
	router := mux.NewRouter()
	var id, tpl string
	router.HandleFunc("/api/book/{id}", func(w http.ResponseWriter, r *http.Request) {
		id = RouteStringParam(r, "id")
		tpl = RouteTemplate(r)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/book/abc", nil))
	if id != "abc" || tpl != "/api/book/{id}" {
		t.Fatalf("got id %q template %q", id, tpl)
	}
}
