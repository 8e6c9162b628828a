package metrics

import (
	"database/sql"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/", "200"))
	RecordAPIRequest("GET", "/api/", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/", "200"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestRecordCatalogRequest(t *testing.T) {
	before := testutil.ToFloat64(CatalogRequests.WithLabelValues("not_found"))
	RecordCatalogRequest("not_found", 0)
	RecordCatalogRequest("not_found", time.Millisecond)
	after := testutil.ToFloat64(CatalogRequests.WithLabelValues("not_found"))
	if after-before != 2 {
		t.Fatalf("expected counter to increase by 2, got %v", after-before)
	}
}

func TestRegisterDBStats(t *testing.T) {
	RegisterDBStats(func() sql.DBStats {
		return sql.DBStats{OpenConnections: 3, InUse: 1}
	})
	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "bookshelf_db_open_connections", "bookshelf_db_in_use_connections")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected two pool gauges, got %d", n)
	}
}
