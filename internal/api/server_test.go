package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ryanbastic/cafedir/internal/admin"
	"github.com/ryanbastic/cafedir/internal/cafe"
	"github.com/ryanbastic/cafedir/internal/directory"
	"github.com/ryanbastic/cafedir/internal/moderation"
	"github.com/ryanbastic/cafedir/internal/storage/storagetest"
)

const testSecret = "TopSecretAdminKey"

func strPtr(s string) *string { return &s }

func setupTestServer(t *testing.T) (http.Handler, *storagetest.Store) {
	t.Helper()
	store := storagetest.New()
	gate := admin.NewGate(testSecret, time.Hour)
	workflow := moderation.NewWorkflow(store, gate, testLogger())
	dir := directory.NewService(store, gate, workflow, testLogger())
	return NewServer(testLogger(), gate, workflow, dir, nil), store
}

func seedCafe(t *testing.T, store *storagetest.Store, name string) *cafe.Cafe {
	t.Helper()
	c, err := store.CreateCafe(context.Background(), cafe.NewCafe{
		Name:        name,
		Location:    "Seongsu",
		Seats:       "20-30",
		Amenities:   cafe.Amenities{HasWifi: true},
		CoffeePrice: strPtr("₩4,000"),
	})
	if err != nil {
		t.Fatalf("seed cafe: %v", err)
	}
	return c
}

type testRequest struct {
	method string
	path   string
	body   any
	header map[string]string
	cookie *http.Cookie
}

func do(t *testing.T, server http.Handler, tr testRequest) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if tr.body != nil {
		data, err := json.Marshal(tr.body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(tr.method, tr.path, body)
	if tr.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tr.header {
		req.Header.Set(k, v)
	}
	if tr.cookie != nil {
		req.AddCookie(tr.cookie)
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v\nbody: %s", err, w.Body.String())
	}
	return v
}

func TestServer_OpenAPIDocument(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, testRequest{method: http.MethodGet, path: "/openapi.json"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}

	doc := decode[map[string]any](t, w)
	paths, _ := doc["paths"].(map[string]any)
	for _, p := range []string{
		"/cafes/{cafe_id}/update-request",
		"/admin/update-requests",
		"/admin/update-requests/{request_id}",
	} {
		if _, ok := paths[p]; !ok {
			t.Errorf("openapi document missing path %s", p)
		}
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	do(t, server, testRequest{method: http.MethodGet, path: "/livez"})
	w := do(t, server, testRequest{method: http.MethodGet, path: "/metrics"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusOK)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("cafedir_http_requests_total")) {
		t.Error("metrics output missing cafedir_http_requests_total")
	}
}
