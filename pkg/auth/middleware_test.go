package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareRejectsMissingKey(t *testing.T) {
	h := Middleware(SecConfig{BackendKeys: map[string]struct{}{"k1": {}}})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/collections/x", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareRejectsWrongKey(t *testing.T) {
	h := Middleware(SecConfig{BackendKeys: map[string]struct{}{"k1": {}}})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/collections/x", nil)
	req.Header.Set("X-API-Key", "nope")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareAcceptsKey(t *testing.T) {
	h := Middleware(SecConfig{BackendKeys: map[string]struct{}{"k1": {}}})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/collections/x", nil)
	req.Header.Set("X-API-Key", "k1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("header key: status = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/collections/x", nil)
	req.Header.Set("Authorization", "Bearer k1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("bearer key: status = %d", rr.Code)
	}
}

func TestMiddlewareOpenPaths(t *testing.T) {
	h := Middleware(SecConfig{BackendKeys: map[string]struct{}{"k1": {}}})(okHandler())
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", path, rr.Code)
		}
	}
}

func TestMiddlewareAllowUnauth(t *testing.T) {
	h := Middleware(SecConfig{AllowUnauth: true})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/v1/collections/x", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestMiddlewareRateLimit(t *testing.T) {
	h := Middleware(SecConfig{
		BackendKeys: map[string]struct{}{"k1": {}},
		RPS:         1,
		Burst:       2,
	})(okHandler())

	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/collections/x", nil)
		req.Header.Set("X-API-Key", "k1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatal("burst never exhausted")
	}
}
