package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	testhttp "github.com/restwell/restwell-pairing/internal/rwpaird/http/testing"
)

func TestHealthEndpoints(t *testing.T) {
	th := testhttp.NewTestHandler(t)
	defer th.CleanupTest()

	for _, path := range []string{"/healthz", "/readyz"} {
		req, err := th.MockRequest(http.MethodGet, path, nil)
		assert.NoError(t, err)
		rec := httptest.NewRecorder()

		th.Handler.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	th := testhttp.NewTestHandler(t)
	defer th.CleanupTest()
	th.SetupRateLimitBypass()

	req, err := th.MockRequest(http.MethodGet, "/api/v1alpha1/nope", nil)
	assert.NoError(t, err)
	rec := httptest.NewRecorder()

	th.Handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not_found"}`, rec.Body.String())
}

func TestRequestIDHeaderPropagated(t *testing.T) {
	th := testhttp.NewTestHandler(t)
	defer th.CleanupTest()

	req, err := th.MockRequest(http.MethodGet, "/healthz", nil)
	assert.NoError(t, err)
	rec := httptest.NewRecorder()

	th.Handler.Router().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
