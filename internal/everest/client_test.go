package everest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/rest"
)

func TestVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/version", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"projectName":"everest","version":"0.4.0","fullCommit":"abc123"}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", nil)
	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "everest", v.ProjectName)
	assert.Equal(t, "0.4.0", v.Version)
	assert.Equal(t, "abc123", v.FullCommit)
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantText    string
	}{
		{
			name:        "message from body",
			status:      http.StatusBadRequest,
			body:        `{"message":"invalid namespace"}`,
			wantMessage: "invalid namespace",
			wantText:    "invalid namespace (status 400)",
		},
		{
			name:     "no body",
			status:   http.StatusServiceUnavailable,
			wantText: "unknown error (status 503)",
		},
		{
			name:     "not json",
			status:   http.StatusNotFound,
			body:     "404 page not found",
			wantText: "unknown error (status 404)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL, nil).Get(context.Background(), "/v1/anything", nil)
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantText, err.Error())
			assert.ErrorIs(t, err, ErrEverest)
		})
	}
}

func TestGet_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out := map[string]string{"kept": "yes"}
	err := New(srv.URL, nil).Get(context.Background(), "v1/empty", &out)
	require.NoError(t, err)
	assert.Equal(t, "yes", out["kept"])
}

func TestReachable(t *testing.T) {
	var up atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"version":"0.4.0"}`))
	}))
	defer srv.Close()

	pred := New(srv.URL, nil).Reachable()
	ok, err := pred(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)

	up.Store(true)
	ok, err = pred(context.Background())
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestNewProxied(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"version":"0.4.0"}`))
	}))
	defer srv.Close()

	c, err := NewProxied(&rest.Config{Host: srv.URL, BearerToken: "secret"}, "everest-system")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/v1/namespaces/everest-system/services/everest/proxy", c.BaseURL())

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.4.0", v.Version)
	assert.Equal(t, "/api/v1/namespaces/everest-system/services/everest/proxy/v1/version", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
}
