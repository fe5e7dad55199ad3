package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgapi "github.com/riskianand4/fieldkeeper/pkg/api"
)

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var req pkgapi.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "technician1", req.Username)

		resp := pkgapi.TokenResponse{Token: "issued-token"}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	resp, err := client.Login(context.Background(), pkgapi.LoginRequest{
		Username: "technician1",
		Password: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "issued-token", resp.Token)
}

func TestRefreshTokenSendsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/refresh", r.URL.Path)
		assert.Equal(t, "Bearer current-token", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		resp := pkgapi.RefreshResponse{
			Success: true,
			Data:    &pkgapi.RefreshData{Token: "rotated-token"},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	client.SetToken("current-token")

	resp, err := client.RefreshToken(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	assert.True(t, resp.Success)
	assert.Equal(t, "rotated-token", resp.Data.Token)
}

func TestServerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantSubstr string
	}{
		{
			name:       "structured error",
			status:     http.StatusUnauthorized,
			body:       `{"error":"invalid credentials"}`,
			wantSubstr: "server error (401): invalid credentials",
		},
		{
			name:       "unstructured error",
			status:     http.StatusInternalServerError,
			body:       "boom",
			wantSubstr: "request failed with status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL)

			_, err := client.Login(context.Background(), pkgapi.LoginRequest{Username: "u", Password: "p"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSubstr)
		})
	}
}

func TestLogout(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	client.SetToken("tok")

	require.NoError(t, client.Logout(context.Background()))
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestSetToken(t *testing.T) {
	client := NewClient("http://localhost")

	assert.Empty(t, client.Token())

	client.SetToken("abc")
	assert.Equal(t, "abc", client.Token())

	client.SetToken("")
	assert.Empty(t, client.Token())
}

func TestBaseURL(t *testing.T) {
	client := NewClient("https://dispatch.example.com")
	assert.Equal(t, "https://dispatch.example.com", client.BaseURL())
}
