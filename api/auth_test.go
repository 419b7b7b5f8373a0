package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/peertalk/peertalk/db"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	server := newTestServer(t)

	// Register a new account
	recorder := request(t, server, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "John Doe",
		"email":    "john@example.com",
		"password": "user12345",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, "John Doe", resp.UserData.Name)
	require.Equal(t, db.RoleUser, resp.UserData.Role)
	require.NotEmpty(t, resp.Tokens.AccessToken)
	require.NotEmpty(t, resp.Tokens.RefreshToken)

	// Registration always yields USER accounts, even for a counselor-ish email
	var user db.User
	require.NoError(t, server.queries.DB.Where("email = ?", "john@example.com").First(&user).Error)
	require.Equal(t, db.RoleUser, user.Role)
	// The stored credential is a hash, never the plain text
	require.NotEqual(t, "user12345", user.Password)

	// Duplicate email is refused
	recorder = request(t, server, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "John Again",
		"email":    "john@example.com",
		"password": "user12345",
	})
	require.Equal(t, http.StatusConflict, recorder.Code)

	// Log in with the right password
	recorder = request(t, server, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "john@example.com",
		"password": "user12345",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	// And fail with the wrong one
	recorder = request(t, server, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "john@example.com",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRegisterValidation(t *testing.T) {
	server := newTestServer(t)

	// Short password
	recorder := request(t, server, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "John Doe",
		"email":    "john@example.com",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// Malformed email
	recorder = request(t, server, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "John Doe",
		"email":    "not-an-email",
		"password": "user12345",
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRefreshTokenEndpoint(t *testing.T) {
	server := newTestServer(t)

	recorder := request(t, server, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "John Doe",
		"email":    "john@example.com",
		"password": "user12345",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))

	// An access token is not accepted by the refresh endpoint
	recorder = request(t, server, http.MethodPost, "/api/auth/token/refresh", resp.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// The refresh token yields a fresh pair
	recorder = request(t, server, http.MethodPost, "/api/auth/token/refresh", resp.Tokens.RefreshToken, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var tokens Tokens
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &tokens))
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
}
