package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pulse/domain"
	"pulse/errors"
	"pulse/services"
)

// stubAuthService returns canned results per call.
type stubAuthService struct {
	user domain.User
	pair services.TokenPair
	err  error
}

func (s stubAuthService) Register(_, _, _, _ string) (domain.User, services.TokenPair, error) {
	return s.user, s.pair, s.err
}

func (s stubAuthService) Login(_, _, _ string) (domain.User, services.TokenPair, error) {
	return s.user, s.pair, s.err
}

func serveAuth(t *testing.T, service services.IAuthService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewAuthHandler(service, slog.Default()).Register(mux)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(method, path, strings.NewReader(body)))
	return recorder
}

func TestRegister_Endpoint_Returns_Created(t *testing.T) {
	req := require.New(t)
	service := stubAuthService{
		user: domain.User{ID: "u1", Username: "alice"},
		pair: services.TokenPair{AccessToken: "a", RefreshToken: "r", TokenType: "bearer"},
	}

	res := serveAuth(t, service, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"GoodPass1"}`)

	req.Equal(http.StatusCreated, res.Code)
	req.Contains(res.Body.String(), `"access_token":"a"`)
}

func TestRegister_Endpoint_Conflict_On_Duplicate(t *testing.T) {
	req := require.New(t)
	service := stubAuthService{err: errors.ErrUserAlreadyExists}

	res := serveAuth(t, service, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"GoodPass1"}`)

	req.Equal(http.StatusConflict, res.Code)
}

func TestLogin_Endpoint_Maps_Error_Taxonomy(t *testing.T) {
	req := require.New(t)

	cases := []struct {
		err    error
		status int
	}{
		{errors.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.ErrRateLimited, http.StatusTooManyRequests},
		{nil, http.StatusOK},
	}
	for _, c := range cases {
		res := serveAuth(t, stubAuthService{err: c.err}, http.MethodPost, "/api/auth/login",
			`{"email":"alice@example.com","password":"GoodPass1"}`)
		req.Equal(c.status, res.Code)
	}
}

func TestLogin_Endpoint_Rejects_Bad_Json(t *testing.T) {
	req := require.New(t)

	res := serveAuth(t, stubAuthService{}, http.MethodPost, "/api/auth/login", `{nope`)

	req.Equal(http.StatusBadRequest, res.Code)
	req.Contains(res.Body.String(), "Invalid JSON payload")
}
