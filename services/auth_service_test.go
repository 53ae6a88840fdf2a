package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pulse/auth"
	"pulse/domain"
	"pulse/errors"
	"pulse/mocks"
	"pulse/ratelimit"
)

func newAuthService(t *testing.T) (IAuthService, *mocks.MockIUserRepository, *mocks.MockILimiter) {
	t.Helper()
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	limiter := mocks.NewMockILimiter(ctrl)
	service := NewAuthService(users, limiter, time.Hour, 24*time.Hour, slog.Default())
	return service, users, limiter
}

func TestRegister_Issues_Token_Pair(t *testing.T) {
	req := require.New(t)
	service, users, _ := newAuthService(t)

	users.EXPECT().
		CreateUser("alice", "alice@example.com", "Alice", gomock.Any()).
		DoAndReturn(func(username, email, fullName, passwordHash string) (domain.User, error) {
			// The repository must never see the plain password.
			req.NotEqual("GoodPass1", passwordHash)
			req.Contains(passwordHash, "$argon2id$")
			return domain.User{ID: "u1", Username: username, Email: email}, nil
		})

	user, pair, err := service.Register("alice", "alice@example.com", "Alice", "GoodPass1")

	req.NoError(err)
	req.Equal("u1", user.ID)
	req.NotEmpty(pair.AccessToken)
	req.NotEmpty(pair.RefreshToken)
	req.Equal("bearer", pair.TokenType)

	claims, err := auth.ValidateAccessToken(pair.AccessToken)
	req.NoError(err)
	req.Equal("u1", claims.UserID)
}

func TestRegister_Rejects_Weak_Password_Before_Storage(t *testing.T) {
	req := require.New(t)
	service, _, _ := newAuthService(t)

	_, _, err := service.Register("alice", "alice@example.com", "Alice", "weakpass")
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func TestLogin_Succeeds_With_Valid_Credentials(t *testing.T) {
	req := require.New(t)
	service, users, limiter := newAuthService(t)

	hash, err := auth.HashPassword("GoodPass1")
	req.NoError(err)

	limiter.EXPECT().
		Allow(ratelimit.LoginKey("10.0.0.1"), ratelimit.LoginLimit, ratelimit.LoginWindow).
		Return(true)
	users.EXPECT().GetUserByEmail("alice@example.com").
		Return(domain.User{ID: "u1", Email: "alice@example.com", PasswordHash: hash}, nil)

	user, pair, err := service.Login("alice@example.com", "GoodPass1", "10.0.0.1")

	req.NoError(err)
	req.Equal("u1", user.ID)
	req.NotEmpty(pair.AccessToken)
}

func TestLogin_Wrong_Password_Is_Generic_Error(t *testing.T) {
	req := require.New(t)
	service, users, limiter := newAuthService(t)

	hash, err := auth.HashPassword("GoodPass1")
	req.NoError(err)

	limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any()).Return(true)
	users.EXPECT().GetUserByEmail("alice@example.com").
		Return(domain.User{ID: "u1", PasswordHash: hash}, nil)

	_, _, err = service.Login("alice@example.com", "wrong", "10.0.0.1")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestLogin_Unknown_User_Is_Generic_Error(t *testing.T) {
	req := require.New(t)
	service, users, limiter := newAuthService(t)

	limiter.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any()).Return(true)
	users.EXPECT().GetUserByEmail("nobody@example.com").
		Return(domain.User{}, errors.ErrNotFound)

	_, _, err := service.Login("nobody@example.com", "GoodPass1", "10.0.0.1")
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestLogin_Throttled_Before_Lookup(t *testing.T) {
	req := require.New(t)
	service, _, limiter := newAuthService(t)

	// Given the login family budget is spent; no repository call is expected.
	limiter.EXPECT().
		Allow(ratelimit.LoginKey("10.0.0.1"), ratelimit.LoginLimit, ratelimit.LoginWindow).
		Return(false)

	_, _, err := service.Login("alice@example.com", "GoodPass1", "10.0.0.1")
	req.ErrorIs(err, errors.ErrRateLimited)
}
