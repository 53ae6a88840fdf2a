package services

import (
	"fmt"
	"log/slog"
	"time"

	"pulse/auth"
	"pulse/contract"
	"pulse/domain"
	"pulse/errors"
	"pulse/ratelimit"
)

type IAuthService interface {
	Register(username, email, fullName, password string) (domain.User, TokenPair, error)
	Login(email, password, clientAddr string) (domain.User, TokenPair, error)
}

// TokenPair is what both auth endpoints hand back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type AuthService struct {
	users      contract.IUserRepository
	limiter    contract.ILimiter
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *slog.Logger
}

func NewAuthService(users contract.IUserRepository, limiter contract.ILimiter,
	accessTTL, refreshTTL time.Duration, log *slog.Logger) IAuthService {
	return &AuthService{
		users:      users,
		limiter:    limiter,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

func (s *AuthService) Register(username, email, fullName, password string) (domain.User, TokenPair, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Email:    email,
		FullName: fullName,
		Password: password,
	}

	// Business rules first, before any expensive cryptographic work.
	if err := auth.ValidateRegister(valReq); err != nil {
		return domain.User{}, TokenPair{}, err
	}

	// Hashing happens here so the repository never sees a plain password.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, TokenPair{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(username, email, fullName, hashedPassword)
	if err != nil {
		return domain.User{}, TokenPair{}, err // propagates ErrUserAlreadyExists
	}

	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *AuthService) Login(email, password, clientAddr string) (domain.User, TokenPair, error) {
	if !s.limiter.Allow(ratelimit.LoginKey(clientAddr), ratelimit.LoginLimit, ratelimit.LoginWindow) {
		s.log.Warn("Login attempts throttled", slog.String("addr", clientAddr))
		return domain.User{}, TokenPair{}, errors.ErrRateLimited
	}

	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return domain.User{}, TokenPair{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return domain.User{}, TokenPair{}, errors.ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

func (s *AuthService) issueTokens(userID string) (TokenPair, error) {
	access, err := auth.GenerateToken(userID, auth.KindAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, errors.ErrTokenGeneration
	}
	refresh, err := auth.GenerateToken(userID, auth.KindRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, errors.ErrTokenGeneration
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}
