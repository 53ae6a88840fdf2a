package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"pulse/auth"
	"pulse/domain"
	"pulse/errors"
	"pulse/services"
)

type AuthHandler struct {
	auth services.IAuthService
	log  *slog.Logger
}

func NewAuthHandler(auth services.IAuthService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
}

type registerBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	User   domain.User        `json:"user"`
	Tokens services.TokenPair `json:"tokens"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	user, tokens, err := h.auth.Register(body.Username, body.Email, body.FullName, body.Password)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, "User already exists")
		return
	case errors.Is(err, errors.ErrInvalidPassword):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, errors.ErrTokenGeneration):
		logRequestError(h.log, r, err)
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	default:
		// Validator errors for malformed fields land here.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := auth.ValidateLogin(auth.LoginRequest{Email: body.Email, Password: body.Password}); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, tokens, err := h.auth.Login(body.Email, body.Password, clientAddr(r))
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		return
	case errors.Is(err, errors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	default:
		logRequestError(h.log, r, err)
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}
