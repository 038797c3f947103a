package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/api/middleware"
	"github.com/example/shop-backend/internal/auth"
	"github.com/example/shop-backend/internal/domain/user"
	"github.com/example/shop-backend/internal/infrastructure/store"
	"github.com/example/shop-backend/internal/permission"
)

// AuthHandlers handles registration, login and token refresh.
type AuthHandlers struct {
	users  store.UserRepository
	jwt    *auth.JWTService
	logger *zap.Logger
}

func NewAuthHandlers(users store.UserRepository, jwt *auth.JWTService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{users: users, jwt: jwt, logger: logger}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message,omitempty"`
}

type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Role      permission.Role `json:"role"`
	CreatedAt time.Time       `json:"created_at"`
}

func toUserResponse(u user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Register creates a customer account. Staff accounts are made by
// promoting a customer through the admin role endpoint.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	newUser, err := user.New(req.Email, hash, req.Name, req.Phone, permission.RoleCustomer, time.Now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.users.Create(r.Context(), newUser); err != nil {
		respondDomainError(w, err)
		return
	}

	h.setAuthCookies(w, r, newUser)

	respondJSON(w, http.StatusCreated, AuthResponse{
		User:    toUserResponse(newUser),
		Message: "registration successful",
	})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		respondJSONError(w, "invalid email or password", http.StatusUnauthorized)
		return
	}
	if !u.Active {
		respondJSONError(w, "account is deactivated", http.StatusForbidden)
		return
	}
	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		respondJSONError(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	h.setAuthCookies(w, r, u)

	respondJSON(w, http.StatusOK, AuthResponse{
		User:    toUserResponse(u),
		Message: "login successful",
	})
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

// Refresh reissues the token pair from a valid refresh token. The account
// is re-read so a deactivation or role change takes effect here.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondJSONError(w, "no refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwt.ValidateRefreshToken(refreshCookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "user not found", http.StatusUnauthorized)
		return
	}
	if !u.Active {
		h.clearAuthCookies(w)
		respondJSONError(w, "account is deactivated", http.StatusForbidden)
		return
	}

	h.setAuthCookies(w, r, u)

	respondJSON(w, http.StatusOK, map[string]string{"message": "token refreshed"})
}

// Me returns the calling user's account.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !auth.CheckPassword(req.CurrentPassword, u.PasswordHash) {
		respondJSONError(w, "current password is incorrect", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), claims.UserID, hash, time.Now()); err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, r *http.Request, u user.User) {
	accessToken, accessExpiry, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		h.logger.Error("generating access token failed", zap.Error(err))
		return
	}
	refreshToken, refreshExpiry, err := h.jwt.GenerateRefreshToken(u.ID)
	if err != nil {
		h.logger.Error("generating refresh token failed", zap.Error(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/api/auth/refresh",
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/api/auth/refresh",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
