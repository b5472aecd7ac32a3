package handler

import (
	"emi-engine/internal/api/handler/dto"
	"emi-engine/internal/config"
	"emi-engine/internal/pkg/apperrors"
	"emi-engine/internal/pkg/clock"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

type AuthHandler struct {
	cfg    config.AuthConfig
	clock  clock.Clock
	logger *slog.Logger
}

func NewAuthHandler(cfg config.AuthConfig, c clock.Clock, l *slog.Logger) *AuthHandler {
	if c == nil {
		c = clock.SystemClock{}
	}
	return &AuthHandler{
		cfg:    cfg,
		clock:  c,
		logger: l.With("component", "AuthHandler"),
	}
}

// GenerateBearerToken issues a signed token whose subject becomes the tenant
// of every request that presents it.
//
// @Summary Generate a JWT bearer token
// @Description Issues an HS256 token valid for 24 hours. The username is stored as the token subject and scopes all loans created with it.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.TokenRequest true "username"
// @Success 200 {object} map[string]string "Token successfully generated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request parameters"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/token [post]
func (h *AuthHandler) GenerateBearerToken(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.Warn("Failed to decode token request", "error", err)
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		respondError(w, apperrors.NewValidationError("username", "is required"))
		return
	}

	now := h.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		h.logger.Error("Failed to sign token", "error", err)
		respondError(w, err)
		return
	}

	h.logger.Info("Issued bearer token", "subject", username)
	respondJSON(w, http.StatusOK, map[string]string{"token": fmt.Sprintf("Bearer %s", tokenString)})
}
