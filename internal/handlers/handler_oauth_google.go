package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cardforge/cardforge-backend/internal/core/domain"
	portssvc "github.com/cardforge/cardforge-backend/internal/core/ports/services"
	"github.com/cardforge/cardforge-backend/internal/middleware"
	"github.com/cardforge/cardforge-backend/internal/platform/config"
	"github.com/gin-gonic/gin"
)

// GoogleOAuthHandler handles Google sign-in, either with an authorization
// code or a client-obtained ID token.
type GoogleOAuthHandler struct {
	googleOAuth portssvc.GoogleOAuthSvcFacade
	userService portssvc.UserSvcFacade
	auth        *AuthHandler
}

// NewGoogleOAuthHandler creates a new GoogleOAuthHandler.
func NewGoogleOAuthHandler(gs portssvc.GoogleOAuthSvcFacade, us portssvc.UserSvcFacade, auth *AuthHandler) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		googleOAuth: gs,
		userService: us,
		auth:        auth,
	}
}

// registerGoogleOAuthRoutes sets up the public Google sign-in route.
func registerGoogleOAuthRoutes(rg *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	auth := NewAuthHandler(services.User, services.Token, cfg)
	h := NewGoogleOAuthHandler(services.GoogleOAuth, services.User, auth)

	rg.POST("/api/v1/auth/google", h.GoogleLogin)
}

// GoogleLoginRequest carries either an OAuth authorization code or an ID
// token obtained by the client.
type GoogleLoginRequest struct {
	Code    string `json:"code"`
	IDToken string `json:"idToken"`
}

// GoogleLogin godoc
// @Summary Google sign-in
// @Description Validates a Google credential, provisioning the user on first
// @Description login, and returns a JWT token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body GoogleLoginRequest true "Google credential"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/google [post]
func (h *GoogleOAuthHandler) GoogleLogin(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Code == "" && req.IDToken == "") {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Either code or idToken is required"})
		return
	}

	idTokenString := req.IDToken
	if idTokenString == "" {
		token, err := h.googleOAuth.ExchangeCodeForToken(c.Request.Context(), req.Code)
		if err != nil {
			logger.Warn("Failed to exchange Google OAuth code", slog.String("error", err.Error()))
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid authorization code"})
			return
		}
		extracted, ok := token.Extra("id_token").(string)
		if !ok || extracted == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Google response missing ID token"})
			return
		}
		idTokenString = extracted
	}

	payload, err := h.googleOAuth.ValidateGoogleIDToken(c.Request.Context(), idTokenString)
	if err != nil {
		logger.Warn("Google ID token validation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid Google credential"})
		return
	}

	info := domain.GoogleUserInfo{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		info.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		info.Name = name
	}
	if info.Email == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Google credential missing email"})
		return
	}

	user, err := h.userService.FindOrCreateFromGoogle(c.Request.Context(), info)
	if err != nil {
		logger.Error("Failed to provision Google user", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to sign in"})
		return
	}

	resp, err := h.auth.issueTokens(c, user)
	if err != nil {
		logger.Error("Failed to issue tokens for Google login", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
