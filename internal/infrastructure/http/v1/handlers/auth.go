package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mercatus/internal/core/apperror"
	"mercatus/internal/domain/auth"
	"mercatus/internal/infrastructure/http/v1/dto"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{BaseHandler: base, service: service}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.service.Login(c.Request.Context(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLoginResponse(resp))
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := h.GetUserID(c)
	if userID == "" {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return
	}

	info, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromUserInfo(*info))
}
