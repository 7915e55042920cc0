package httptransport

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esurat/backend/internal/auth"
)

// AuthHandler 登录认证处理器
type AuthHandler struct {
	auth *auth.Service
	log  *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *auth.Service, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, log: log}
}

// Login 用户名密码登录
//
// POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.log.Warn("login failed",
			zap.String("username", req.Username),
			zap.String("ip", c.ClientIP()))
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// Refresh 刷新访问令牌
//
// POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	accessToken, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		Unauthorized(c, "Sesi sudah berakhir, silakan masuk kembali")
		return
	}
	Success(c, gin.H{"accessToken": accessToken})
}
