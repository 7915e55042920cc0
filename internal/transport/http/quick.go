package httptransport

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/service"
)

// QuickHandler 免登录快捷操作处理器
//
// 所有端点以魔法链接令牌 + OTP 为凭证，不经过 JWT 认证
type QuickHandler struct {
	quick *service.QuickActionService
	log   *zap.Logger
}

// NewQuickHandler 创建快捷操作处理器
func NewQuickHandler(quick *service.QuickActionService, log *zap.Logger) *QuickHandler {
	return &QuickHandler{quick: quick, log: log}
}

// Inspect 快捷操作页预加载（不校验 OTP）
//
// GET /v1/quick/:action/:token
func (h *QuickHandler) Inspect(c *gin.Context) {
	action := domain.LinkAction(c.Param("action"))
	if !domain.ValidLinkAction(action) {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	ctx, err := h.quick.Inspect(c.Param("token"), action)
	if err != nil {
		RespondError(c, err)
		return
	}

	// 预检仅返回展示所需的最小字段，OTP 校验前不暴露文件地址
	Success(c, gin.H{
		"action": ctx.Link.Action,
		"letter": gin.H{
			"id":     ctx.Letter.ID,
			"number": ctx.Letter.Number,
			"title":  ctx.Letter.Title,
			"status": ctx.Letter.Status,
		},
	})
}

// Approve 快捷审批
//
// POST /v1/quick/approve
func (h *QuickHandler) Approve(c *gin.Context) {
	var req struct {
		Token          string `json:"token" binding:"required"`
		OTP            string `json:"otp" binding:"required"`
		SignatureImage string `json:"signatureImage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.quick.Approve(req.Token, req.OTP, req.SignatureImage)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Surat berhasil disetujui", result.Letter)
}

// Reject 快捷驳回
//
// POST /v1/quick/reject
func (h *QuickHandler) Reject(c *gin.Context) {
	var req struct {
		Token  string `json:"token" binding:"required"`
		OTP    string `json:"otp" binding:"required"`
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.quick.Reject(req.Token, req.OTP, req.Reason)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Surat ditolak", result.Letter)
}

// UploadSigned 快捷上传签署版
//
// POST /v1/quick/sign (multipart/form-data: token, otp, file)
func (h *QuickHandler) UploadSigned(c *gin.Context) {
	token := c.PostForm("token")
	otp := c.PostForm("otp")
	if token == "" || otp == "" {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.quick.UploadSigned(token, otp, data, header.Filename)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Surat berhasil ditandatangani", result.Letter)
}
