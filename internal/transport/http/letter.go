package httptransport

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/service"
)

// LetterHandler 公文管理端处理器（JWT 认证路由）
type LetterHandler struct {
	letters    *service.LetterService
	dispatcher *service.Dispatcher
	log        *zap.Logger
}

// NewLetterHandler 创建公文处理器
func NewLetterHandler(letters *service.LetterService, dispatcher *service.Dispatcher, log *zap.Logger) *LetterHandler {
	return &LetterHandler{
		letters:    letters,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Create 创建公文草稿
//
// POST /v1/letters (multipart/form-data)
func (h *LetterHandler) Create(c *gin.Context) {
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

	input := service.CreateLetterInput{
		CreatorID:          c.GetString("userID"),
		Number:             c.PostForm("number"),
		Title:              c.PostForm("title"),
		FileData:           data,
		Filename:           header.Filename,
		QRPlacement:        placementFromForm(c, "qr"),
		ParafPlacement:     placementFromForm(c, "paraf"),
		AssignedApproverID: c.PostForm("assignedApproverId"),
		AssignedSignerID:   c.PostForm("assignedSignerId"),
	}

	letter, err := h.letters.Create(input)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, letter)
}

// List 当前用户创建的公文列表
//
// GET /v1/letters
func (h *LetterHandler) List(c *gin.Context) {
	letters, err := h.letters.ListByCreator(c.GetString("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, letters)
}

// Get 公文详情（含审批链与审计日志）
//
// GET /v1/letters/:id
func (h *LetterHandler) Get(c *gin.Context) {
	letter, err := h.letters.Get(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	approvers, err := h.letters.Approvers(letter.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	activities, err := h.letters.Activities(letter.ID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{
		"letter":     letter,
		"approvers":  approvers,
		"activities": activities,
	})
}

// SetApprovers 设置审批链（仅草稿）
//
// PUT /v1/letters/:id/approvers
func (h *LetterHandler) SetApprovers(c *gin.Context) {
	var req struct {
		Approvers []service.ApproverInput `json:"approvers" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	if err := h.letters.SetApprovers(c.Param("id"), c.GetString("userID"), req.Approvers); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// Submit 提交公文进入审批
//
// POST /v1/letters/:id/submit
func (h *LetterHandler) Submit(c *gin.Context) {
	result, err := h.letters.Submit(c.Param("id"), c.GetString("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	h.dispatcher.Dispatch(result.Events)
	SuccessWithMsg(c, "Surat berhasil diajukan", result.Letter)
}

// Approve 管理端审批（已登录的审批人）
//
// POST /v1/letters/:id/approve
func (h *LetterHandler) Approve(c *gin.Context) {
	var req struct {
		SignatureImage string `json:"signatureImage" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.letters.Approve(service.ApproveInput{
		LetterID:       c.Param("id"),
		ActorID:        c.GetString("userID"),
		SignatureImage: req.SignatureImage,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	h.dispatcher.Dispatch(result.Events)
	SuccessWithMsg(c, "Surat berhasil disetujui", result.Letter)
}

// Reject 管理端驳回
//
// POST /v1/letters/:id/reject
func (h *LetterHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.letters.Reject(service.RejectInput{
		LetterID: c.Param("id"),
		ActorID:  c.GetString("userID"),
		Reason:   req.Reason,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	h.dispatcher.Dispatch(result.Events)
	SuccessWithMsg(c, "Surat ditolak", result.Letter)
}

// UploadSigned 管理端上传签署版
//
// POST /v1/letters/:id/sign (multipart/form-data)
func (h *LetterHandler) UploadSigned(c *gin.Context) {
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

	result, err := h.letters.UploadSigned(service.UploadSignedInput{
		LetterID: c.Param("id"),
		ActorID:  c.GetString("userID"),
		FileData: data,
		Filename: header.Filename,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	h.dispatcher.Dispatch(result.Events)
	SuccessWithMsg(c, "Surat berhasil ditandatangani", result.Letter)
}

// Cancel 创建人取消公文
//
// POST /v1/letters/:id/cancel
func (h *LetterHandler) Cancel(c *gin.Context) {
	result, err := h.letters.Cancel(c.Param("id"), c.GetString("userID"))
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessWithMsg(c, "Surat dibatalkan", result.Letter)
}

// Delete 删除公文
//
// DELETE /v1/letters/:id
func (h *LetterHandler) Delete(c *gin.Context) {
	err := h.letters.Delete(service.DeleteInput{
		LetterID: c.Param("id"),
		ActorID:  c.GetString("userID"),
		IsAdmin:  c.GetString("role") == string(domain.RoleAdmin),
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// placementFromForm 从表单读取印记位置参数（缺省为零值）
func placementFromForm(c *gin.Context, prefix string) domain.Placement {
	page, _ := strconv.Atoi(c.DefaultPostForm(prefix+"Page", "1"))
	x, _ := strconv.ParseFloat(c.PostForm(prefix+"XPercent"), 64)
	y, _ := strconv.ParseFloat(c.PostForm(prefix+"YPercent"), 64)
	size, _ := strconv.ParseFloat(c.PostForm(prefix+"Size"), 64)
	return domain.Placement{Page: page, XPercent: x, YPercent: y, Size: size}
}
