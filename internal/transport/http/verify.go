package httptransport

import (
	"github.com/gin-gonic/gin"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/service"
)

// VerifyHandler 公开验证页处理器
//
// QR 码指向 {verifyBaseUrl}/{qrHash}，任何人可验证公文真伪
type VerifyHandler struct {
	letters *service.LetterService
}

// NewVerifyHandler 创建验证处理器
func NewVerifyHandler(letters *service.LetterService) *VerifyHandler {
	return &VerifyHandler{letters: letters}
}

// Verify 按验证标识查询公文
//
// GET /v1/verify/:qrHash
func (h *VerifyHandler) Verify(c *gin.Context) {
	letter, err := h.letters.GetByQRHash(c.Param("qrHash"))
	if err != nil {
		RespondError(c, err)
		return
	}

	// 验证页只暴露真伪判断所需的字段，不泄露流程内部信息
	data := gin.H{
		"number":   letter.Number,
		"title":    letter.Title,
		"status":   letter.Status,
		"signedAt": letter.SignedAt,
		"valid":    letter.Status == domain.StatusSigned,
	}
	if letter.Status == domain.StatusSigned && letter.FileFinal != "" {
		data["fileUrl"] = letter.FileFinal
	}
	Success(c, data)
}
