package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"esurat/backend/internal/auth"
	"esurat/backend/internal/security"
	"esurat/backend/internal/service"
	"esurat/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 印尼语消息）
var errorMessages = map[error]string{
	// 状态机错误
	service.ErrStatusInvalid:     "Status surat sudah berubah, silakan muat ulang",
	service.ErrNotParticipant:    "Anda bukan bagian dari alur persetujuan surat ini",
	service.ErrNotEligible:       "Belum giliran Anda untuk memproses surat ini",
	service.ErrNotCreator:        "Hanya pembuat surat yang dapat melakukan aksi ini",
	service.ErrNotSigner:         "Hanya penandatangan yang ditunjuk yang dapat melakukan aksi ini",
	service.ErrMissingSignature:  "Tanda tangan wajib dilampirkan",
	service.ErrMissingReason:     "Alasan penolakan wajib diisi",
	service.ErrMissingFile:       "File wajib diunggah",
	service.ErrNotDeletable:      "Surat dalam proses tidak dapat dihapus",
	service.ErrChainLocked:       "Alur persetujuan hanya dapat diubah saat draft",
	service.ErrDuplicateApprover: "Terdapat penyetuju ganda dalam alur persetujuan",

	// 魔法链接错误
	service.ErrLinkExpired:     "Tautan sudah kedaluwarsa, hubungi pembuat surat untuk tautan baru",
	service.ErrBadOTP:          "Kode OTP salah, silakan coba lagi",
	service.ErrActionMismatch:  "Tautan tidak sesuai dengan aksi yang diminta",
	service.ErrTooManyAttempts: "Terlalu banyak percobaan, silakan coba lagi nanti",
	storage.ErrLinkNotFound:    "Tautan tidak ditemukan",
	storage.ErrLinkUsed:        "Tautan sudah pernah digunakan",

	// 文件错误
	security.ErrNotPDF:       "File harus berformat PDF",
	security.ErrFileTooLarge: "Ukuran file melebihi batas 20MB",
	security.ErrEmptyFile:    "File tidak boleh kosong",

	// 存储错误
	storage.ErrLetterNotFound: "Surat tidak ditemukan",
	storage.ErrUserNotFound:   "Pengguna tidak ditemukan",

	// 认证错误
	auth.ErrInvalidCredentials: "Nama pengguna atau kata sandi salah",
	auth.ErrUserDisabled:       "Akun Anda dinonaktifkan",
}

// 错误对应的 HTTP 状态码（未列出的默认 500）
var errorStatus = map[error]int{
	service.ErrStatusInvalid:     http.StatusConflict,
	service.ErrNotParticipant:    http.StatusForbidden,
	service.ErrNotEligible:       http.StatusForbidden,
	service.ErrNotCreator:        http.StatusForbidden,
	service.ErrNotSigner:         http.StatusForbidden,
	service.ErrMissingSignature:  http.StatusBadRequest,
	service.ErrMissingReason:     http.StatusBadRequest,
	service.ErrMissingFile:       http.StatusBadRequest,
	service.ErrNotDeletable:      http.StatusConflict,
	service.ErrChainLocked:       http.StatusConflict,
	service.ErrDuplicateApprover: http.StatusBadRequest,

	service.ErrLinkExpired:     http.StatusGone,
	service.ErrBadOTP:          http.StatusUnauthorized,
	service.ErrActionMismatch:  http.StatusForbidden,
	service.ErrTooManyAttempts: http.StatusTooManyRequests,
	storage.ErrLinkNotFound:    http.StatusNotFound,
	storage.ErrLinkUsed:        http.StatusGone,

	security.ErrNotPDF:       http.StatusBadRequest,
	security.ErrFileTooLarge: http.StatusBadRequest,
	security.ErrEmptyFile:    http.StatusBadRequest,

	storage.ErrLetterNotFound: http.StatusNotFound,
	storage.ErrUserNotFound:   http.StatusNotFound,

	auth.ErrInvalidCredentials: http.StatusUnauthorized,
	auth.ErrUserDisabled:       http.StatusForbidden,
}

// 通用错误消息
const (
	MsgInvalidRequest = "Format permintaan tidak valid"
	MsgInternalError  = "Terjadi kesalahan pada server, silakan coba lagi"
)

// RespondError 将业务错误映射为统一响应
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := MsgInternalError
	for known, code := range errorStatus {
		if errors.Is(err, known) {
			status = code
			msg = errorMessages[known]
			break
		}
	}
	c.JSON(status, Response{Code: status, Msg: msg})
}
