package httptransport

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"esurat/backend/internal/config"
	"esurat/backend/internal/domain"
	"esurat/backend/internal/filestore"
	"esurat/backend/internal/service"
	"esurat/backend/internal/stamp"
	"esurat/backend/internal/storage/memory"
)

type nopStamper struct{}

func (nopStamper) StampDocument(pdf []byte, verificationID string, stamps []stamp.Stamp) ([]byte, error) {
	out := make([]byte, len(pdf))
	copy(out, pdf)
	return out, nil
}

type nopSender struct{}

func (nopSender) Send(phone, message string) error { return nil }

type handlerFixture struct {
	engine *gin.Engine
	store  *memory.Store
	links  *service.MagicLinkService
	letter *domain.Letter
}

// newHandlerFixture 组装真实服务栈（内存存储、空操作盖章与发送）并注册公开路由
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	files, err := filestore.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	store := memory.NewStore()
	log := zap.NewNop()
	cfg := &config.Config{
		Letter: config.LetterConfig{
			VerifyBaseURL: "http://localhost:8080/verify",
			QuickBaseURL:  "http://localhost:3000",
		},
		MagicLink: config.MagicLinkConfig{
			ApproveTTL:     30 * time.Minute,
			SignTTL:        30 * time.Minute,
			DispositionTTL: 720 * time.Hour,
		},
	}

	stamps := stamp.NewCoordinator(nopStamper{}, files, cfg.Letter.VerifyBaseURL, log)
	letters := service.NewLetterService(store, files, stamps, log)
	links := service.NewMagicLinkService(store, nopSender{}, cfg, nil, log)
	dispatcher := service.NewDispatcher(store, links, nopSender{}, nil, nil, log)
	quick := service.NewQuickActionService(letters, links, dispatcher, nil, log)

	require.NoError(t, store.SaveUser(&domain.User{
		ID: "u1", Name: "Budi", Username: "budi", Phone: "+628123",
		Role: domain.RoleStaff, IsActive: true,
	}))

	letter, err := letters.Create(service.CreateLetterInput{
		CreatorID: "creator",
		Number:    "001/SK/2025",
		Title:     "Surat Keputusan",
		FileData:  []byte("%PDF-1.4 uji"),
		Filename:  "surat.pdf",
		Approvers: []service.ApproverInput{{UserID: "u1", Order: 1}},
	})
	require.NoError(t, err)
	_, err = letters.Submit(letter.ID, "creator")
	require.NoError(t, err)

	engine := gin.New()
	verifyHandler := NewVerifyHandler(letters)
	quickHandler := NewQuickHandler(quick, log)
	engine.GET("/v1/verify/:qrHash", verifyHandler.Verify)
	engine.GET("/v1/quick/:action/:token", quickHandler.Inspect)
	engine.POST("/v1/quick/approve", quickHandler.Approve)
	engine.POST("/v1/quick/reject", quickHandler.Reject)

	return &handlerFixture{engine: engine, store: store, links: links, letter: letter}
}

func (f *handlerFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func TestVerifyEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	t.Run("未签署的公文 valid 为假且不暴露文件", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/v1/verify/"+f.letter.QRHash, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, false, resp.Data["valid"])
		assert.NotContains(t, resp.Data, "fileUrl")
		assert.Equal(t, "001/SK/2025", resp.Data["number"])
	})

	t.Run("已签署的公文返回文件地址", func(t *testing.T) {
		signed := *f.letter
		signed.Status = domain.StatusSigned
		signed.FileFinal = "/uploads/letters/final.pdf"
		now := time.Now()
		signed.SignedAt = &now
		require.NoError(t, f.store.SaveLetter(&signed))

		rec := f.do(http.MethodGet, "/v1/verify/"+f.letter.QRHash, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp.Data["valid"])
		assert.Equal(t, "/uploads/letters/final.pdf", resp.Data["fileUrl"])
	})

	t.Run("未知验证标识", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/v1/verify/tidak-ada", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestQuickInspectEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	link, err := f.links.Issue("u1", f.letter.ID, domain.ActionApprove)
	require.NoError(t, err)

	t.Run("合法令牌返回公文概要", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/v1/quick/approve/"+link.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Surat Keputusan")
		// OTP 校验前不暴露文件地址
		assert.NotContains(t, rec.Body.String(), "/uploads/")
	})

	t.Run("非法动作", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/v1/quick/bogus/"+link.Token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("未知令牌", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/v1/quick/approve/tok-tidak-ada", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Tautan tidak ditemukan")
	})
}

func TestQuickApproveEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	link, err := f.links.Issue("u1", f.letter.ID, domain.ActionApprove)
	require.NoError(t, err)

	t.Run("缺少字段", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/quick/approve", gin.H{"token": link.Token})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("OTP 错误返回 401", func(t *testing.T) {
		wrongOTP := "000000"
		if link.OTPCode == wrongOTP {
			wrongOTP = "000001"
		}
		rec := f.do(http.MethodPost, "/v1/quick/approve", gin.H{
			"token": link.Token, "otp": wrongOTP, "signatureImage": "sig",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Kode OTP salah")
	})

	t.Run("成功后令牌复用返回 410", func(t *testing.T) {
		rec := f.do(http.MethodPost, "/v1/quick/approve", gin.H{
			"token": link.Token, "otp": link.OTPCode, "signatureImage": "sig",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Surat berhasil disetujui")

		rec = f.do(http.MethodPost, "/v1/quick/approve", gin.H{
			"token": link.Token, "otp": link.OTPCode, "signatureImage": "sig",
		})
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Contains(t, rec.Body.String(), "Tautan sudah pernah digunakan")
	})
}

func TestRespondErrorDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondError(c, errors.New("sesuatu yang tidak terduga"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgInternalError)
}
