package stamp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StampType 印记类型
type StampType string

const (
	// TypeQR 二维码印记
	TypeQR StampType = "qr"
	// TypeImage 图片印记（批签）
	TypeImage StampType = "image"
)

// Stamp 单个印记的内容与位置
//
// XPercent/YPercent 为相对页面宽高的比例（0-1），Size 为相对固定参考页宽的点数。
// QR 印记的 Data 为验证页 URL，图片印记的 Data 为 base64 编码的签名图片
type Stamp struct {
	Page     int       `json:"page"`
	XPercent float64   `json:"xPercent"`
	YPercent float64   `json:"yPercent"`
	Size     float64   `json:"size"`
	Type     StampType `json:"type"`
	Data     string    `json:"data"`
}

// Stamper 文档盖章协作方接口
type Stamper interface {
	StampDocument(pdf []byte, verificationID string, stamps []Stamp) ([]byte, error)
}

// HTTPStamper 调用外部盖章服务的 HTTP 客户端
type HTTPStamper struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPStamper 创建盖章服务客户端
func NewHTTPStamper(endpoint string, timeout time.Duration) *HTTPStamper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStamper{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type stampRequest struct {
	Document       string  `json:"document"` // base64 编码的 PDF
	VerificationID string  `json:"verificationId"`
	Stamps         []Stamp `json:"stamps"`
}

type stampResponse struct {
	Document string `json:"document"` // base64 编码的结果 PDF
	Error    string `json:"error,omitempty"`
}

// StampDocument 将印记列表烧录到 PDF 上，返回新的 PDF 字节。
func (s *HTTPStamper) StampDocument(pdf []byte, verificationID string, stamps []Stamp) ([]byte, error) {
	payload, err := json.Marshal(stampRequest{
		Document:       base64.StdEncoding.EncodeToString(pdf),
		VerificationID: verificationID,
		Stamps:         stamps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode stamp request: %w", err)
	}

	resp, err := s.httpClient.Post(s.endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("stamp service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read stamp response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stamp service returned status %d", resp.StatusCode)
	}

	var result stampResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode stamp response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("stamp service error: %s", result.Error)
	}

	out, err := base64.StdEncoding.DecodeString(result.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stamped document: %w", err)
	}
	return out, nil
}

var _ Stamper = (*HTTPStamper)(nil)
