package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Sender 消息发送协作方接口
//
// 发送失败对核心流程永远是非致命的：调用方记录日志后继续
type Sender interface {
	Send(phone, message string) error
}

// WhatsAppClient 调用外部 WhatsApp 网关的 HTTP 客户端
type WhatsAppClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewWhatsAppClient 创建 WhatsApp 网关客户端
func NewWhatsAppClient(endpoint, apiKey string, timeout time.Duration, log *zap.Logger) *WhatsAppClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WhatsAppClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type sendMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendMessageResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Send 发送一条 WhatsApp 消息。
func (c *WhatsAppClient) Send(phone, message string) error {
	payload, err := json.Marshal(sendMessageRequest{
		Phone:   phone,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var result sendMessageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if result.Error != "" {
		return fmt.Errorf("gateway error: %s", result.Error)
	}

	c.log.Debug("whatsapp message sent", zap.String("phone", phone))
	return nil
}

var _ Sender = (*WhatsAppClient)(nil)

// LogSender 仅记录日志的发送器（未配置网关时使用，开发环境可直接读取日志中的链接）
type LogSender struct {
	log *zap.Logger
}

// NewLogSender 创建日志发送器
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send 将消息写入日志。
func (s *LogSender) Send(phone, message string) error {
	s.log.Info("whatsapp gateway not configured, logging message instead",
		zap.String("phone", phone),
		zap.String("message", message))
	return nil
}

var _ Sender = (*LogSender)(nil)
