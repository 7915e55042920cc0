package notify

import (
	"esurat/backend/internal/monitoring"
)

// MeteredSender 包装另一个 Sender 并统计发送成功/失败次数
type MeteredSender struct {
	next    Sender
	metrics *monitoring.Metrics
}

// NewMeteredSender 创建带指标统计的发送器
func NewMeteredSender(next Sender, metrics *monitoring.Metrics) *MeteredSender {
	return &MeteredSender{next: next, metrics: metrics}
}

// Send 转发给底层发送器并记录结果。
func (s *MeteredSender) Send(phone, message string) error {
	err := s.next.Send(phone, message)
	if err != nil {
		s.metrics.NotificationsFailed.Inc()
		return err
	}
	s.metrics.NotificationsSent.Inc()
	return nil
}

var _ Sender = (*MeteredSender)(nil)
