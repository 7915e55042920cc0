package stamp

import (
	"time"

	"esurat/backend/internal/monitoring"
)

// MeteredStamper 包装另一个 Stamper 并统计盖章耗时与失败次数
type MeteredStamper struct {
	next    Stamper
	metrics *monitoring.Metrics
}

// NewMeteredStamper 创建带指标统计的盖章器
func NewMeteredStamper(next Stamper, metrics *monitoring.Metrics) *MeteredStamper {
	return &MeteredStamper{next: next, metrics: metrics}
}

// StampDocument 转发给底层盖章器并记录耗时与结果。
func (s *MeteredStamper) StampDocument(pdf []byte, verificationID string, stamps []Stamp) ([]byte, error) {
	start := time.Now()
	out, err := s.next.StampDocument(pdf, verificationID, stamps)
	s.metrics.StampDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.StampFailures.Inc()
		return nil, err
	}
	return out, nil
}

var _ Stamper = (*MeteredStamper)(nil)
