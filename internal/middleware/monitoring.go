package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"esurat/backend/internal/monitoring"
)

// MonitoringMiddleware 监控中间件
type MonitoringMiddleware struct {
	metrics *monitoring.Metrics
}

// NewMonitoringMiddleware 创建监控中间件
func NewMonitoringMiddleware(metrics *monitoring.Metrics) *MonitoringMiddleware {
	return &MonitoringMiddleware{metrics: metrics}
}

// HTTPMetrics HTTP 指标中间件
func (mm *MonitoringMiddleware) HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		mm.metrics.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)

		if c.Writer.Status() >= 400 {
			mm.metrics.RecordError("http_error", "http")
		}
	}
}

// BusinessMetrics 业务指标中间件
//
// 按路由计数公文流程动作（仅统计成功响应）
func (mm *MonitoringMiddleware) BusinessMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 300 {
			// 409 表示状态机提交时与库内状态不符（乐观并发失败或重复操作）
			if c.Writer.Status() == http.StatusConflict {
				mm.metrics.TransitionConflict.Inc()
			}
			return
		}

		switch c.FullPath() {
		case "/v1/letters":
			if c.Request.Method == "POST" {
				mm.metrics.LettersCreated.Inc()
			}
		case "/v1/letters/:id/submit":
			mm.metrics.LettersSubmitted.Inc()
		case "/v1/quick/approve", "/v1/letters/:id/approve":
			mm.metrics.LettersApproved.Inc()
		case "/v1/quick/reject", "/v1/letters/:id/reject":
			mm.metrics.LettersRejected.Inc()
		case "/v1/quick/sign", "/v1/letters/:id/sign":
			mm.metrics.LettersSigned.Inc()
		}
	}
}
