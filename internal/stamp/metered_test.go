package stamp

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esurat/backend/internal/monitoring"
)

type stubStamper struct {
	err error
}

func (s *stubStamper) StampDocument(pdf []byte, verificationID string, stamps []Stamp) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return pdf, nil
}

func TestMeteredStamper(t *testing.T) {
	t.Run("成功调用记录耗时", func(t *testing.T) {
		metrics := monitoring.NewMetrics()
		stamper := NewMeteredStamper(&stubStamper{}, metrics)

		out, err := stamper.StampDocument([]byte("%PDF-1.4"), "v1", nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.4"), out)
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StampFailures))
	})

	t.Run("失败计入失败计数并透传错误", func(t *testing.T) {
		metrics := monitoring.NewMetrics()
		stampErr := errors.New("service unavailable")
		stamper := NewMeteredStamper(&stubStamper{err: stampErr}, metrics)

		_, err := stamper.StampDocument([]byte("%PDF-1.4"), "v1", nil)
		assert.ErrorIs(t, err, stampErr)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StampFailures))
	})
}
