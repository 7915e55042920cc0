package service

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"esurat/backend/internal/domain"
	"esurat/backend/internal/storage"
)

// ErrTooManyAttempts OTP 校验尝试次数超限
var ErrTooManyAttempts = errors.New("too many otp attempts")

const (
	// otpAttemptLimit 单个令牌在窗口内允许的 OTP 尝试次数
	otpAttemptLimit = 5
	// otpAttemptWindow 尝试计数窗口
	otpAttemptWindow = 15 * time.Minute
)

// QuickActionService 免登录快捷操作门面
//
// 把魔法链接校验、状态机变更、令牌消费与通知分发串成一条固定流程：
// 校验 → 变更 → 消费 → 分发。业务变更失败时令牌保持可用，
// 变更成功后消费失败仅记日志（业务结果以状态机为准）
type QuickActionService struct {
	letters    *LetterService
	links      *MagicLinkService
	dispatcher *Dispatcher
	attempts   storage.AttemptLimitRepository
	log        *zap.Logger
}

// NewQuickActionService 创建快捷操作服务。attempts 可为 nil（关闭 OTP 限流）
func NewQuickActionService(letters *LetterService, links *MagicLinkService, dispatcher *Dispatcher, attempts storage.AttemptLimitRepository, log *zap.Logger) *QuickActionService {
	return &QuickActionService{
		letters:    letters,
		links:      links,
		dispatcher: dispatcher,
		attempts:   attempts,
		log:        log,
	}
}

// QuickContext 快捷操作页预加载数据
type QuickContext struct {
	Link   *domain.MagicLink
	Letter *domain.Letter
}

// Inspect 快捷操作页加载预检：仅结构性校验令牌（不校验 OTP），返回公文概要
func (s *QuickActionService) Inspect(token string, action domain.LinkAction) (*QuickContext, error) {
	link, err := s.links.Inspect(token, action)
	if err != nil {
		return nil, err
	}
	letter, err := s.letters.Get(link.LetterID)
	if err != nil {
		return nil, err
	}
	return &QuickContext{Link: link, Letter: letter}, nil
}

// Approve 通过魔法链接审批
func (s *QuickActionService) Approve(token, otp, signatureImage string) (*TransitionResult, error) {
	link, err := s.verify(token, otp, domain.ActionApprove)
	if err != nil {
		return nil, err
	}

	result, err := s.letters.Approve(ApproveInput{
		LetterID:       link.LetterID,
		ActorID:        link.UserID,
		SignatureImage: signatureImage,
	})
	if err != nil {
		return nil, err
	}

	s.finish(link, result)
	return result, nil
}

// Reject 通过魔法链接驳回（审批链接与签署链接都可驳回）
func (s *QuickActionService) Reject(token, otp, reason string) (*TransitionResult, error) {
	link, err := s.verify(token, otp, domain.ActionApprove, domain.ActionSign)
	if err != nil {
		return nil, err
	}

	result, err := s.letters.Reject(RejectInput{
		LetterID: link.LetterID,
		ActorID:  link.UserID,
		Reason:   reason,
	})
	if err != nil {
		return nil, err
	}

	s.finish(link, result)
	return result, nil
}

// UploadSigned 通过魔法链接上传签署版
func (s *QuickActionService) UploadSigned(token, otp string, fileData []byte, filename string) (*TransitionResult, error) {
	link, err := s.verify(token, otp, domain.ActionSign)
	if err != nil {
		return nil, err
	}

	result, err := s.letters.UploadSigned(UploadSignedInput{
		LetterID: link.LetterID,
		ActorID:  link.UserID,
		FileData: fileData,
		Filename: filename,
	})
	if err != nil {
		return nil, err
	}

	s.finish(link, result)
	return result, nil
}

// verify 校验令牌与 OTP，带尝试次数限制（防 OTP 爆破）
func (s *QuickActionService) verify(token, otp string, expected ...domain.LinkAction) (*domain.MagicLink, error) {
	if s.attempts != nil {
		count, err := s.attempts.IncrementAttempt(token, otpAttemptWindow)
		if err != nil {
			// 限流后端不可用时放行，不阻塞业务
			s.log.Warn("otp attempt limiter unavailable", zap.Error(err))
		} else if count > otpAttemptLimit {
			return nil, ErrTooManyAttempts
		}
	}
	return s.links.Verify(token, otp, expected...)
}

// finish 业务变更提交后的收尾：消费令牌并分发通知
func (s *QuickActionService) finish(link *domain.MagicLink, result *TransitionResult) {
	if err := s.links.Consume(link); err != nil {
		// 变更已提交，消费失败只能记录，不回滚业务
		s.log.Error("failed to consume magic link after transition",
			zap.String("token", link.Token),
			zap.String("letter_id", link.LetterID),
			zap.Error(err))
	}
	s.dispatcher.Dispatch(result.Events)
}
